package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// apperrWrap wraps a database error as an internal AppError.
func apperrWrap(err error, msg string) error {
	return apperrors.NewAppError(500, msg, err)
}

// apperrBadToken wraps a pagination token decode failure as a validation
// error. Handlers match on apperrors.ErrValidation to return 400, so the
// sentinel must stay in the chain.
func apperrBadToken(err error) error {
	return fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
}

// isUniqueViolation reports whether err is a postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}
