package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	"github.com/finopsd/recon_backend/internal/models"
	"github.com/finopsd/recon_backend/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(pool *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

const selectUserColumns = `
	SELECT user_id, name, email, password_hash, role,
	       created_at, created_by, last_updated_at, last_updated_by, deleted_at
	FROM users
`

func scanUser(row pgx.Row) (models.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Name,
		&m.Email,
		&m.PasswordHash,
		&m.Role,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.DeletedAt,
	)
	return m, err
}

// SaveUser persists a new user and its audit event atomically. Returns
// ErrDuplicate when the email is already taken.
func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := mapping.ToModelUser(user)
	query := `
		INSERT INTO users (user_id, name, email, password_hash, role, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = tx.Exec(ctx, query,
		m.UserID,
		m.Name,
		m.Email,
		m.PasswordHash,
		m.Role,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrWrap(err, "failed to insert user "+m.UserID)
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := selectUserColumns + ` WHERE user_id = $1 AND deleted_at IS NULL;`
	m, err := scanUser(r.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find user by ID "+userID)
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := selectUserColumns + ` WHERE email = $1 AND deleted_at IS NULL;`
	m, err := scanUser(r.Pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find user by email")
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

func (r *PgxUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := selectUserColumns + `
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrWrap(err, "failed to query users")
	}
	defer rows.Close()

	modelUsers := []models.User{}
	for rows.Next() {
		m, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan user row")
		}
		modelUsers = append(modelUsers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating user rows")
	}

	return mapping.ToDomainUserSlice(modelUsers), nil
}

// UpdateUser updates an existing user's details and appends the audit event
// atomically.
func (r *PgxUserRepository) UpdateUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := mapping.ToModelUser(user)
	query := `
		UPDATE users
		SET name = $1, role = $2, last_updated_at = $3, last_updated_by = $4
		WHERE user_id = $5 AND deleted_at IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, query,
		m.Name,
		m.Role,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.UserID,
	)
	if err != nil {
		return apperrWrap(err, "failed to update user "+m.UserID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// MarkUserDeleted soft deletes a user and appends the audit event atomically.
func (r *PgxUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE users
		SET deleted_at = $1, last_updated_at = $1, last_updated_by = $2
		WHERE user_id = $3 AND deleted_at IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, query, deletedAt, deletedBy, userID)
	if err != nil {
		return apperrWrap(err, "failed to mark user as deleted "+userID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}
