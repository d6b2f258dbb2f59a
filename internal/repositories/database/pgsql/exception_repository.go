package pgsql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	"github.com/finopsd/recon_backend/internal/models"
	"github.com/finopsd/recon_backend/internal/utils/mapping"
	"github.com/finopsd/recon_backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxExceptionRepository struct {
	BaseRepository
}

func newPgxExceptionRepository(pool *pgxpool.Pool) portsrepo.ExceptionRepositoryFacade {
	return &PgxExceptionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxExceptionRepository implements portsrepo.ExceptionRepositoryFacade
var _ portsrepo.ExceptionRepositoryFacade = (*PgxExceptionRepository)(nil)

const selectExceptionColumns = `
	SELECT exception_id, transaction_id, exception_type, amount, currency_code, note, assigned_to, status,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM exceptions
`

func scanException(row pgx.Row) (models.Exception, error) {
	var m models.Exception
	err := row.Scan(
		&m.ExceptionID,
		&m.TransactionID,
		&m.Type,
		&m.Amount,
		&m.CurrencyCode,
		&m.Note,
		&m.AssignedTo,
		&m.Status,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveException persists a new exception and its audit event atomically. The
// partial unique index on unresolved transaction_id rows turns a concurrent
// duplicate into ErrDuplicateException.
func (r *PgxExceptionRepository) SaveException(ctx context.Context, exc domain.Exception, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := mapping.ToModelException(exc)
	insertQuery := `
		INSERT INTO exceptions (exception_id, transaction_id, exception_type, amount, currency_code, note, assigned_to, status,
		                        created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, insertQuery,
		m.ExceptionID,
		m.TransactionID,
		m.Type,
		m.Amount,
		m.CurrencyCode,
		m.Note,
		m.AssignedTo,
		m.Status,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateException
		}
		return apperrWrap(err, "failed to insert exception "+m.ExceptionID)
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxExceptionRepository) FindExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error) {
	query := selectExceptionColumns + ` WHERE exception_id = $1;`
	m, err := scanException(r.Pool.QueryRow(ctx, query, exceptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find exception by ID "+exceptionID)
	}
	d := mapping.ToDomainException(m)
	return &d, nil
}

// FindActiveExceptionByTransactionID retrieves the unresolved exception for a
// transaction. At most one exists thanks to the partial unique index.
func (r *PgxExceptionRepository) FindActiveExceptionByTransactionID(ctx context.Context, transactionID string) (*domain.Exception, error) {
	query := selectExceptionColumns + ` WHERE transaction_id = $1 AND status != 'RESOLVED';`
	m, err := scanException(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find active exception for transaction "+transactionID)
	}
	d := mapping.ToDomainException(m)
	return &d, nil
}

// ListExceptions retrieves a paginated, filtered list of exceptions using
// token-based pagination, oldest first so the longest-aged surface on top.
func (r *PgxExceptionRepository) ListExceptions(ctx context.Context, filter domain.ExceptionFilter, limit int, nextToken *string) ([]domain.Exception, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	whereClause := ""
	args := []interface{}{}
	if filter.Type != nil {
		whereClause = appendCondition(whereClause, "exception_type = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		whereClause = appendCondition(whereClause, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedTo != nil {
		whereClause = appendCondition(whereClause, "assigned_to = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.AssignedTo)
	}
	if filter.TransactionID != nil {
		whereClause = appendCondition(whereClause, "transaction_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.TransactionID)
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastExceptionID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrBadToken(decodeErr)
		}
		whereClause = appendCondition(whereClause,
			"(created_at, exception_id) > ($"+strconv.Itoa(len(args)+1)+", $"+strconv.Itoa(len(args)+2)+")")
		args = append(args, lastCreatedAt, lastExceptionID)
	}

	query := selectExceptionColumns + whereClause + ` ORDER BY created_at ASC, exception_id ASC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrWrap(err, "failed to query exceptions")
	}
	defer rows.Close()

	modelExceptions := make([]models.Exception, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanException(rows)
		if scanErr != nil {
			return nil, nil, apperrWrap(scanErr, "failed to scan exception row")
		}
		modelExceptions = append(modelExceptions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrWrap(err, "error iterating exception rows")
	}

	var nextTokenVal *string
	results := modelExceptions
	if len(modelExceptions) > limit {
		last := modelExceptions[limit-1]
		newToken := pagination.EncodeToken(last.CreatedAt, last.ExceptionID)
		nextTokenVal = &newToken
		results = modelExceptions[:limit]
	}

	return mapping.ToDomainExceptionSlice(results), nextTokenVal, nil
}

// UpdateExceptionStatus moves an exception to newStatus only when its current
// status still equals expected, appending the audit event atomically. Returns
// false when the precondition failed.
func (r *PgxExceptionRepository) UpdateExceptionStatus(ctx context.Context, exceptionID string, expected, newStatus domain.ExceptionStatus, note string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE exceptions
		SET status = $1, note = $2, last_updated_at = $3, last_updated_by = $4
		WHERE exception_id = $5 AND status = $6;
	`
	cmdTag, err := tx.Exec(ctx, query, string(newStatus), note, updatedAt, updatedBy, exceptionID, string(expected))
	if err != nil {
		return false, apperrWrap(err, "failed to update exception status for "+exceptionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return false, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateExceptionAssignee reassigns an exception and appends the audit event
// atomically.
func (r *PgxExceptionRepository) UpdateExceptionAssignee(ctx context.Context, exceptionID string, assignedTo string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE exceptions
		SET assigned_to = $1, last_updated_at = $2, last_updated_by = $3
		WHERE exception_id = $4 AND status != 'RESOLVED';
	`
	cmdTag, err := tx.Exec(ctx, query, assignedTo, updatedAt, updatedBy, exceptionID)
	if err != nil {
		return apperrWrap(err, "failed to reassign exception "+exceptionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}
