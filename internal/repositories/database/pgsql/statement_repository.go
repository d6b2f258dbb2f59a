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

type PgxStatementRepository struct {
	BaseRepository
}

func newPgxStatementRepository(pool *pgxpool.Pool) portsrepo.StatementRepositoryFacade {
	return &PgxStatementRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxStatementRepository implements portsrepo.StatementRepositoryFacade
var _ portsrepo.StatementRepositoryFacade = (*PgxStatementRepository)(nil)

const selectLineColumns = `
	SELECT line_id, account_no, line_date, description, amount, currency_code, source_file, status, matched_with,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM bank_statement_lines
`

func scanLine(row pgx.Row) (models.BankStatementLine, error) {
	var m models.BankStatementLine
	err := row.Scan(
		&m.LineID,
		&m.AccountNo,
		&m.Date,
		&m.Description,
		&m.Amount,
		&m.CurrencyCode,
		&m.SourceFile,
		&m.Status,
		&m.MatchedWith,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveLines persists an ingested batch and its batch audit event in one
// transaction. The batch either lands completely or not at all.
func (r *PgxStatementRepository) SaveLines(ctx context.Context, lines []domain.BankStatementLine, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	batch := &pgx.Batch{}
	insertQuery := `
		INSERT INTO bank_statement_lines (
			line_id, account_no, line_date, description, amount, currency_code, source_file, status, matched_with,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	for _, line := range lines {
		m := mapping.ToModelBankStatementLine(line)
		batch.Queue(insertQuery,
			m.LineID,
			m.AccountNo,
			m.Date,
			m.Description,
			m.Amount,
			m.CurrencyCode,
			m.SourceFile,
			m.Status,
			m.MatchedWith,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrWrap(err, "failed to insert statement line batch")
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxStatementRepository) FindLineByID(ctx context.Context, lineID string) (*domain.BankStatementLine, error) {
	query := selectLineColumns + ` WHERE line_id = $1;`
	m, err := scanLine(r.Pool.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find statement line by ID "+lineID)
	}
	d := mapping.ToDomainBankStatementLine(m)
	return &d, nil
}

// FindLinesByIDs retrieves multiple statement lines keyed by line ID. Returns
// ErrNotFound if any requested ID is missing.
func (r *PgxStatementRepository) FindLinesByIDs(ctx context.Context, lineIDs []string) (map[string]domain.BankStatementLine, error) {
	if len(lineIDs) == 0 {
		return map[string]domain.BankStatementLine{}, nil
	}
	query := selectLineColumns + ` WHERE line_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, lineIDs)
	if err != nil {
		return nil, apperrWrap(err, "failed to query statement lines by IDs")
	}
	defer rows.Close()

	result := make(map[string]domain.BankStatementLine, len(lineIDs))
	for rows.Next() {
		m, scanErr := scanLine(rows)
		if scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan statement line row")
		}
		result[m.LineID] = mapping.ToDomainBankStatementLine(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating statement line rows")
	}
	if len(result) != len(lineIDs) {
		return nil, apperrors.ErrNotFound
	}
	return result, nil
}

// ListLines retrieves a paginated, filtered list of statement lines using
// token-based pagination, newest first.
func (r *PgxStatementRepository) ListLines(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.BankStatementLine, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	whereClause := ""
	args := []interface{}{}
	if filter.Status != nil {
		whereClause = appendCondition(whereClause, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.AccountNo != nil {
		whereClause = appendCondition(whereClause, "account_no = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.AccountNo)
	}
	if filter.CurrencyCode != nil {
		whereClause = appendCondition(whereClause, "currency_code = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.CurrencyCode)
	}
	if filter.DateFrom != nil {
		whereClause = appendCondition(whereClause, "line_date >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		whereClause = appendCondition(whereClause, "line_date <= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Search != nil {
		whereClause = appendCondition(whereClause,
			"(description ILIKE '%' || $"+strconv.Itoa(len(args)+1)+" || '%' OR account_no ILIKE '%' || $"+strconv.Itoa(len(args)+1)+" || '%')")
		args = append(args, *filter.Search)
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastLineID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrBadToken(decodeErr)
		}
		whereClause = appendCondition(whereClause,
			"(created_at, line_id) < ($"+strconv.Itoa(len(args)+1)+", $"+strconv.Itoa(len(args)+2)+")")
		args = append(args, lastCreatedAt, lastLineID)
	}

	query := selectLineColumns + whereClause + ` ORDER BY created_at DESC, line_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrWrap(err, "failed to query statement lines")
	}
	defer rows.Close()

	modelLines := make([]models.BankStatementLine, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanLine(rows)
		if scanErr != nil {
			return nil, nil, apperrWrap(scanErr, "failed to scan statement line row")
		}
		modelLines = append(modelLines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrWrap(err, "error iterating statement line rows")
	}

	var nextTokenVal *string
	results := modelLines
	if len(modelLines) > limit {
		last := modelLines[limit-1]
		newToken := pagination.EncodeToken(last.CreatedAt, last.LineID)
		nextTokenVal = &newToken
		results = modelLines[:limit]
	}

	return mapping.ToDomainBankStatementLineSlice(results), nextTokenVal, nil
}

// GetUnmatchedLines retrieves statement lines in scope that are UNMATCHED and
// not claimed by a pending match record. Claimed lines are excluded so
// repeated auto-match runs do not propose duplicates for items awaiting review.
func (r *PgxStatementRepository) GetUnmatchedLines(ctx context.Context, scope domain.MatchScope) ([]domain.BankStatementLine, error) {
	whereClause := appendCondition("", "status = 'UNMATCHED'")
	whereClause += ` AND line_id NOT IN (SELECT item_id FROM match_items WHERE active AND side = 'BANK')`
	args := []interface{}{}

	if scope.AccountNo != nil {
		whereClause = appendCondition(whereClause, "account_no = $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.AccountNo)
	}
	if scope.CurrencyCode != nil {
		whereClause = appendCondition(whereClause, "currency_code = $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.CurrencyCode)
	}
	if scope.DateFrom != nil {
		whereClause = appendCondition(whereClause, "line_date >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.DateFrom)
	}
	if scope.DateTo != nil {
		whereClause = appendCondition(whereClause, "line_date <= $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.DateTo)
	}

	query := selectLineColumns + whereClause + ` ORDER BY line_date ASC, line_id ASC;`
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrWrap(err, "failed to query unmatched statement lines")
	}
	defer rows.Close()

	modelLines := []models.BankStatementLine{}
	for rows.Next() {
		m, scanErr := scanLine(rows)
		if scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan statement line row")
		}
		modelLines = append(modelLines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating statement line rows")
	}

	return mapping.ToDomainBankStatementLineSlice(modelLines), nil
}

// ConditionalUpdateLineStatus flips a line's status only when its current
// status still equals expected. Returns false when the precondition failed.
func (r *PgxStatementRepository) ConditionalUpdateLineStatus(ctx context.Context, lineID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error) {
	query := `
		UPDATE bank_statement_lines
		SET status = $1, matched_with = $2, last_updated_at = $3
		WHERE line_id = $4 AND status = $5;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, string(newStatus), matchedWith, time.Now().UTC(), lineID, string(expected))
	if err != nil {
		return false, apperrWrap(err, "failed to update statement line status for "+lineID)
	}
	return cmdTag.RowsAffected() > 0, nil
}
