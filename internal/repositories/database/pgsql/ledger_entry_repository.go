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

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryFacade
var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

const selectEntryColumns = `
	SELECT entry_id, gl_account, entry_date, description, amount, currency_code, source_system, status, matched_with,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM ledger_entries
`

func scanEntry(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.GLAccount,
		&m.Date,
		&m.Description,
		&m.Amount,
		&m.CurrencyCode,
		&m.SourceSystem,
		&m.Status,
		&m.MatchedWith,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveEntries persists an ingested batch and its batch audit event in one
// transaction.
func (r *PgxLedgerRepository) SaveEntries(ctx context.Context, entries []domain.LedgerEntry, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	batch := &pgx.Batch{}
	insertQuery := `
		INSERT INTO ledger_entries (
			entry_id, gl_account, entry_date, description, amount, currency_code, source_system, status, matched_with,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	for _, entry := range entries {
		m := mapping.ToModelLedgerEntry(entry)
		batch.Queue(insertQuery,
			m.EntryID,
			m.GLAccount,
			m.Date,
			m.Description,
			m.Amount,
			m.CurrencyCode,
			m.SourceSystem,
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
		return apperrWrap(err, "failed to insert ledger entry batch")
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxLedgerRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	query := selectEntryColumns + ` WHERE entry_id = $1;`
	m, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find ledger entry by ID "+entryID)
	}
	d := mapping.ToDomainLedgerEntry(m)
	return &d, nil
}

// FindEntriesByIDs retrieves multiple ledger entries keyed by entry ID. Returns
// ErrNotFound if any requested ID is missing.
func (r *PgxLedgerRepository) FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.LedgerEntry, error) {
	if len(entryIDs) == 0 {
		return map[string]domain.LedgerEntry{}, nil
	}
	query := selectEntryColumns + ` WHERE entry_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, entryIDs)
	if err != nil {
		return nil, apperrWrap(err, "failed to query ledger entries by IDs")
	}
	defer rows.Close()

	result := make(map[string]domain.LedgerEntry, len(entryIDs))
	for rows.Next() {
		m, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan ledger entry row")
		}
		result[m.EntryID] = mapping.ToDomainLedgerEntry(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating ledger entry rows")
	}
	if len(result) != len(entryIDs) {
		return nil, apperrors.ErrNotFound
	}
	return result, nil
}

// ListEntries retrieves a paginated, filtered list of ledger entries using
// token-based pagination, newest first.
func (r *PgxLedgerRepository) ListEntries(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
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
	if filter.GLAccount != nil {
		whereClause = appendCondition(whereClause, "gl_account = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.GLAccount)
	}
	if filter.CurrencyCode != nil {
		whereClause = appendCondition(whereClause, "currency_code = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.CurrencyCode)
	}
	if filter.DateFrom != nil {
		whereClause = appendCondition(whereClause, "entry_date >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		whereClause = appendCondition(whereClause, "entry_date <= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Search != nil {
		whereClause = appendCondition(whereClause,
			"(description ILIKE '%' || $"+strconv.Itoa(len(args)+1)+" || '%' OR gl_account ILIKE '%' || $"+strconv.Itoa(len(args)+1)+" || '%')")
		args = append(args, *filter.Search)
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastEntryID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrBadToken(decodeErr)
		}
		whereClause = appendCondition(whereClause,
			"(created_at, entry_id) < ($"+strconv.Itoa(len(args)+1)+", $"+strconv.Itoa(len(args)+2)+")")
		args = append(args, lastCreatedAt, lastEntryID)
	}

	query := selectEntryColumns + whereClause + ` ORDER BY created_at DESC, entry_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrWrap(err, "failed to query ledger entries")
	}
	defer rows.Close()

	modelEntries := make([]models.LedgerEntry, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, nil, apperrWrap(scanErr, "failed to scan ledger entry row")
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrWrap(err, "error iterating ledger entry rows")
	}

	var nextTokenVal *string
	results := modelEntries
	if len(modelEntries) > limit {
		last := modelEntries[limit-1]
		newToken := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		nextTokenVal = &newToken
		results = modelEntries[:limit]
	}

	return mapping.ToDomainLedgerEntrySlice(results), nextTokenVal, nil
}

// GetUnmatchedEntries retrieves ledger entries in scope that are UNMATCHED and
// not claimed by a pending match record.
func (r *PgxLedgerRepository) GetUnmatchedEntries(ctx context.Context, scope domain.MatchScope) ([]domain.LedgerEntry, error) {
	whereClause := appendCondition("", "status = 'UNMATCHED'")
	whereClause += ` AND entry_id NOT IN (SELECT item_id FROM match_items WHERE active AND side = 'LEDGER')`
	args := []interface{}{}

	if scope.GLAccount != nil {
		whereClause = appendCondition(whereClause, "gl_account = $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.GLAccount)
	}
	if scope.CurrencyCode != nil {
		whereClause = appendCondition(whereClause, "currency_code = $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.CurrencyCode)
	}
	if scope.DateFrom != nil {
		whereClause = appendCondition(whereClause, "entry_date >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.DateFrom)
	}
	if scope.DateTo != nil {
		whereClause = appendCondition(whereClause, "entry_date <= $"+strconv.Itoa(len(args)+1))
		args = append(args, *scope.DateTo)
	}

	query := selectEntryColumns + whereClause + ` ORDER BY entry_date ASC, entry_id ASC;`
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrWrap(err, "failed to query unmatched ledger entries")
	}
	defer rows.Close()

	modelEntries := []models.LedgerEntry{}
	for rows.Next() {
		m, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan ledger entry row")
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating ledger entry rows")
	}

	return mapping.ToDomainLedgerEntrySlice(modelEntries), nil
}

// ConditionalUpdateEntryStatus flips an entry's status only when its current
// status still equals expected. Returns false when the precondition failed.
func (r *PgxLedgerRepository) ConditionalUpdateEntryStatus(ctx context.Context, entryID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error) {
	query := `
		UPDATE ledger_entries
		SET status = $1, matched_with = $2, last_updated_at = $3
		WHERE entry_id = $4 AND status = $5;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, string(newStatus), matchedWith, time.Now().UTC(), entryID, string(expected))
	if err != nil {
		return false, apperrWrap(err, "failed to update ledger entry status for "+entryID)
	}
	return cmdTag.RowsAffected() > 0, nil
}
