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

type PgxMatchRepository struct {
	BaseRepository
}

func newPgxMatchRepository(pool *pgxpool.Pool) portsrepo.MatchRepositoryFacade {
	return &PgxMatchRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxMatchRepository implements portsrepo.MatchRepositoryFacade
var _ portsrepo.MatchRepositoryFacade = (*PgxMatchRepository)(nil)

const selectMatchColumns = `
	SELECT match_id, match_rule, confidence, status, rejection_reason, approved_by, approved_at,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM match_records
`

func scanMatch(row pgx.Row) (models.MatchRecord, error) {
	var m models.MatchRecord
	err := row.Scan(
		&m.MatchID,
		&m.Rule,
		&m.Confidence,
		&m.Status,
		&m.RejectionReason,
		&m.ApprovedBy,
		&m.ApprovedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveMatch persists a new pending match record, claiming every referenced
// item, all within one transaction. Item rows are locked FOR UPDATE and
// verified UNMATCHED; the partial unique index on active match_items turns a
// racing claim into ErrConcurrentClaim.
func (r *PgxMatchRepository) SaveMatch(ctx context.Context, record domain.MatchRecord, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	// Lock the candidate items in a deterministic order to avoid deadlocks
	// between concurrent runs, then verify every one is still UNMATCHED.
	unmatchedBank, err := countLockedUnmatched(ctx, tx,
		`SELECT count(*) FROM (SELECT status FROM bank_statement_lines WHERE line_id = ANY($1) ORDER BY line_id FOR UPDATE) locked WHERE status = 'UNMATCHED';`,
		record.BankLineIDs)
	if err != nil {
		return err
	}
	unmatchedLedger, err := countLockedUnmatched(ctx, tx,
		`SELECT count(*) FROM (SELECT status FROM ledger_entries WHERE entry_id = ANY($1) ORDER BY entry_id FOR UPDATE) locked WHERE status = 'UNMATCHED';`,
		record.LedgerEntryIDs)
	if err != nil {
		return err
	}
	if unmatchedBank != len(record.BankLineIDs) || unmatchedLedger != len(record.LedgerEntryIDs) {
		return apperrors.ErrInvalidCandidateSet
	}

	m := mapping.ToModelMatchRecord(record)
	insertMatch := `
		INSERT INTO match_records (match_id, match_rule, confidence, status, rejection_reason, approved_by, approved_at,
		                           created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err = tx.Exec(ctx, insertMatch,
		m.MatchID,
		m.Rule,
		m.Confidence,
		m.Status,
		m.RejectionReason,
		m.ApprovedBy,
		m.ApprovedAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrWrap(err, "failed to insert match record "+m.MatchID)
	}

	batch := &pgx.Batch{}
	insertItem := `
		INSERT INTO match_items (match_id, item_id, side, position, active)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, item := range mapping.ToModelMatchItems(record) {
		batch.Queue(insertItem, item.MatchID, item.ItemID, item.Side, item.Position, item.Active)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConcurrentClaim
		}
		return apperrWrap(err, "failed to insert match items for "+m.MatchID)
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func countLockedUnmatched(ctx context.Context, tx pgx.Tx, query string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	if err := tx.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return 0, apperrWrap(err, "failed to lock candidate items")
	}
	return count, nil
}

// ApproveMatch transitions a pending record to APPROVED and flips every
// referenced item to MATCHED, atomically with the audit event.
func (r *PgxMatchRepository) ApproveMatch(ctx context.Context, record domain.MatchRecord, approverID string, approvedAt time.Time, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := lockPendingMatch(ctx, tx, record.MatchID); err != nil {
		return err
	}

	updateMatch := `
		UPDATE match_records
		SET status = 'APPROVED', approved_by = $1, approved_at = $2, last_updated_at = $2, last_updated_by = $1
		WHERE match_id = $3;
	`
	if _, err := tx.Exec(ctx, updateMatch, approverID, approvedAt, record.MatchID); err != nil {
		return apperrWrap(err, "failed to approve match record "+record.MatchID)
	}

	matchedWith := []string{record.MatchID}
	for _, lineID := range record.BankLineIDs {
		ok, err := casItemStatusTx(ctx, tx,
			`UPDATE bank_statement_lines SET status = 'MATCHED', matched_with = $1, last_updated_at = $2, last_updated_by = $3 WHERE line_id = $4 AND status = 'UNMATCHED';`,
			matchedWith, approvedAt, approverID, lineID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrConcurrentClaim
		}
	}
	for _, entryID := range record.LedgerEntryIDs {
		ok, err := casItemStatusTx(ctx, tx,
			`UPDATE ledger_entries SET status = 'MATCHED', matched_with = $1, last_updated_at = $2, last_updated_by = $3 WHERE entry_id = $4 AND status = 'UNMATCHED';`,
			matchedWith, approvedAt, approverID, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrConcurrentClaim
		}
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// RejectMatch transitions a pending record to REJECTED and releases its item
// claims, atomically with the audit event. Items stay UNMATCHED and become
// eligible for re-matching immediately.
func (r *PgxMatchRepository) RejectMatch(ctx context.Context, record domain.MatchRecord, approverID string, reason string, rejectedAt time.Time, audit domain.AuditEvent) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := lockPendingMatch(ctx, tx, record.MatchID); err != nil {
		return err
	}

	updateMatch := `
		UPDATE match_records
		SET status = 'REJECTED', rejection_reason = $1, last_updated_at = $2, last_updated_by = $3
		WHERE match_id = $4;
	`
	if _, err := tx.Exec(ctx, updateMatch, reason, rejectedAt, approverID, record.MatchID); err != nil {
		return apperrWrap(err, "failed to reject match record "+record.MatchID)
	}

	releaseClaims := `UPDATE match_items SET active = FALSE WHERE match_id = $1;`
	if _, err := tx.Exec(ctx, releaseClaims, record.MatchID); err != nil {
		return apperrWrap(err, "failed to release item claims for match "+record.MatchID)
	}

	if err := appendAuditEventTx(ctx, tx, audit); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// lockPendingMatch locks the match row and verifies it is still PENDING.
func lockPendingMatch(ctx context.Context, tx pgx.Tx, matchID string) error {
	var status models.MatchStatus
	err := tx.QueryRow(ctx, `SELECT status FROM match_records WHERE match_id = $1 FOR UPDATE;`, matchID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrWrap(err, "failed to lock match record "+matchID)
	}
	if status != models.MatchPending {
		return apperrors.ErrInvalidStateTransition
	}
	return nil
}

func casItemStatusTx(ctx context.Context, tx pgx.Tx, query string, matchedWith []string, at time.Time, by string, itemID string) (bool, error) {
	cmdTag, err := tx.Exec(ctx, query, matchedWith, at, by, itemID)
	if err != nil {
		return false, apperrWrap(err, "failed to update item status for "+itemID)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *PgxMatchRepository) FindMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	query := selectMatchColumns + ` WHERE match_id = $1;`
	m, err := scanMatch(r.Pool.QueryRow(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrWrap(err, "failed to find match record by ID "+matchID)
	}

	items, err := r.findMatchItems(ctx, []string{matchID})
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainMatchRecord(m, items[matchID])
	return &d, nil
}

// ListMatches retrieves a paginated list of match records, optionally filtered
// by status, using token-based pagination, newest first.
func (r *PgxMatchRepository) ListMatches(ctx context.Context, status *domain.MatchStatus, limit int, nextToken *string) ([]domain.MatchRecord, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	whereClause := ""
	args := []interface{}{}
	if status != nil {
		whereClause = appendCondition(whereClause, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*status))
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastMatchID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrBadToken(decodeErr)
		}
		whereClause = appendCondition(whereClause,
			"(created_at, match_id) < ($"+strconv.Itoa(len(args)+1)+", $"+strconv.Itoa(len(args)+2)+")")
		args = append(args, lastCreatedAt, lastMatchID)
	}

	query := selectMatchColumns + whereClause + ` ORDER BY created_at DESC, match_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrWrap(err, "failed to query match records")
	}
	defer rows.Close()

	modelMatches := make([]models.MatchRecord, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, nil, apperrWrap(scanErr, "failed to scan match record row")
		}
		modelMatches = append(modelMatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrWrap(err, "error iterating match record rows")
	}

	var nextTokenVal *string
	results := modelMatches
	if len(modelMatches) > limit {
		last := modelMatches[limit-1]
		newToken := pagination.EncodeToken(last.CreatedAt, last.MatchID)
		nextTokenVal = &newToken
		results = modelMatches[:limit]
	}

	matchIDs := make([]string, len(results))
	for i, m := range results {
		matchIDs[i] = m.MatchID
	}
	itemsByMatch, err := r.findMatchItems(ctx, matchIDs)
	if err != nil {
		return nil, nil, err
	}

	domainMatches := make([]domain.MatchRecord, len(results))
	for i, m := range results {
		domainMatches[i] = mapping.ToDomainMatchRecord(m, itemsByMatch[m.MatchID])
	}
	return domainMatches, nextTokenVal, nil
}

// findMatchItems loads the item rows for a set of match records, grouped by
// match ID and ordered by position. Inactive rows are included so rejected
// records still report which items they referenced.
func (r *PgxMatchRepository) findMatchItems(ctx context.Context, matchIDs []string) (map[string][]models.MatchItem, error) {
	if len(matchIDs) == 0 {
		return map[string][]models.MatchItem{}, nil
	}
	query := `
		SELECT match_id, item_id, side, position, active
		FROM match_items
		WHERE match_id = ANY($1)
		ORDER BY match_id, side, position;
	`
	rows, err := r.Pool.Query(ctx, query, matchIDs)
	if err != nil {
		return nil, apperrWrap(err, "failed to query match items")
	}
	defer rows.Close()

	result := make(map[string][]models.MatchItem, len(matchIDs))
	for rows.Next() {
		var item models.MatchItem
		if scanErr := rows.Scan(&item.MatchID, &item.ItemID, &item.Side, &item.Position, &item.Active); scanErr != nil {
			return nil, apperrWrap(scanErr, "failed to scan match item row")
		}
		result[item.MatchID] = append(result[item.MatchID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrWrap(err, "error iterating match item rows")
	}
	return result, nil
}
