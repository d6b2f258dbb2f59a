package pgsql

import (
	"context"
	"strconv"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	"github.com/finopsd/recon_backend/internal/models"
	"github.com/finopsd/recon_backend/internal/utils/mapping"
	"github.com/finopsd/recon_backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuditRepository struct {
	BaseRepository
}

func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepositoryFacade {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAuditRepository implements portsrepo.AuditRepositoryFacade
var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

const insertAuditEventQuery = `
	INSERT INTO audit_events (event_id, user_id, action, event_timestamp, entity, entity_id, old_value, new_value)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

// appendAuditEventTx inserts one audit event inside an existing transaction.
// Mutating write methods across the pgsql repositories use this so the event
// commits or rolls back together with the mutation it records.
func appendAuditEventTx(ctx context.Context, tx pgx.Tx, event domain.AuditEvent) error {
	m := mapping.ToModelAuditEvent(event)
	_, err := tx.Exec(ctx, insertAuditEventQuery,
		m.EventID,
		m.UserID,
		m.Action,
		m.Timestamp,
		m.Entity,
		m.EntityID,
		m.OldValue,
		m.NewValue,
	)
	if err != nil {
		return apperrWrap(err, "failed to append audit event "+m.EventID)
	}
	return nil
}

func (r *PgxAuditRepository) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	m := mapping.ToModelAuditEvent(event)
	_, err := r.Pool.Exec(ctx, insertAuditEventQuery,
		m.EventID,
		m.UserID,
		m.Action,
		m.Timestamp,
		m.Entity,
		m.EntityID,
		m.OldValue,
		m.NewValue,
	)
	if err != nil {
		return apperrWrap(err, "failed to append audit event "+m.EventID)
	}
	return nil
}

// ListAuditEvents retrieves a paginated, filtered view of the audit trail using
// token-based pagination, newest first.
func (r *PgxAuditRepository) ListAuditEvents(ctx context.Context, filter domain.AuditFilter, limit int, nextToken *string) ([]domain.AuditEvent, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT event_id, user_id, action, event_timestamp, entity, entity_id, old_value, new_value
		FROM audit_events
	`
	whereClause, args := buildAuditFilterClause(filter)

	if nextToken != nil && *nextToken != "" {
		lastTimestamp, lastEventID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrBadToken(decodeErr)
		}
		whereClause = appendCondition(whereClause,
			"(event_timestamp, event_id) < ($"+strconv.Itoa(len(args)+1)+", $"+strconv.Itoa(len(args)+2)+")")
		args = append(args, lastTimestamp, lastEventID)
	}

	query := baseQuery + whereClause + ` ORDER BY event_timestamp DESC, event_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrWrap(err, "failed to query audit events")
	}
	defer rows.Close()

	modelEvents := make([]models.AuditEvent, 0, fetchLimit)
	for rows.Next() {
		var m models.AuditEvent
		if scanErr := rows.Scan(
			&m.EventID,
			&m.UserID,
			&m.Action,
			&m.Timestamp,
			&m.Entity,
			&m.EntityID,
			&m.OldValue,
			&m.NewValue,
		); scanErr != nil {
			return nil, nil, apperrWrap(scanErr, "failed to scan audit event row")
		}
		modelEvents = append(modelEvents, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrWrap(err, "error iterating audit event rows")
	}

	var nextTokenVal *string
	results := modelEvents
	if len(modelEvents) > limit {
		last := modelEvents[limit-1]
		newToken := pagination.EncodeToken(last.Timestamp, last.EventID)
		nextTokenVal = &newToken
		results = modelEvents[:limit]
	}

	return mapping.ToDomainAuditEventSlice(results), nextTokenVal, nil
}

func buildAuditFilterClause(filter domain.AuditFilter) (string, []interface{}) {
	clause := ""
	args := []interface{}{}
	if filter.UserID != nil {
		clause = appendCondition(clause, "user_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.UserID)
	}
	if filter.Action != nil {
		clause = appendCondition(clause, "action = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*filter.Action))
	}
	if filter.Entity != nil {
		clause = appendCondition(clause, "entity = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(*filter.Entity))
	}
	if filter.EntityID != nil {
		clause = appendCondition(clause, "entity_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.EntityID)
	}
	if filter.From != nil {
		clause = appendCondition(clause, "event_timestamp >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		clause = appendCondition(clause, "event_timestamp <= $"+strconv.Itoa(len(args)+1))
		args = append(args, *filter.To)
	}
	return clause, args
}

// appendCondition joins SQL conditions, emitting WHERE for the first one.
func appendCondition(clause, condition string) string {
	if clause == "" {
		return " WHERE " + condition
	}
	return clause + " AND " + condition
}
