package repositories

import (
	"context"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// AuditReader defines read operations for the audit trail.
type AuditReader interface {
	// ListAuditEvents retrieves a paginated, filtered view of the audit trail
	// using token-based pagination, newest first.
	ListAuditEvents(ctx context.Context, filter domain.AuditFilter, limit int, nextToken *string) ([]domain.AuditEvent, *string, error)
}

// AuditWriter defines the append-only write operation for audit events.
// Events are write-once; there is no update or delete. Fails only on store
// unavailability, never on content.
type AuditWriter interface {
	// AppendAuditEvent appends one immutable audit event. Mutating write
	// methods on the other repositories compose this append into their own
	// transaction; this standalone form exists for mutations that have no
	// dedicated repository write path.
	AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error
}

// AuditRepositoryFacade combines the audit repository interfaces.
type AuditRepositoryFacade interface {
	AuditReader
	AuditWriter
}
