package repositories

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// MatchReader defines read operations for match record data.
type MatchReader interface {
	// FindMatchByID retrieves a specific match record by its unique identifier.
	FindMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error)

	// ListMatches retrieves a paginated list of match records, optionally
	// filtered by status, using token-based pagination.
	ListMatches(ctx context.Context, status *domain.MatchStatus, limit int, nextToken *string) ([]domain.MatchRecord, *string, error)
}

// MatchWriter defines write operations for match record data. Every method
// appends its audit event within the same database transaction as the
// mutation; a mutation must never commit without its audit event.
type MatchWriter interface {
	// SaveMatch persists a new pending match record, claiming every referenced
	// item. Returns ErrConcurrentClaim if any referenced item is already
	// claimed by a non-rejected match, and ErrInvalidCandidateSet if any
	// referenced item is not currently UNMATCHED.
	SaveMatch(ctx context.Context, record domain.MatchRecord, audit domain.AuditEvent) error

	// ApproveMatch transitions a pending record to APPROVED, flips every
	// referenced item to MATCHED with matchedWith set, and appends the audit
	// event, all atomically. Returns ErrInvalidStateTransition if the record
	// is not PENDING, ErrConcurrentClaim if any item status CAS fails.
	ApproveMatch(ctx context.Context, record domain.MatchRecord, approverID string, approvedAt time.Time, audit domain.AuditEvent) error

	// RejectMatch transitions a pending record to REJECTED, releases its item
	// claims, and appends the audit event atomically. Referenced items remain
	// UNMATCHED. Returns ErrInvalidStateTransition if the record is not PENDING.
	RejectMatch(ctx context.Context, record domain.MatchRecord, approverID string, reason string, rejectedAt time.Time, audit domain.AuditEvent) error
}

// MatchRepositoryFacade combines all match-record repository interfaces.
type MatchRepositoryFacade interface {
	MatchReader
	MatchWriter
}
