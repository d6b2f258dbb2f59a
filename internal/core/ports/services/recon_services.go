package services

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/finopsd/recon_backend/internal/dto"
)

// MatchingSvcFacade drives candidate generation and match proposal. Matching
// proposes, approval commits: a successful run leaves item status untouched
// and creates PENDING match records only.
type MatchingSvcFacade interface {
	// RunAutoMatch evaluates every unmatched statement line in scope against
	// the rule catalog and creates pending match records for successful
	// groupings. Safe to cancel between lines; committed proposals remain.
	RunAutoMatch(ctx context.Context, scope domain.MatchScope, runBy string) (*domain.MatchRunSummary, error)

	// CreateManualMatch creates a pending match from explicitly selected
	// items, bypassing the rule evaluator but enforcing the same claim
	// preconditions.
	CreateManualMatch(ctx context.Context, req dto.CreateManualMatchRequest, userID string) (*domain.MatchRecord, error)

	// GetMatchByID retrieves a single match record.
	GetMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error)

	// ListMatches retrieves a paginated list of match records, optionally
	// filtered by status.
	ListMatches(ctx context.Context, params dto.ListMatchesParams) (*dto.ListMatchesResponse, error)

	// ListPending retrieves the pending matches awaiting approval.
	ListPending(ctx context.Context, limit int, nextToken *string) (*dto.ListMatchesResponse, error)
}

// ApprovalSvcFacade is the maker-checker state machine over pending matches.
type ApprovalSvcFacade interface {
	// Approve transitions a pending match to APPROVED and flips all referenced
	// items to MATCHED. Fails with ErrSelfApproval when approver == creator
	// and ErrInvalidStateTransition when the match is not pending.
	Approve(ctx context.Context, matchID string, approverID string) (*domain.MatchRecord, error)

	// Reject transitions a pending match to REJECTED, freeing its items for
	// re-matching. When the reason indicates a data problem, an exception is
	// opened for the affected items in the same operation.
	Reject(ctx context.Context, matchID string, approverID string, req dto.RejectMatchRequest) (*domain.MatchRecord, error)

	// BulkApprove applies Approve to each match independently; one failure
	// does not roll back the others.
	BulkApprove(ctx context.Context, matchIDs []string, approverID string) ([]dto.BulkApproveResult, error)
}

// ExceptionSvcFacade maintains the exception lifecycle.
type ExceptionSvcFacade interface {
	// CreateException opens a new exception; fails with ErrDuplicateException
	// when an open/investigating exception already covers the transaction.
	CreateException(ctx context.Context, req dto.CreateExceptionRequest, userID string) (*domain.Exception, error)

	// Transition moves an exception through OPEN -> INVESTIGATING -> RESOLVED
	// (OPEN -> RESOLVED permitted). RESOLVED is terminal.
	Transition(ctx context.Context, exceptionID string, req dto.TransitionExceptionRequest, userID string) (*domain.Exception, error)

	// Reassign changes the exception assignee.
	Reassign(ctx context.Context, exceptionID string, assignedTo string, userID string) (*domain.Exception, error)

	// GetExceptionByID retrieves a single exception.
	GetExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error)

	// ListExceptions retrieves a paginated, filtered list with derived aging
	// and priority.
	ListExceptions(ctx context.Context, params dto.ListExceptionsParams) (*dto.ListExceptionsResponse, error)

	// ToResponse converts an exception to its response DTO, deriving aging and
	// priority against the current clock and the configured thresholds.
	ToResponse(e *domain.Exception) dto.ExceptionResponse
}

// AuditSvcFacade builds and reads the append-only audit trail.
type AuditSvcFacade interface {
	// NewEvent builds an audit event for a mutation, serializing old/new
	// snapshots to JSON. The caller hands the event to the repository write
	// that performs the mutation so both commit atomically.
	NewEvent(userID string, action domain.AuditAction, entity domain.AuditEntity, entityID string, oldValue, newValue any) domain.AuditEvent

	// Record appends a standalone audit event outside any other write path.
	Record(ctx context.Context, event domain.AuditEvent) error

	// ListAuditTrail retrieves a filtered page of the audit trail.
	ListAuditTrail(ctx context.Context, params dto.ListAuditParams) (*dto.ListAuditResponse, error)
}

// IngestionSvcFacade is the boundary for already-parsed transaction feeds and
// their read-side listings.
type IngestionSvcFacade interface {
	// ImportStatementLines persists a parsed batch of statement lines as
	// UNMATCHED, with one batch audit event.
	ImportStatementLines(ctx context.Context, req dto.ImportStatementLinesRequest, userID string) (int, error)

	// ImportLedgerEntries persists a parsed batch of ledger entries as
	// UNMATCHED, with one batch audit event.
	ImportLedgerEntries(ctx context.Context, req dto.ImportLedgerEntriesRequest, userID string) (int, error)

	// ListStatementLines retrieves a paginated, filtered list of statement lines.
	ListStatementLines(ctx context.Context, params dto.ListItemsParams) (*dto.ListStatementLinesResponse, error)

	// ListLedgerEntries retrieves a paginated, filtered list of ledger entries.
	ListLedgerEntries(ctx context.Context, params dto.ListItemsParams) (*dto.ListLedgerEntriesResponse, error)
}

// ReportingSvcFacade serves dashboard aggregates.
type ReportingSvcFacade interface {
	// GetSummary computes the current reconciliation summary.
	GetSummary(ctx context.Context) (*domain.ReconciliationSummary, error)
}

// TokenSvcFacade defines the interface for token management services.
type TokenSvcFacade interface {
	// GenerateAccessToken issues a signed JWT for the user, returning the
	// token and its expiry time.
	GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
}
