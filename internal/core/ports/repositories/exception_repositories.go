package repositories

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// ExceptionReader defines read operations for exception data.
type ExceptionReader interface {
	// FindExceptionByID retrieves a specific exception by its unique identifier.
	FindExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error)

	// FindActiveExceptionByTransactionID retrieves the OPEN or INVESTIGATING
	// exception for a transaction, or ErrNotFound when none exists. Used for
	// the duplicate-exception idempotency guard.
	FindActiveExceptionByTransactionID(ctx context.Context, transactionID string) (*domain.Exception, error)

	// ListExceptions retrieves a paginated, filtered list of exceptions using
	// token-based pagination.
	ListExceptions(ctx context.Context, filter domain.ExceptionFilter, limit int, nextToken *string) ([]domain.Exception, *string, error)
}

// ExceptionWriter defines write operations for exception data. Audit events
// are appended in the same transaction as the mutation.
type ExceptionWriter interface {
	// SaveException persists a new exception and its audit event atomically.
	SaveException(ctx context.Context, exc domain.Exception, audit domain.AuditEvent) error

	// UpdateExceptionStatus moves an exception to newStatus only if its
	// current status equals expected (compare-and-swap), updating the note and
	// appending the audit event atomically. Returns false when the
	// precondition failed.
	UpdateExceptionStatus(ctx context.Context, exceptionID string, expected, newStatus domain.ExceptionStatus, note string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) (bool, error)

	// UpdateExceptionAssignee reassigns an exception and appends the audit
	// event atomically.
	UpdateExceptionAssignee(ctx context.Context, exceptionID string, assignedTo string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) error
}

// ExceptionRepositoryFacade combines all exception repository interfaces.
type ExceptionRepositoryFacade interface {
	ExceptionReader
	ExceptionWriter
}
