package repositories

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a specific user by their email address.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUsers retrieves a paginated list of users.
	FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
}

// UserWriter defines write operations for user data. Audit events are appended
// in the same transaction as the mutation.
type UserWriter interface {
	// SaveUser persists a new user and its audit event atomically.
	SaveUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error

	// UpdateUser updates an existing user's details and appends the audit
	// event atomically.
	UpdateUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error
}

// UserLifecycleManager defines operations for managing user lifecycle
type UserLifecycleManager interface {
	// MarkUserDeleted marks a user as deleted (soft delete) and appends the
	// audit event atomically.
	MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string, audit domain.AuditEvent) error
}

// UserRepositoryFacade combines all user-related repository interfaces
// This is a facade for clients that need access to all operations
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	UserLifecycleManager
}
