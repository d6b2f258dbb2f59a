package repositories

import (
	"context"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// StatementReader defines read operations for bank statement line data.
type StatementReader interface {
	// FindLineByID retrieves a specific statement line by its unique identifier.
	FindLineByID(ctx context.Context, lineID string) (*domain.BankStatementLine, error)

	// FindLinesByIDs retrieves multiple statement lines, keyed by line ID.
	// Returns ErrNotFound if any requested ID is missing.
	FindLinesByIDs(ctx context.Context, lineIDs []string) (map[string]domain.BankStatementLine, error)

	// ListLines retrieves a paginated, filtered list of statement lines using
	// token-based pagination.
	ListLines(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.BankStatementLine, *string, error)

	// GetUnmatchedLines retrieves all statement lines in scope that are
	// UNMATCHED and not claimed by any pending match record.
	GetUnmatchedLines(ctx context.Context, scope domain.MatchScope) ([]domain.BankStatementLine, error)
}

// StatementWriter defines write operations for bank statement line data.
type StatementWriter interface {
	// SaveLines persists a batch of ingested statement lines and the batch
	// audit event within a single transaction.
	SaveLines(ctx context.Context, lines []domain.BankStatementLine, audit domain.AuditEvent) error

	// ConditionalUpdateLineStatus updates a line's status only if its current
	// status equals expected (compare-and-swap). Returns false when the
	// precondition failed; the caller must re-read and retry.
	ConditionalUpdateLineStatus(ctx context.Context, lineID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error)
}

// StatementRepositoryFacade combines all statement-line repository interfaces.
type StatementRepositoryFacade interface {
	StatementReader
	StatementWriter
}

// LedgerReader defines read operations for general-ledger entry data.
type LedgerReader interface {
	// FindEntryByID retrieves a specific ledger entry by its unique identifier.
	FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// FindEntriesByIDs retrieves multiple ledger entries, keyed by entry ID.
	// Returns ErrNotFound if any requested ID is missing.
	FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.LedgerEntry, error)

	// ListEntries retrieves a paginated, filtered list of ledger entries using
	// token-based pagination.
	ListEntries(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// GetUnmatchedEntries retrieves all ledger entries in scope that are
	// UNMATCHED and not claimed by any pending match record.
	GetUnmatchedEntries(ctx context.Context, scope domain.MatchScope) ([]domain.LedgerEntry, error)
}

// LedgerWriter defines write operations for general-ledger entry data.
type LedgerWriter interface {
	// SaveEntries persists a batch of ingested ledger entries and the batch
	// audit event within a single transaction.
	SaveEntries(ctx context.Context, entries []domain.LedgerEntry, audit domain.AuditEvent) error

	// ConditionalUpdateEntryStatus updates an entry's status only if its
	// current status equals expected (compare-and-swap).
	ConditionalUpdateEntryStatus(ctx context.Context, entryID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error)
}

// LedgerRepositoryFacade combines all ledger-entry repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
