package repositories

import (
	"context"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// ReportingReader defines aggregate read operations for dashboards.
type ReportingReader interface {
	// GetReconciliationSummary computes the current reconciliation totals
	// across statement lines, ledger entries, matches, and exceptions.
	GetReconciliationSummary(ctx context.Context) (*domain.ReconciliationSummary, error)
}

// ReportingRepositoryFacade combines the reporting repository interfaces.
type ReportingRepositoryFacade interface {
	ReportingReader
}
