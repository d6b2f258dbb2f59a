package pgsql

import (
	"context"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxReportingRepository struct {
	BaseRepository
}

func newPgxReportingRepository(pool *pgxpool.Pool) portsrepo.ReportingRepositoryFacade {
	return &PgxReportingRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxReportingRepository implements portsrepo.ReportingRepositoryFacade
var _ portsrepo.ReportingRepositoryFacade = (*PgxReportingRepository)(nil)

// GetReconciliationSummary computes current totals across both item feeds,
// open exceptions, and pending approvals in a single round trip.
func (r *PgxReportingRepository) GetReconciliationSummary(ctx context.Context) (*domain.ReconciliationSummary, error) {
	query := `
		WITH items AS (
			SELECT status FROM bank_statement_lines
			UNION ALL
			SELECT status FROM ledger_entries
		)
		SELECT
			(SELECT count(*) FROM items)                                            AS total,
			(SELECT count(*) FROM items WHERE status = 'MATCHED')                   AS matched,
			(SELECT count(*) FROM items WHERE status = 'UNMATCHED')                 AS unmatched,
			(SELECT count(*) FROM exceptions WHERE status != 'RESOLVED')            AS open_exceptions,
			(SELECT count(*) FROM match_records WHERE status = 'PENDING')           AS pending_approvals;
	`
	var total, matched, unmatched, openExceptions, pendingApprovals int
	err := r.Pool.QueryRow(ctx, query).Scan(&total, &matched, &unmatched, &openExceptions, &pendingApprovals)
	if err != nil {
		return nil, apperrWrap(err, "failed to compute reconciliation summary")
	}

	summary := &domain.ReconciliationSummary{
		TotalTransactions:     total,
		MatchedTransactions:   matched,
		UnmatchedTransactions: unmatched,
		Exceptions:            openExceptions,
		PendingApprovals:      pendingApprovals,
	}
	if total > 0 {
		summary.AutoMatchRate = float64(matched) / float64(total) * 100
	}
	return summary, nil
}
