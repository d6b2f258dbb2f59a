package pgsql

import (
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	statementRepo := newPgxStatementRepository(dbPool)
	ledgerRepo := newPgxLedgerRepository(dbPool)
	matchRepo := newPgxMatchRepository(dbPool)
	exceptionRepo := newPgxExceptionRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	reportingRepo := newPgxReportingRepository(dbPool)

	return portsrepo.RepositoryProvider{
		StatementRepo: statementRepo,
		LedgerRepo:    ledgerRepo,
		MatchRepo:     matchRepo,
		ExceptionRepo: exceptionRepo,
		AuditRepo:     auditRepo,
		UserRepo:      userRepo,
		ReportingRepo: reportingRepo,
	}
}
