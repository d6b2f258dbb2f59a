package services

import (
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/finopsd/recon_backend/internal/platform/metrics"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, m *metrics.Metrics) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Audit goes first; every other mutating service composes its events.
	container.Audit = NewAuditService(repos.AuditRepo)

	container.Exception = NewExceptionService(repos.ExceptionRepo, container.Audit, m, cfg)

	evaluator := NewRuleEvaluator(cfg.Matching)
	container.Matching = NewMatchingService(
		repos.MatchRepo,
		repos.StatementRepo,
		repos.LedgerRepo,
		container.Audit,
		container.Exception,
		evaluator,
		cfg.Matching,
		m,
	)

	container.Approval = NewApprovalService(
		repos.MatchRepo,
		repos.StatementRepo,
		container.Audit,
		container.Exception,
		m,
	)

	container.Ingestion = NewIngestionService(repos.StatementRepo, repos.LedgerRepo, container.Audit)
	container.User = NewUserService(repos.UserRepo, container.Audit)
	container.Auth = NewTokenService(cfg)
	container.Reporting = NewReportingService(repos.ReportingRepo)

	return container
}
