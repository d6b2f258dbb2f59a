package services

import (
	"context"
	"fmt"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
)

type reportingService struct {
	BaseService
	reportingRepo portsrepo.ReportingRepositoryFacade
}

// NewReportingService creates a new reporting service.
func NewReportingService(reportingRepo portsrepo.ReportingRepositoryFacade) portssvc.ReportingSvcFacade {
	return &reportingService{reportingRepo: reportingRepo}
}

// Ensure reportingService implements portssvc.ReportingSvcFacade
var _ portssvc.ReportingSvcFacade = (*reportingService)(nil)

// GetSummary computes the current reconciliation summary for dashboards.
func (s *reportingService) GetSummary(ctx context.Context) (*domain.ReconciliationSummary, error) {
	summary, err := s.reportingRepo.GetReconciliationSummary(ctx)
	if err != nil {
		s.LogError(ctx, err, "failed to compute reconciliation summary")
		return nil, fmt.Errorf("failed to get reconciliation summary: %w", err)
	}
	return summary, nil
}
