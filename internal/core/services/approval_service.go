package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/platform/metrics"
)

type approvalService struct {
	BaseService
	matchRepo     portsrepo.MatchRepositoryFacade
	statementRepo portsrepo.StatementRepositoryFacade
	auditSvc      portssvc.AuditSvcFacade
	exceptionSvc  portssvc.ExceptionSvcFacade
	metrics       *metrics.Metrics
}

// NewApprovalService creates a new approval service.
func NewApprovalService(
	matchRepo portsrepo.MatchRepositoryFacade,
	statementRepo portsrepo.StatementRepositoryFacade,
	auditSvc portssvc.AuditSvcFacade,
	exceptionSvc portssvc.ExceptionSvcFacade,
	m *metrics.Metrics,
) portssvc.ApprovalSvcFacade {
	return &approvalService{
		matchRepo:     matchRepo,
		statementRepo: statementRepo,
		auditSvc:      auditSvc,
		exceptionSvc:  exceptionSvc,
		metrics:       m,
	}
}

// Ensure approvalService implements portssvc.ApprovalSvcFacade
var _ portssvc.ApprovalSvcFacade = (*approvalService)(nil)

// Approve transitions a pending match to APPROVED and flips all referenced
// items to MATCHED in one transaction. Maker-checker separation is mandatory:
// the approver must differ from the creator.
func (s *approvalService) Approve(ctx context.Context, matchID string, approverID string) (*domain.MatchRecord, error) {
	record, err := s.matchRepo.FindMatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.MatchPending {
		return nil, apperrors.ErrInvalidStateTransition
	}
	if record.CreatedBy == approverID {
		return nil, apperrors.ErrSelfApproval
	}

	now := time.Now().UTC()
	audit := s.auditSvc.NewEvent(approverID, domain.ActionMatchApproved, domain.EntityMatchRecord, matchID,
		string(domain.MatchPending), string(domain.MatchApproved))

	if err := s.matchRepo.ApproveMatch(ctx, *record, approverID, now, audit); err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) || errors.Is(err, apperrors.ErrConcurrentClaim) {
			return nil, err
		}
		s.LogError(ctx, err, "failed to approve match", slog.String("match_id", matchID))
		return nil, fmt.Errorf("failed to approve match: %w", err)
	}

	s.metrics.MatchesApproved.Inc()
	s.LogInfo(ctx, "match approved",
		slog.String("match_id", matchID),
		slog.String("approved_by", approverID))

	record.Status = domain.MatchApproved
	record.ApprovedBy = &approverID
	record.ApprovedAt = &now
	record.LastUpdatedAt = now
	record.LastUpdatedBy = approverID
	return record, nil
}

// Reject transitions a pending match to REJECTED, freeing its items for
// re-matching. When the caller flags the rejection as a data problem, an
// exception is opened for each referenced statement line.
func (s *approvalService) Reject(ctx context.Context, matchID string, approverID string, req dto.RejectMatchRequest) (*domain.MatchRecord, error) {
	record, err := s.matchRepo.FindMatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.MatchPending {
		return nil, apperrors.ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	audit := s.auditSvc.NewEvent(approverID, domain.ActionMatchRejected, domain.EntityMatchRecord, matchID,
		string(domain.MatchPending), string(domain.MatchRejected))

	if err := s.matchRepo.RejectMatch(ctx, *record, approverID, req.Reason, now, audit); err != nil {
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			return nil, err
		}
		s.LogError(ctx, err, "failed to reject match", slog.String("match_id", matchID))
		return nil, fmt.Errorf("failed to reject match: %w", err)
	}

	s.metrics.MatchesRejected.Inc()
	s.LogInfo(ctx, "match rejected",
		slog.String("match_id", matchID),
		slog.String("rejected_by", approverID))

	if req.ProblemType != nil {
		s.openRejectionExceptions(ctx, record, *req.ProblemType, req.Reason, approverID)
	}

	record.Status = domain.MatchRejected
	record.RejectionReason = req.Reason
	record.LastUpdatedAt = now
	record.LastUpdatedBy = approverID
	return record, nil
}

// openRejectionExceptions opens one exception per referenced statement line
// after a data-problem rejection. Failures here do not undo the rejection;
// the items are already freed and the problem is logged.
func (s *approvalService) openRejectionExceptions(ctx context.Context, record *domain.MatchRecord, excType domain.ExceptionType, reason string, userID string) {
	lines, err := s.statementRepo.FindLinesByIDs(ctx, record.BankLineIDs)
	if err != nil {
		s.LogError(ctx, err, "failed to load lines for rejection exceptions", slog.String("match_id", record.MatchID))
		return
	}
	for _, line := range lines {
		_, err := s.exceptionSvc.CreateException(ctx, dto.CreateExceptionRequest{
			TransactionID: line.LineID,
			Type:          excType,
			Amount:        line.Amount,
			CurrencyCode:  line.CurrencyCode,
			Note:          "opened on match rejection: " + reason,
		}, userID)
		if err != nil && !errors.Is(err, apperrors.ErrDuplicateException) {
			s.LogError(ctx, err, "failed to open rejection exception", slog.String("line_id", line.LineID))
		}
	}
}

// BulkApprove applies Approve to each match independently. One failure does
// not roll back the others; the caller receives a per-id result list.
func (s *approvalService) BulkApprove(ctx context.Context, matchIDs []string, approverID string) ([]dto.BulkApproveResult, error) {
	results := make([]dto.BulkApproveResult, 0, len(matchIDs))
	for _, matchID := range matchIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		_, err := s.Approve(ctx, matchID, approverID)
		result := dto.BulkApproveResult{MatchID: matchID, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results, nil
}
