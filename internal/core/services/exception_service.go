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
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/finopsd/recon_backend/internal/platform/metrics"
	"github.com/google/uuid"
)

type exceptionService struct {
	BaseService
	exceptionRepo portsrepo.ExceptionRepositoryFacade
	auditSvc      portssvc.AuditSvcFacade
	metrics       *metrics.Metrics
	cfg           *config.Config
}

// NewExceptionService creates a new exception service.
func NewExceptionService(exceptionRepo portsrepo.ExceptionRepositoryFacade, auditSvc portssvc.AuditSvcFacade, m *metrics.Metrics, cfg *config.Config) portssvc.ExceptionSvcFacade {
	return &exceptionService{
		exceptionRepo: exceptionRepo,
		auditSvc:      auditSvc,
		metrics:       m,
		cfg:           cfg,
	}
}

// Ensure exceptionService implements portssvc.ExceptionSvcFacade
var _ portssvc.ExceptionSvcFacade = (*exceptionService)(nil)

// CreateException opens a new exception for an unmatched transaction. At most
// one unresolved exception exists per transaction; a second create attempt
// fails with ErrDuplicateException.
func (s *exceptionService) CreateException(ctx context.Context, req dto.CreateExceptionRequest, userID string) (*domain.Exception, error) {
	existing, err := s.exceptionRepo.FindActiveExceptionByTransactionID(ctx, req.TransactionID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing exception: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateException
	}

	now := time.Now().UTC()
	exc := domain.Exception{
		ExceptionID:   uuid.NewString(),
		TransactionID: req.TransactionID,
		Type:          req.Type,
		Amount:        req.Amount,
		CurrencyCode:  req.CurrencyCode,
		Note:          req.Note,
		AssignedTo:    req.AssignedTo,
		Status:        domain.ExceptionOpen,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	audit := s.auditSvc.NewEvent(userID, domain.ActionExceptionOpened, domain.EntityException, exc.ExceptionID, nil, exc)
	if err := s.exceptionRepo.SaveException(ctx, exc, audit); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateException) {
			return nil, err
		}
		s.LogError(ctx, err, "failed to save exception", slog.String("transaction_id", req.TransactionID))
		return nil, fmt.Errorf("failed to create exception: %w", err)
	}

	s.metrics.IncrementExceptionOpened(string(exc.Type))
	s.LogInfo(ctx, "exception opened",
		slog.String("exception_id", exc.ExceptionID),
		slog.String("transaction_id", exc.TransactionID),
		slog.String("type", string(exc.Type)))
	return &exc, nil
}

// Transition moves an exception through its lifecycle. RESOLVED is terminal;
// reopening means creating a new exception.
func (s *exceptionService) Transition(ctx context.Context, exceptionID string, req dto.TransitionExceptionRequest, userID string) (*domain.Exception, error) {
	exc, err := s.exceptionRepo.FindExceptionByID(ctx, exceptionID)
	if err != nil {
		return nil, err
	}

	if !exc.CanTransitionTo(req.Status) {
		return nil, apperrors.ErrInvalidStateTransition
	}

	note := exc.Note
	if req.Note != "" {
		note = req.Note
	}
	now := time.Now().UTC()
	audit := s.auditSvc.NewEvent(userID, domain.ActionExceptionStatusChanged, domain.EntityException, exceptionID,
		string(exc.Status), string(req.Status))

	updated, err := s.exceptionRepo.UpdateExceptionStatus(ctx, exceptionID, exc.Status, req.Status, note, userID, now, audit)
	if err != nil {
		s.LogError(ctx, err, "failed to transition exception", slog.String("exception_id", exceptionID))
		return nil, fmt.Errorf("failed to transition exception: %w", err)
	}
	if !updated {
		// A concurrent transition moved the exception first.
		return nil, apperrors.ErrInvalidStateTransition
	}

	exc.Status = req.Status
	exc.Note = note
	exc.LastUpdatedAt = now
	exc.LastUpdatedBy = userID
	return exc, nil
}

// Reassign changes the exception assignee. Resolved exceptions cannot be
// reassigned.
func (s *exceptionService) Reassign(ctx context.Context, exceptionID string, assignedTo string, userID string) (*domain.Exception, error) {
	exc, err := s.exceptionRepo.FindExceptionByID(ctx, exceptionID)
	if err != nil {
		return nil, err
	}
	if exc.Status == domain.ExceptionResolved {
		return nil, apperrors.ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	audit := s.auditSvc.NewEvent(userID, domain.ActionExceptionReassigned, domain.EntityException, exceptionID,
		exc.AssignedTo, assignedTo)

	if err := s.exceptionRepo.UpdateExceptionAssignee(ctx, exceptionID, assignedTo, userID, now, audit); err != nil {
		s.LogError(ctx, err, "failed to reassign exception", slog.String("exception_id", exceptionID))
		return nil, err
	}

	exc.AssignedTo = assignedTo
	exc.LastUpdatedAt = now
	exc.LastUpdatedBy = userID
	return exc, nil
}

func (s *exceptionService) GetExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error) {
	return s.exceptionRepo.FindExceptionByID(ctx, exceptionID)
}

// ListExceptions retrieves a filtered page with aging and priority derived
// against the current clock and the configured thresholds.
func (s *exceptionService) ListExceptions(ctx context.Context, params dto.ListExceptionsParams) (*dto.ListExceptionsResponse, error) {
	filter := domain.ExceptionFilter{
		Type:       params.Type,
		Status:     params.Status,
		AssignedTo: params.AssignedTo,
	}
	exceptions, nextToken, err := s.exceptionRepo.ListExceptions(ctx, filter, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "failed to list exceptions")
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}

	now := time.Now().UTC()
	resp := &dto.ListExceptionsResponse{
		Exceptions: make([]dto.ExceptionResponse, len(exceptions)),
		NextToken:  nextToken,
	}
	for i := range exceptions {
		resp.Exceptions[i] = dto.ToExceptionResponse(&exceptions[i], now, s.cfg.AgingMediumDays, s.cfg.AgingHighDays)
	}
	return resp, nil
}

// ToResponse converts a single exception, deriving aging the same way listings do.
func (s *exceptionService) ToResponse(e *domain.Exception) dto.ExceptionResponse {
	return dto.ToExceptionResponse(e, time.Now().UTC(), s.cfg.AgingMediumDays, s.cfg.AgingHighDays)
}
