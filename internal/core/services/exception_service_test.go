package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/core/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ExceptionServiceTestSuite struct {
	suite.Suite
	mockExceptionRepo *MockExceptionRepository
	service           portssvc.ExceptionSvcFacade
	ctx               context.Context
}

func (suite *ExceptionServiceTestSuite) SetupTest() {
	suite.mockExceptionRepo = new(MockExceptionRepository)
	auditSvc := services.NewAuditService(new(MockAuditRepository))
	cfg := &config.Config{AgingMediumDays: 7, AgingHighDays: 30}
	suite.service = services.NewExceptionService(suite.mockExceptionRepo, auditSvc, newTestMetrics(), cfg)
	suite.ctx = context.Background()
}

func openException(exceptionID, transactionID string) *domain.Exception {
	return &domain.Exception{
		ExceptionID:   exceptionID,
		TransactionID: transactionID,
		Type:          domain.ExceptionMissingEntry,
		Amount:        decimal.RequireFromString("42.00"),
		CurrencyCode:  "USD",
		Note:          "initial note",
		Status:        domain.ExceptionOpen,
		AuditFields: domain.AuditFields{
			CreatedAt:     baseDate,
			CreatedBy:     "user-1",
			LastUpdatedAt: baseDate,
			LastUpdatedBy: "user-1",
		},
	}
}

func (suite *ExceptionServiceTestSuite) TestCreateException() {
	req := dto.CreateExceptionRequest{
		TransactionID: "line-1",
		Type:          domain.ExceptionMissingEntry,
		Amount:        decimal.RequireFromString("42.00"),
		CurrencyCode:  "USD",
		Note:          "no ledger candidates",
	}

	suite.mockExceptionRepo.On("FindActiveExceptionByTransactionID", suite.ctx, "line-1").
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockExceptionRepo.On("SaveException", suite.ctx, mock.MatchedBy(func(e domain.Exception) bool {
		return e.TransactionID == "line-1" &&
			e.Status == domain.ExceptionOpen &&
			e.Type == domain.ExceptionMissingEntry &&
			e.ExceptionID != ""
	}), mock.MatchedBy(func(a domain.AuditEvent) bool {
		return a.Action == domain.ActionExceptionOpened && a.Entity == domain.EntityException
	})).Return(nil).Once()

	exc, err := suite.service.CreateException(suite.ctx, req, "user-1")

	suite.Require().NoError(err)
	suite.Equal(domain.ExceptionOpen, exc.Status)
	suite.Equal("user-1", exc.CreatedBy)
	suite.mockExceptionRepo.AssertExpectations(suite.T())
}

func (suite *ExceptionServiceTestSuite) TestCreateExceptionDuplicateGuard() {
	req := dto.CreateExceptionRequest{TransactionID: "line-1", Type: domain.ExceptionMissingEntry, CurrencyCode: "USD"}

	suite.mockExceptionRepo.On("FindActiveExceptionByTransactionID", suite.ctx, "line-1").
		Return(openException("exc-1", "line-1"), nil).Once()

	_, err := suite.service.CreateException(suite.ctx, req, "user-1")

	suite.Require().ErrorIs(err, apperrors.ErrDuplicateException)
	suite.mockExceptionRepo.AssertNotCalled(suite.T(), "SaveException", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExceptionServiceTestSuite) TestTransitionOpenToInvestigating() {
	exc := openException("exc-1", "line-1")

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()
	suite.mockExceptionRepo.On("UpdateExceptionStatus", suite.ctx, "exc-1",
		domain.ExceptionOpen, domain.ExceptionInvestigating, "looking into it", "user-2",
		mock.AnythingOfType("time.Time"), mock.MatchedBy(func(a domain.AuditEvent) bool {
			return a.Action == domain.ActionExceptionStatusChanged
		})).Return(true, nil).Once()

	updated, err := suite.service.Transition(suite.ctx, "exc-1",
		dto.TransitionExceptionRequest{Status: domain.ExceptionInvestigating, Note: "looking into it"}, "user-2")

	suite.Require().NoError(err)
	suite.Equal(domain.ExceptionInvestigating, updated.Status)
	suite.Equal("looking into it", updated.Note)
	suite.mockExceptionRepo.AssertExpectations(suite.T())
}

func (suite *ExceptionServiceTestSuite) TestTransitionOpenToResolvedKeepsNote() {
	exc := openException("exc-1", "line-1")

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()
	suite.mockExceptionRepo.On("UpdateExceptionStatus", suite.ctx, "exc-1",
		domain.ExceptionOpen, domain.ExceptionResolved, "initial note", "user-2",
		mock.AnythingOfType("time.Time"), mock.Anything).Return(true, nil).Once()

	updated, err := suite.service.Transition(suite.ctx, "exc-1",
		dto.TransitionExceptionRequest{Status: domain.ExceptionResolved}, "user-2")

	suite.Require().NoError(err)
	suite.Equal(domain.ExceptionResolved, updated.Status)
	suite.Equal("initial note", updated.Note)
}

func (suite *ExceptionServiceTestSuite) TestTransitionResolvedIsTerminal() {
	exc := openException("exc-1", "line-1")
	exc.Status = domain.ExceptionResolved

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()

	_, err := suite.service.Transition(suite.ctx, "exc-1",
		dto.TransitionExceptionRequest{Status: domain.ExceptionInvestigating}, "user-2")

	suite.Require().ErrorIs(err, apperrors.ErrInvalidStateTransition)
	suite.mockExceptionRepo.AssertNotCalled(suite.T(), "UpdateExceptionStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExceptionServiceTestSuite) TestTransitionLosesConcurrentRace() {
	exc := openException("exc-1", "line-1")

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()
	suite.mockExceptionRepo.On("UpdateExceptionStatus", suite.ctx, "exc-1",
		domain.ExceptionOpen, domain.ExceptionResolved, "initial note", "user-2",
		mock.AnythingOfType("time.Time"), mock.Anything).Return(false, nil).Once()

	_, err := suite.service.Transition(suite.ctx, "exc-1",
		dto.TransitionExceptionRequest{Status: domain.ExceptionResolved}, "user-2")

	suite.Require().ErrorIs(err, apperrors.ErrInvalidStateTransition)
}

func (suite *ExceptionServiceTestSuite) TestReassign() {
	exc := openException("exc-1", "line-1")

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()
	suite.mockExceptionRepo.On("UpdateExceptionAssignee", suite.ctx, "exc-1", "analyst-9", "user-2",
		mock.AnythingOfType("time.Time"), mock.MatchedBy(func(a domain.AuditEvent) bool {
			return a.Action == domain.ActionExceptionReassigned
		})).Return(nil).Once()

	updated, err := suite.service.Reassign(suite.ctx, "exc-1", "analyst-9", "user-2")

	suite.Require().NoError(err)
	suite.Equal("analyst-9", updated.AssignedTo)
}

func (suite *ExceptionServiceTestSuite) TestReassignResolvedException() {
	exc := openException("exc-1", "line-1")
	exc.Status = domain.ExceptionResolved

	suite.mockExceptionRepo.On("FindExceptionByID", suite.ctx, "exc-1").Return(exc, nil).Once()

	_, err := suite.service.Reassign(suite.ctx, "exc-1", "analyst-9", "user-2")

	suite.Require().ErrorIs(err, apperrors.ErrInvalidStateTransition)
}

func (suite *ExceptionServiceTestSuite) TestToResponseDerivesAgingAndPriority() {
	exc := openException("exc-1", "line-1")
	exc.CreatedAt = time.Now().UTC().AddDate(0, 0, -10)

	resp := suite.service.ToResponse(exc)

	suite.Equal(10, resp.AgingDays)
	suite.Equal(string(domain.PriorityMedium), resp.Priority)

	exc.CreatedAt = time.Now().UTC().AddDate(0, 0, -45)
	resp = suite.service.ToResponse(exc)
	suite.Equal(string(domain.PriorityHigh), resp.Priority)

	exc.CreatedAt = time.Now().UTC()
	resp = suite.service.ToResponse(exc)
	suite.Equal(0, resp.AgingDays)
	suite.Equal(string(domain.PriorityLow), resp.Priority)
}

func (suite *ExceptionServiceTestSuite) TestListExceptionsDerivesPerRow() {
	filter := domain.ExceptionFilter{}
	aged := *openException("exc-1", "line-1")
	aged.CreatedAt = time.Now().UTC().AddDate(0, 0, -8)

	suite.mockExceptionRepo.On("ListExceptions", suite.ctx, filter, 50, (*string)(nil)).
		Return([]domain.Exception{aged}, nil, nil).Once()

	resp, err := suite.service.ListExceptions(suite.ctx, dto.ListExceptionsParams{Limit: 50})

	suite.Require().NoError(err)
	suite.Require().Len(resp.Exceptions, 1)
	suite.Equal(8, resp.Exceptions[0].AgingDays)
	suite.Equal(string(domain.PriorityMedium), resp.Exceptions[0].Priority)
}

func TestExceptionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExceptionServiceTestSuite))
}
