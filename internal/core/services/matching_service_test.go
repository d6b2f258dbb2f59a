package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/core/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MatchingServiceTestSuite struct {
	suite.Suite
	mockMatchRepo     *MockMatchRepository
	mockStatementRepo *MockStatementRepository
	mockLedgerRepo    *MockLedgerRepository
	mockExceptionSvc  *MockExceptionService
	service           portssvc.MatchingSvcFacade
	ctx               context.Context
}

func (suite *MatchingServiceTestSuite) SetupTest() {
	suite.mockMatchRepo = new(MockMatchRepository)
	suite.mockStatementRepo = new(MockStatementRepository)
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockExceptionSvc = new(MockExceptionService)
	suite.service = suite.newService(testPolicy.ClaimRetries)
	suite.ctx = context.Background()
}

func (suite *MatchingServiceTestSuite) newService(claimRetries int) portssvc.MatchingSvcFacade {
	policy := testPolicy
	policy.ClaimRetries = claimRetries
	auditSvc := services.NewAuditService(new(MockAuditRepository))
	return services.NewMatchingService(
		suite.mockMatchRepo,
		suite.mockStatementRepo,
		suite.mockLedgerRepo,
		auditSvc,
		suite.mockExceptionSvc,
		services.NewRuleEvaluator(policy),
		policy,
		newTestMetrics(),
	)
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchProposesPendingMatch() {
	line := makeLine("line-1", "150.00", "ACME CORP PAYMENT", baseDate)
	entry := makeEntry("entry-1", "150.00", "ACME CORP PAYMENT", baseDate)
	scope := domain.MatchScope{}

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{line}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{entry}, nil).Once()
	suite.mockMatchRepo.On("SaveMatch", mock.Anything, mock.MatchedBy(func(r domain.MatchRecord) bool {
		return r.Status == domain.MatchPending &&
			r.Rule == domain.RuleExactMatch &&
			r.Confidence == 1.0 &&
			len(r.BankLineIDs) == 1 && r.BankLineIDs[0] == "line-1" &&
			len(r.LedgerEntryIDs) == 1 && r.LedgerEntryIDs[0] == "entry-1" &&
			r.CreatedBy == "user-run"
	}), mock.MatchedBy(func(a domain.AuditEvent) bool {
		return a.Action == domain.ActionMatchCreated && a.Entity == domain.EntityMatchRecord
	})).Return(nil).Once()

	summary, err := suite.service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(1, summary.LinesExamined)
	suite.Equal(1, summary.MatchesProposed)
	suite.Equal(0, summary.ExceptionsOpened)
	suite.Empty(summary.SkippedLineIDs)
	suite.mockMatchRepo.AssertExpectations(suite.T())
	suite.mockExceptionSvc.AssertNotCalled(suite.T(), "CreateException", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchOpensMissingEntryException() {
	line := makeLine("line-1", "150.00", "ACME CORP PAYMENT", baseDate)
	scope := domain.MatchScope{}
	opened := &domain.Exception{ExceptionID: "exc-1", Status: domain.ExceptionOpen}

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{line}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockExceptionSvc.On("CreateException", mock.Anything, mock.MatchedBy(func(req dto.CreateExceptionRequest) bool {
		return req.TransactionID == "line-1" &&
			req.Type == domain.ExceptionMissingEntry &&
			req.CurrencyCode == "USD"
	}), "user-run").Return(opened, nil).Once()

	summary, err := suite.service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(1, summary.LinesExamined)
	suite.Equal(0, summary.MatchesProposed)
	suite.Equal(1, summary.ExceptionsOpened)
	suite.mockExceptionSvc.AssertExpectations(suite.T())
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchOpensTimingDifferenceException() {
	// Candidate survives the prefilter but no rule accepts it.
	line := makeLine("line-1", "150.00", "VENDOR SETTLEMENT", baseDate)
	entry := makeEntry("entry-1", "950.00", "UNRELATED CHARGE", baseDate)
	scope := domain.MatchScope{}
	opened := &domain.Exception{ExceptionID: "exc-1", Status: domain.ExceptionOpen}

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{line}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{entry}, nil).Once()
	suite.mockExceptionSvc.On("CreateException", mock.Anything, mock.MatchedBy(func(req dto.CreateExceptionRequest) bool {
		return req.TransactionID == "line-1" && req.Type == domain.ExceptionTimingDifference
	}), "user-run").Return(opened, nil).Once()

	summary, err := suite.service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(1, summary.ExceptionsOpened)
	suite.mockExceptionSvc.AssertExpectations(suite.T())
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchDuplicateExceptionIsIdempotent() {
	line := makeLine("line-1", "150.00", "ACME CORP PAYMENT", baseDate)
	scope := domain.MatchScope{}

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{line}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockExceptionSvc.On("CreateException", mock.Anything, mock.Anything, "user-run").
		Return(nil, apperrors.ErrDuplicateException).Once()

	summary, err := suite.service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(0, summary.ExceptionsOpened)
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchSkipsLineOnClaimConflicts() {
	line := makeLine("line-1", "150.00", "ACME CORP PAYMENT", baseDate)
	entry := makeEntry("entry-1", "150.00", "ACME CORP PAYMENT", baseDate)
	scope := domain.MatchScope{}
	service := suite.newService(0)

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{line}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{entry}, nil).Once()
	suite.mockMatchRepo.On("SaveMatch", mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.ErrConcurrentClaim).Once()

	summary, err := service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(0, summary.MatchesProposed)
	suite.Equal([]string{"line-1"}, summary.SkippedLineIDs)
	suite.mockExceptionSvc.AssertNotCalled(suite.T(), "CreateException", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchingServiceTestSuite) TestRunAutoMatchFreesItemsAfterFailedSave() {
	// Two lines compete for the same entry. The first line's save fails with a
	// store error, so the entry must remain available to the second line
	// instead of being held by the first line's abandoned claim.
	lineA := makeLine("line-a", "150.00", "ACME CORP PAYMENT", baseDate)
	lineB := makeLine("line-b", "150.00", "ACME CORP PAYMENT", baseDate)
	entry := makeEntry("entry-1", "150.00", "ACME CORP PAYMENT", baseDate)
	scope := domain.MatchScope{}

	suite.mockStatementRepo.On("GetUnmatchedLines", mock.Anything, scope).
		Return([]domain.BankStatementLine{lineA, lineB}, nil).Once()
	suite.mockLedgerRepo.On("GetUnmatchedEntries", mock.Anything, scope).
		Return([]domain.LedgerEntry{entry}, nil).Once()
	suite.mockMatchRepo.On("SaveMatch", mock.Anything, mock.MatchedBy(func(r domain.MatchRecord) bool {
		return len(r.BankLineIDs) == 1 && r.BankLineIDs[0] == "line-a"
	}), mock.Anything).Return(errors.New("connection reset by peer")).Once()
	suite.mockMatchRepo.On("SaveMatch", mock.Anything, mock.MatchedBy(func(r domain.MatchRecord) bool {
		return len(r.BankLineIDs) == 1 && r.BankLineIDs[0] == "line-b" &&
			len(r.LedgerEntryIDs) == 1 && r.LedgerEntryIDs[0] == "entry-1"
	}), mock.Anything).Return(nil).Once()

	summary, err := suite.service.RunAutoMatch(suite.ctx, scope, "user-run")

	suite.Require().NoError(err)
	suite.Equal(2, summary.LinesExamined)
	suite.Equal(1, summary.MatchesProposed)
	suite.Equal(0, summary.ExceptionsOpened)
	suite.Equal([]string{"line-a"}, summary.SkippedLineIDs)
	suite.mockMatchRepo.AssertExpectations(suite.T())
	suite.mockExceptionSvc.AssertNotCalled(suite.T(), "CreateException", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchingServiceTestSuite) TestCreateManualMatch() {
	req := dto.CreateManualMatchRequest{
		BankLineIDs:    []string{"line-1"},
		LedgerEntryIDs: []string{"entry-1", "entry-2"},
	}
	lines := map[string]domain.BankStatementLine{
		"line-1": makeLine("line-1", "300.00", "SETTLEMENT", baseDate),
	}
	entries := map[string]domain.LedgerEntry{
		"entry-1": makeEntry("entry-1", "100.00", "PART ONE", baseDate),
		"entry-2": makeEntry("entry-2", "200.00", "PART TWO", baseDate),
	}

	suite.mockStatementRepo.On("FindLinesByIDs", suite.ctx, req.BankLineIDs).Return(lines, nil).Once()
	suite.mockLedgerRepo.On("FindEntriesByIDs", suite.ctx, req.LedgerEntryIDs).Return(entries, nil).Once()
	suite.mockMatchRepo.On("SaveMatch", suite.ctx, mock.MatchedBy(func(r domain.MatchRecord) bool {
		return r.Rule == domain.RuleManual &&
			r.Confidence == 0 &&
			r.Status == domain.MatchPending &&
			r.CreatedBy == "user-1"
	}), mock.Anything).Return(nil).Once()

	record, err := suite.service.CreateManualMatch(suite.ctx, req, "user-1")

	suite.Require().NoError(err)
	suite.Require().NotNil(record)
	suite.Equal(domain.RuleManual, record.Rule)
	suite.NotEmpty(record.MatchID)
	suite.mockMatchRepo.AssertExpectations(suite.T())
}

func (suite *MatchingServiceTestSuite) TestCreateManualMatchUnknownLine() {
	req := dto.CreateManualMatchRequest{BankLineIDs: []string{"missing"}, LedgerEntryIDs: []string{"entry-1"}}

	suite.mockStatementRepo.On("FindLinesByIDs", suite.ctx, req.BankLineIDs).
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateManualMatch(suite.ctx, req, "user-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvalidCandidateSet)
	suite.mockMatchRepo.AssertNotCalled(suite.T(), "SaveMatch", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchingServiceTestSuite) TestCreateManualMatchAlreadyMatchedItem() {
	req := dto.CreateManualMatchRequest{BankLineIDs: []string{"line-1"}, LedgerEntryIDs: []string{"entry-1"}}
	line := makeLine("line-1", "300.00", "SETTLEMENT", baseDate)
	entry := makeEntry("entry-1", "300.00", "SETTLEMENT", baseDate)
	entry.Status = domain.ItemMatched

	suite.mockStatementRepo.On("FindLinesByIDs", suite.ctx, req.BankLineIDs).
		Return(map[string]domain.BankStatementLine{"line-1": line}, nil).Once()
	suite.mockLedgerRepo.On("FindEntriesByIDs", suite.ctx, req.LedgerEntryIDs).
		Return(map[string]domain.LedgerEntry{"entry-1": entry}, nil).Once()

	_, err := suite.service.CreateManualMatch(suite.ctx, req, "user-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvalidCandidateSet)
	suite.mockMatchRepo.AssertNotCalled(suite.T(), "SaveMatch", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchingServiceTestSuite) TestCreateManualMatchConcurrentClaim() {
	req := dto.CreateManualMatchRequest{BankLineIDs: []string{"line-1"}, LedgerEntryIDs: []string{"entry-1"}}
	line := makeLine("line-1", "300.00", "SETTLEMENT", baseDate)
	entry := makeEntry("entry-1", "300.00", "SETTLEMENT", baseDate)

	suite.mockStatementRepo.On("FindLinesByIDs", suite.ctx, req.BankLineIDs).
		Return(map[string]domain.BankStatementLine{"line-1": line}, nil).Once()
	suite.mockLedgerRepo.On("FindEntriesByIDs", suite.ctx, req.LedgerEntryIDs).
		Return(map[string]domain.LedgerEntry{"entry-1": entry}, nil).Once()
	suite.mockMatchRepo.On("SaveMatch", suite.ctx, mock.Anything, mock.Anything).
		Return(apperrors.ErrConcurrentClaim).Once()

	_, err := suite.service.CreateManualMatch(suite.ctx, req, "user-1")

	suite.Require().ErrorIs(err, apperrors.ErrConcurrentClaim)
}

func (suite *MatchingServiceTestSuite) TestListPendingFiltersOnPendingStatus() {
	records := []domain.MatchRecord{{MatchID: "match-1", Status: domain.MatchPending}}
	pending := domain.MatchPending

	suite.mockMatchRepo.On("ListMatches", suite.ctx, &pending, 25, (*string)(nil)).
		Return(records, nil, nil).Once()

	resp, err := suite.service.ListPending(suite.ctx, 25, nil)

	suite.Require().NoError(err)
	suite.Len(resp.Matches, 1)
	suite.Equal("match-1", resp.Matches[0].MatchID)
	suite.mockMatchRepo.AssertExpectations(suite.T())
}

func TestMatchingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MatchingServiceTestSuite))
}
