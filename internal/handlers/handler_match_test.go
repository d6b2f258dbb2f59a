package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/handlers"
	"github.com/finopsd/recon_backend/internal/middleware"
	"github.com/finopsd/recon_backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock MatchingService ---

type MockMatchingService struct {
	mock.Mock
}

func (m *MockMatchingService) RunAutoMatch(ctx context.Context, scope domain.MatchScope, runBy string) (*domain.MatchRunSummary, error) {
	args := m.Called(ctx, scope, runBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRunSummary), args.Error(1)
}

func (m *MockMatchingService) CreateManualMatch(ctx context.Context, req dto.CreateManualMatchRequest, userID string) (*domain.MatchRecord, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRecord), args.Error(1)
}

func (m *MockMatchingService) GetMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRecord), args.Error(1)
}

func (m *MockMatchingService) ListMatches(ctx context.Context, params dto.ListMatchesParams) (*dto.ListMatchesResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListMatchesResponse), args.Error(1)
}

func (m *MockMatchingService) ListPending(ctx context.Context, limit int, nextToken *string) (*dto.ListMatchesResponse, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListMatchesResponse), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.MatchingSvcFacade = (*MockMatchingService)(nil)

// --- Mock ApprovalService ---

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Approve(ctx context.Context, matchID string, approverID string) (*domain.MatchRecord, error) {
	args := m.Called(ctx, matchID, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRecord), args.Error(1)
}

func (m *MockApprovalService) Reject(ctx context.Context, matchID string, approverID string, req dto.RejectMatchRequest) (*domain.MatchRecord, error) {
	args := m.Called(ctx, matchID, approverID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchRecord), args.Error(1)
}

func (m *MockApprovalService) BulkApprove(ctx context.Context, matchIDs []string, approverID string) ([]dto.BulkApproveResult, error) {
	args := m.Called(ctx, matchIDs, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.BulkApproveResult), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.ApprovalSvcFacade = (*MockApprovalService)(nil)

// --- Test Suite ---

type MatchHandlerTestSuite struct {
	suite.Suite
	router              *gin.Engine
	mockMatchingService *MockMatchingService
	mockApprovalService *MockApprovalService
	jwtSecret           string
}

func (suite *MatchHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockMatchingService = new(MockMatchingService)
	suite.mockApprovalService = new(MockApprovalService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterMatchRoutes(v1, suite.mockMatchingService, suite.mockApprovalService)
}

// generateTestToken creates a signed JWT carrying the given role.
func (suite *MatchHandlerTestSuite) generateTestToken(userID string, role domain.UserRole) string {
	token, _, err := utils.GenerateJWT(userID, string(role), suite.jwtSecret, time.Hour, "recon-test")
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return token
}

func (suite *MatchHandlerTestSuite) doRequest(method, url string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *MatchHandlerTestSuite) TestApproveMatchAsManager() {
	matchID := uuid.NewString()
	approverID := uuid.NewString()
	approved := &domain.MatchRecord{
		MatchID:        matchID,
		BankLineIDs:    []string{"line-1"},
		LedgerEntryIDs: []string{"entry-1"},
		Rule:           domain.RuleExactMatch,
		Status:         domain.MatchApproved,
		ApprovedBy:     &approverID,
	}

	suite.mockApprovalService.On("Approve", mock.Anything, matchID, approverID).Return(approved, nil).Once()

	token := suite.generateTestToken(approverID, domain.RoleManager)
	w := suite.doRequest(http.MethodPost, "/api/v1/matches/"+matchID+"/approve", nil, token)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.MatchResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(matchID, resp.MatchID)
	suite.Equal(string(domain.MatchApproved), resp.Status)
	suite.mockApprovalService.AssertExpectations(suite.T())
}

func (suite *MatchHandlerTestSuite) TestApproveMatchForbiddenForAnalyst() {
	matchID := uuid.NewString()
	token := suite.generateTestToken(uuid.NewString(), domain.RoleAnalyst)

	w := suite.doRequest(http.MethodPost, "/api/v1/matches/"+matchID+"/approve", nil, token)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockApprovalService.AssertNotCalled(suite.T(), "Approve", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MatchHandlerTestSuite) TestApproveMatchSelfApproval() {
	matchID := uuid.NewString()
	approverID := uuid.NewString()

	suite.mockApprovalService.On("Approve", mock.Anything, matchID, approverID).
		Return(nil, apperrors.ErrSelfApproval).Once()

	token := suite.generateTestToken(approverID, domain.RoleManager)
	w := suite.doRequest(http.MethodPost, "/api/v1/matches/"+matchID+"/approve", nil, token)

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *MatchHandlerTestSuite) TestApproveMatchNotPending() {
	matchID := uuid.NewString()
	approverID := uuid.NewString()

	suite.mockApprovalService.On("Approve", mock.Anything, matchID, approverID).
		Return(nil, apperrors.ErrInvalidStateTransition).Once()

	token := suite.generateTestToken(approverID, domain.RoleManager)
	w := suite.doRequest(http.MethodPost, "/api/v1/matches/"+matchID+"/approve", nil, token)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *MatchHandlerTestSuite) TestCreateManualMatchConflict() {
	req := dto.CreateManualMatchRequest{
		BankLineIDs:    []string{uuid.NewString()},
		LedgerEntryIDs: []string{uuid.NewString()},
	}
	userID := uuid.NewString()

	suite.mockMatchingService.On("CreateManualMatch", mock.Anything, req, userID).
		Return(nil, apperrors.ErrConcurrentClaim).Once()

	token := suite.generateTestToken(userID, domain.RoleAnalyst)
	w := suite.doRequest(http.MethodPost, "/api/v1/matches", req, token)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *MatchHandlerTestSuite) TestCreateManualMatchCreated() {
	req := dto.CreateManualMatchRequest{
		BankLineIDs:    []string{"line-1"},
		LedgerEntryIDs: []string{"entry-1"},
	}
	userID := uuid.NewString()
	record := &domain.MatchRecord{
		MatchID:        uuid.NewString(),
		BankLineIDs:    req.BankLineIDs,
		LedgerEntryIDs: req.LedgerEntryIDs,
		Rule:           domain.RuleManual,
		Status:         domain.MatchPending,
	}

	suite.mockMatchingService.On("CreateManualMatch", mock.Anything, req, userID).Return(record, nil).Once()

	token := suite.generateTestToken(userID, domain.RoleAnalyst)
	w := suite.doRequest(http.MethodPost, "/api/v1/matches", req, token)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.MatchResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(string(domain.RuleManual), resp.MatchRule)
}

func (suite *MatchHandlerTestSuite) TestGetMatchNotFound() {
	matchID := uuid.NewString()

	suite.mockMatchingService.On("GetMatchByID", mock.Anything, matchID).
		Return(nil, apperrors.ErrNotFound).Once()

	token := suite.generateTestToken(uuid.NewString(), domain.RoleAnalyst)
	w := suite.doRequest(http.MethodGet, "/api/v1/matches/"+matchID, nil, token)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *MatchHandlerTestSuite) TestListMatchesBadPaginationToken() {
	// The repository surfaces an undecodable cursor as ErrValidation; the
	// handler must map it to 400, not 500.
	badToken := "!!not-base64!!"
	cursorErr := fmt.Errorf("failed to list matches: %w: invalid nextToken: %v",
		apperrors.ErrValidation, errors.New("illegal base64 data"))

	suite.mockMatchingService.On("ListMatches", mock.Anything, mock.MatchedBy(func(p dto.ListMatchesParams) bool {
		return p.NextToken != nil && *p.NextToken == badToken
	})).Return(nil, cursorErr).Once()

	token := suite.generateTestToken(uuid.NewString(), domain.RoleAnalyst)
	w := suite.doRequest(http.MethodGet, "/api/v1/matches?nextToken="+badToken, nil, token)

	suite.Equal(http.StatusBadRequest, w.Code)
	var resp handlers.ErrorResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("Invalid pagination token", resp.Error)
	suite.mockMatchingService.AssertExpectations(suite.T())
}

func (suite *MatchHandlerTestSuite) TestMissingTokenIsUnauthorized() {
	w := suite.doRequest(http.MethodGet, "/api/v1/matches/pending", nil, "")

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockMatchingService.AssertNotCalled(suite.T(), "ListPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(MatchHandlerTestSuite))
}
