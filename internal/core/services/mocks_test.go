package services_test

import (
	"context"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

// newTestMetrics builds metrics against a throwaway registry so suites do not
// collide on the default one.
func newTestMetrics() *metrics.Metrics {
	return metrics.NewWith(prometheus.NewRegistry())
}

// --- Mock MatchRepository ---

type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) FindMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	args := m.Called(ctx, matchID)
	var record *domain.MatchRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.MatchRecord)
	}
	return record, args.Error(1)
}

func (m *MockMatchRepository) ListMatches(ctx context.Context, status *domain.MatchStatus, limit int, nextToken *string) ([]domain.MatchRecord, *string, error) {
	args := m.Called(ctx, status, limit, nextToken)
	var records []domain.MatchRecord
	if args.Get(0) != nil {
		records = args.Get(0).([]domain.MatchRecord)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return records, token, args.Error(2)
}

func (m *MockMatchRepository) SaveMatch(ctx context.Context, record domain.MatchRecord, audit domain.AuditEvent) error {
	args := m.Called(ctx, record, audit)
	return args.Error(0)
}

func (m *MockMatchRepository) ApproveMatch(ctx context.Context, record domain.MatchRecord, approverID string, approvedAt time.Time, audit domain.AuditEvent) error {
	args := m.Called(ctx, record, approverID, approvedAt, audit)
	return args.Error(0)
}

func (m *MockMatchRepository) RejectMatch(ctx context.Context, record domain.MatchRecord, approverID string, reason string, rejectedAt time.Time, audit domain.AuditEvent) error {
	args := m.Called(ctx, record, approverID, reason, rejectedAt, audit)
	return args.Error(0)
}

// --- Mock StatementRepository ---

type MockStatementRepository struct {
	mock.Mock
}

func (m *MockStatementRepository) FindLineByID(ctx context.Context, lineID string) (*domain.BankStatementLine, error) {
	args := m.Called(ctx, lineID)
	var line *domain.BankStatementLine
	if args.Get(0) != nil {
		line = args.Get(0).(*domain.BankStatementLine)
	}
	return line, args.Error(1)
}

func (m *MockStatementRepository) FindLinesByIDs(ctx context.Context, lineIDs []string) (map[string]domain.BankStatementLine, error) {
	args := m.Called(ctx, lineIDs)
	var lines map[string]domain.BankStatementLine
	if args.Get(0) != nil {
		lines = args.Get(0).(map[string]domain.BankStatementLine)
	}
	return lines, args.Error(1)
}

func (m *MockStatementRepository) ListLines(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.BankStatementLine, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var lines []domain.BankStatementLine
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.BankStatementLine)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return lines, token, args.Error(2)
}

func (m *MockStatementRepository) GetUnmatchedLines(ctx context.Context, scope domain.MatchScope) ([]domain.BankStatementLine, error) {
	args := m.Called(ctx, scope)
	var lines []domain.BankStatementLine
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.BankStatementLine)
	}
	return lines, args.Error(1)
}

func (m *MockStatementRepository) SaveLines(ctx context.Context, lines []domain.BankStatementLine, audit domain.AuditEvent) error {
	args := m.Called(ctx, lines, audit)
	return args.Error(0)
}

func (m *MockStatementRepository) ConditionalUpdateLineStatus(ctx context.Context, lineID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error) {
	args := m.Called(ctx, lineID, expected, newStatus, matchedWith)
	return args.Bool(0), args.Error(1)
}

// --- Mock LedgerRepository ---

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entryID)
	var entry *domain.LedgerEntry
	if args.Get(0) != nil {
		entry = args.Get(0).(*domain.LedgerEntry)
	}
	return entry, args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByIDs(ctx context.Context, entryIDs []string) (map[string]domain.LedgerEntry, error) {
	args := m.Called(ctx, entryIDs)
	var entries map[string]domain.LedgerEntry
	if args.Get(0) != nil {
		entries = args.Get(0).(map[string]domain.LedgerEntry)
	}
	return entries, args.Error(1)
}

func (m *MockLedgerRepository) ListEntries(ctx context.Context, filter domain.ItemFilter, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var entries []domain.LedgerEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]domain.LedgerEntry)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return entries, token, args.Error(2)
}

func (m *MockLedgerRepository) GetUnmatchedEntries(ctx context.Context, scope domain.MatchScope) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, scope)
	var entries []domain.LedgerEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]domain.LedgerEntry)
	}
	return entries, args.Error(1)
}

func (m *MockLedgerRepository) SaveEntries(ctx context.Context, entries []domain.LedgerEntry, audit domain.AuditEvent) error {
	args := m.Called(ctx, entries, audit)
	return args.Error(0)
}

func (m *MockLedgerRepository) ConditionalUpdateEntryStatus(ctx context.Context, entryID string, expected, newStatus domain.ItemStatus, matchedWith []string) (bool, error) {
	args := m.Called(ctx, entryID, expected, newStatus, matchedWith)
	return args.Bool(0), args.Error(1)
}

// --- Mock ExceptionRepository ---

type MockExceptionRepository struct {
	mock.Mock
}

func (m *MockExceptionRepository) FindExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error) {
	args := m.Called(ctx, exceptionID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionRepository) FindActiveExceptionByTransactionID(ctx context.Context, transactionID string) (*domain.Exception, error) {
	args := m.Called(ctx, transactionID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionRepository) ListExceptions(ctx context.Context, filter domain.ExceptionFilter, limit int, nextToken *string) ([]domain.Exception, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var excs []domain.Exception
	if args.Get(0) != nil {
		excs = args.Get(0).([]domain.Exception)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return excs, token, args.Error(2)
}

func (m *MockExceptionRepository) SaveException(ctx context.Context, exc domain.Exception, audit domain.AuditEvent) error {
	args := m.Called(ctx, exc, audit)
	return args.Error(0)
}

func (m *MockExceptionRepository) UpdateExceptionStatus(ctx context.Context, exceptionID string, expected, newStatus domain.ExceptionStatus, note string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) (bool, error) {
	args := m.Called(ctx, exceptionID, expected, newStatus, note, updatedBy, updatedAt, audit)
	return args.Bool(0), args.Error(1)
}

func (m *MockExceptionRepository) UpdateExceptionAssignee(ctx context.Context, exceptionID string, assignedTo string, updatedBy string, updatedAt time.Time, audit domain.AuditEvent) error {
	args := m.Called(ctx, exceptionID, assignedTo, updatedBy, updatedAt, audit)
	return args.Error(0)
}

// --- Mock AuditRepository ---

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) ListAuditEvents(ctx context.Context, filter domain.AuditFilter, limit int, nextToken *string) ([]domain.AuditEvent, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var events []domain.AuditEvent
	if args.Get(0) != nil {
		events = args.Get(0).([]domain.AuditEvent)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return events, token, args.Error(2)
}

func (m *MockAuditRepository) AppendAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- Mock UserRepository ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error {
	args := m.Called(ctx, user, audit)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User, audit domain.AuditEvent) error {
	args := m.Called(ctx, user, audit)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string, audit domain.AuditEvent) error {
	args := m.Called(ctx, userID, deletedAt, deletedBy, audit)
	return args.Error(0)
}

// --- Mock ExceptionService ---

type MockExceptionService struct {
	mock.Mock
}

func (m *MockExceptionService) CreateException(ctx context.Context, req dto.CreateExceptionRequest, userID string) (*domain.Exception, error) {
	args := m.Called(ctx, req, userID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionService) Transition(ctx context.Context, exceptionID string, req dto.TransitionExceptionRequest, userID string) (*domain.Exception, error) {
	args := m.Called(ctx, exceptionID, req, userID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionService) Reassign(ctx context.Context, exceptionID string, assignedTo string, userID string) (*domain.Exception, error) {
	args := m.Called(ctx, exceptionID, assignedTo, userID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionService) GetExceptionByID(ctx context.Context, exceptionID string) (*domain.Exception, error) {
	args := m.Called(ctx, exceptionID)
	var exc *domain.Exception
	if args.Get(0) != nil {
		exc = args.Get(0).(*domain.Exception)
	}
	return exc, args.Error(1)
}

func (m *MockExceptionService) ListExceptions(ctx context.Context, params dto.ListExceptionsParams) (*dto.ListExceptionsResponse, error) {
	args := m.Called(ctx, params)
	var resp *dto.ListExceptionsResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*dto.ListExceptionsResponse)
	}
	return resp, args.Error(1)
}

func (m *MockExceptionService) ToResponse(e *domain.Exception) dto.ExceptionResponse {
	args := m.Called(e)
	return args.Get(0).(dto.ExceptionResponse)
}
