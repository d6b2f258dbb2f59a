package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/core/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/stretchr/testify/suite"
)

type AuditServiceTestSuite struct {
	suite.Suite
	mockAuditRepo *MockAuditRepository
	service       portssvc.AuditSvcFacade
	ctx           context.Context
}

func (suite *AuditServiceTestSuite) SetupTest() {
	suite.mockAuditRepo = new(MockAuditRepository)
	suite.service = services.NewAuditService(suite.mockAuditRepo)
	suite.ctx = context.Background()
}

func (suite *AuditServiceTestSuite) TestNewEventSerializesSnapshots() {
	record := domain.MatchRecord{MatchID: "match-1", Status: domain.MatchPending}

	event := suite.service.NewEvent("user-1", domain.ActionMatchCreated, domain.EntityMatchRecord, "match-1", nil, record)

	suite.NotEmpty(event.EventID)
	suite.Equal("user-1", event.UserID)
	suite.Equal(domain.ActionMatchCreated, event.Action)
	suite.Equal(domain.EntityMatchRecord, event.Entity)
	suite.Equal("match-1", event.EntityID)
	suite.Equal(time.UTC, event.Timestamp.Location())
	suite.WithinDuration(time.Now().UTC(), event.Timestamp, time.Minute)

	// Creations carry no prior state.
	suite.Nil(event.OldValue)
	suite.Require().NotNil(event.NewValue)
	suite.Contains(*event.NewValue, `"matchID":"match-1"`)
	suite.Contains(*event.NewValue, `"status":"PENDING"`)
}

func (suite *AuditServiceTestSuite) TestNewEventStringSnapshots() {
	event := suite.service.NewEvent("user-1", domain.ActionMatchApproved, domain.EntityMatchRecord, "match-1",
		string(domain.MatchPending), string(domain.MatchApproved))

	suite.Require().NotNil(event.OldValue)
	suite.Require().NotNil(event.NewValue)
	suite.Equal(`"PENDING"`, *event.OldValue)
	suite.Equal(`"APPROVED"`, *event.NewValue)
}

func (suite *AuditServiceTestSuite) TestRecord() {
	event := suite.service.NewEvent("user-1", domain.ActionUserDeactivated, domain.EntityUser, "user-9", nil, nil)

	suite.mockAuditRepo.On("AppendAuditEvent", suite.ctx, event).Return(nil).Once()

	err := suite.service.Record(suite.ctx, event)

	suite.Require().NoError(err)
	suite.mockAuditRepo.AssertExpectations(suite.T())
}

func (suite *AuditServiceTestSuite) TestRecordStoreFailure() {
	event := suite.service.NewEvent("user-1", domain.ActionUserDeactivated, domain.EntityUser, "user-9", nil, nil)
	storeErr := errors.New("connection refused")

	suite.mockAuditRepo.On("AppendAuditEvent", suite.ctx, event).Return(storeErr).Once()

	err := suite.service.Record(suite.ctx, event)

	suite.Require().ErrorIs(err, storeErr)
}

func (suite *AuditServiceTestSuite) TestListAuditTrail() {
	action := domain.ActionMatchApproved
	old := `"PENDING"`
	events := []domain.AuditEvent{{
		EventID:   "event-1",
		UserID:    "user-1",
		Action:    action,
		Timestamp: baseDate,
		Entity:    domain.EntityMatchRecord,
		EntityID:  "match-1",
		OldValue:  &old,
	}}
	nextToken := "token-abc"

	suite.mockAuditRepo.On("ListAuditEvents", suite.ctx, domain.AuditFilter{Action: &action}, 20, (*string)(nil)).
		Return(events, &nextToken, nil).Once()

	resp, err := suite.service.ListAuditTrail(suite.ctx, dto.ListAuditParams{Action: &action, Limit: 20})

	suite.Require().NoError(err)
	suite.Require().Len(resp.Events, 1)
	suite.Equal("event-1", resp.Events[0].EventID)
	suite.Equal(string(domain.ActionMatchApproved), resp.Events[0].Action)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(nextToken, *resp.NextToken)
}

func TestAuditServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceTestSuite))
}
