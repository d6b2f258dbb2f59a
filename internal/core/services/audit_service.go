package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/google/uuid"
)

type auditService struct {
	BaseService
	auditRepo portsrepo.AuditRepositoryFacade
}

// NewAuditService creates a new audit service.
func NewAuditService(auditRepo portsrepo.AuditRepositoryFacade) portssvc.AuditSvcFacade {
	return &auditService{auditRepo: auditRepo}
}

// Ensure auditService implements portssvc.AuditSvcFacade
var _ portssvc.AuditSvcFacade = (*auditService)(nil)

// NewEvent builds an audit event for a mutation, serializing old/new snapshots
// to JSON. The caller hands the event to the repository write that performs
// the mutation so both commit in the same transaction.
func (s *auditService) NewEvent(userID string, action domain.AuditAction, entity domain.AuditEntity, entityID string, oldValue, newValue any) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Entity:    entity,
		EntityID:  entityID,
		OldValue:  marshalSnapshot(oldValue),
		NewValue:  marshalSnapshot(newValue),
	}
}

// Record appends a standalone audit event outside any other write path.
func (s *auditService) Record(ctx context.Context, event domain.AuditEvent) error {
	if err := s.auditRepo.AppendAuditEvent(ctx, event); err != nil {
		s.LogError(ctx, err, "failed to append audit event",
			slog.String("action", string(event.Action)),
			slog.String("entity_id", event.EntityID))
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListAuditTrail retrieves a filtered page of the audit trail, newest first.
func (s *auditService) ListAuditTrail(ctx context.Context, params dto.ListAuditParams) (*dto.ListAuditResponse, error) {
	filter := domain.AuditFilter{
		UserID:   params.UserID,
		Action:   params.Action,
		Entity:   params.Entity,
		EntityID: params.EntityID,
		From:     params.From,
		To:       params.To,
	}
	events, nextToken, err := s.auditRepo.ListAuditEvents(ctx, filter, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "failed to list audit events")
		return nil, fmt.Errorf("failed to list audit trail: %w", err)
	}

	resp := &dto.ListAuditResponse{
		Events:    make([]dto.AuditEventResponse, len(events)),
		NextToken: nextToken,
	}
	for i := range events {
		resp.Events[i] = dto.ToAuditEventResponse(&events[i])
	}
	return resp, nil
}

// marshalSnapshot serializes a state snapshot for the old/new value columns.
// A nil input stays nil; marshal failures degrade to a placeholder rather than
// blocking the mutation the event describes.
func marshalSnapshot(v any) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		placeholder := fmt.Sprintf("%q", fmt.Sprintf("%+v", v))
		return &placeholder
	}
	str := string(data)
	return &str
}
