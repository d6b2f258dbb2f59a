package dto

import (
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// ListAuditParams holds filter parameters for the audit trail.
type ListAuditParams struct {
	UserID    *string
	Action    *domain.AuditAction
	Entity    *domain.AuditEntity
	EntityID  *string
	From      *time.Time
	To        *time.Time
	Limit     int
	NextToken *string
}

// AuditEventResponse is the serializable representation of one audit event.
type AuditEventResponse struct {
	EventID   string    `json:"eventID"`
	UserID    string    `json:"userID"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityID"`
	OldValue  *string   `json:"oldValue,omitempty"`
	NewValue  *string   `json:"newValue,omitempty"`
}

// ToAuditEventResponse converts a domain audit event to its response DTO.
func ToAuditEventResponse(e *domain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		EventID:   e.EventID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Timestamp: e.Timestamp,
		Entity:    string(e.Entity),
		EntityID:  e.EntityID,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
	}
}

// ListAuditResponse is a page of audit events, newest first.
type ListAuditResponse struct {
	Events    []AuditEventResponse `json:"events"`
	NextToken *string              `json:"nextToken,omitempty"`
}
