package dto

import (
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateExceptionRequest opens a new exception for an unmatched transaction.
type CreateExceptionRequest struct {
	TransactionID string               `json:"transactionID" binding:"required"`
	Type          domain.ExceptionType `json:"type" binding:"required,oneof=timing_difference missing_entry bank_fee other"`
	Amount        decimal.Decimal      `json:"amount"`
	CurrencyCode  string               `json:"currencyCode" binding:"required,len=3"`
	Note          string               `json:"note"`
	AssignedTo    string               `json:"assignedTo"`
}

// TransitionExceptionRequest moves an exception through its lifecycle.
type TransitionExceptionRequest struct {
	Status domain.ExceptionStatus `json:"status" binding:"required,oneof=OPEN INVESTIGATING RESOLVED"`
	Note   string                 `json:"note"`
}

// ReassignExceptionRequest changes the exception assignee.
type ReassignExceptionRequest struct {
	AssignedTo string `json:"assignedTo" binding:"required"`
}

// ExceptionResponse is the serializable representation of an exception.
// AgingDays and Priority are derived at read time.
type ExceptionResponse struct {
	ExceptionID   string          `json:"exceptionID"`
	TransactionID string          `json:"transactionID"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	Note          string          `json:"note"`
	AssignedTo    string          `json:"assignedTo"`
	Status        string          `json:"status"`
	AgingDays     int             `json:"agingDays"`
	Priority      string          `json:"priority"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
}

// ToExceptionResponse converts a domain exception, deriving aging against now
// and priority against the supplied day thresholds.
func ToExceptionResponse(e *domain.Exception, now time.Time, mediumDays, highDays int) ExceptionResponse {
	aging := e.AgingDays(now)
	priority := domain.PriorityLow
	switch {
	case aging >= highDays:
		priority = domain.PriorityHigh
	case aging >= mediumDays:
		priority = domain.PriorityMedium
	}
	return ExceptionResponse{
		ExceptionID:   e.ExceptionID,
		TransactionID: e.TransactionID,
		Type:          string(e.Type),
		Amount:        e.Amount,
		CurrencyCode:  e.CurrencyCode,
		Note:          e.Note,
		AssignedTo:    e.AssignedTo,
		Status:        string(e.Status),
		AgingDays:     aging,
		Priority:      string(priority),
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
	}
}

// ListExceptionsParams holds parameters for listing exceptions.
type ListExceptionsParams struct {
	Type       *domain.ExceptionType
	Status     *domain.ExceptionStatus
	AssignedTo *string
	Limit      int
	NextToken  *string
}

// ListExceptionsResponse is a page of exceptions.
type ListExceptionsResponse struct {
	Exceptions []ExceptionResponse `json:"exceptions"`
	NextToken  *string             `json:"nextToken,omitempty"`
}
