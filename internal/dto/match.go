package dto

import (
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// RunAutoMatchRequest narrows an auto-match run. All fields optional; an empty
// request means "all unmatched items".
type RunAutoMatchRequest struct {
	AccountNo    *string    `json:"accountNo,omitempty"`
	GLAccount    *string    `json:"glAccount,omitempty"`
	CurrencyCode *string    `json:"currencyCode,omitempty"`
	DateFrom     *time.Time `json:"dateFrom,omitempty"`
	DateTo       *time.Time `json:"dateTo,omitempty"`
}

// ToScope converts the request into a domain match scope.
func (r RunAutoMatchRequest) ToScope() domain.MatchScope {
	return domain.MatchScope{
		AccountNo:    r.AccountNo,
		GLAccount:    r.GLAccount,
		CurrencyCode: r.CurrencyCode,
		DateFrom:     r.DateFrom,
		DateTo:       r.DateTo,
	}
}

// CreateManualMatchRequest creates a match bypassing the rule evaluator.
type CreateManualMatchRequest struct {
	BankLineIDs    []string `json:"bankLineIDs" binding:"required,min=1"`
	LedgerEntryIDs []string `json:"ledgerEntryIDs" binding:"required,min=1"`
}

// RejectMatchRequest rejects a pending match. ProblemType, when set, indicates
// the rejection reason is a data problem and opens an exception for the items.
type RejectMatchRequest struct {
	Reason      string                `json:"reason" binding:"required"`
	ProblemType *domain.ExceptionType `json:"problemType,omitempty"`
}

// BulkApproveRequest approves a set of pending matches, each individually.
type BulkApproveRequest struct {
	MatchIDs []string `json:"matchIDs" binding:"required,min=1"`
}

// BulkApproveResult reports the outcome of one match in a bulk approval.
type BulkApproveResult struct {
	MatchID string `json:"matchID"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MatchResponse is the serializable representation of a match record.
type MatchResponse struct {
	MatchID         string     `json:"matchID"`
	BankLineIDs     []string   `json:"bankLineIDs"`
	LedgerEntryIDs  []string   `json:"ledgerEntryIDs"`
	MatchRule       string     `json:"matchRule"`
	Confidence      float64    `json:"confidence"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	ApprovedBy      *string    `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
}

// ToMatchResponse converts a domain match record to its response DTO.
func ToMatchResponse(m *domain.MatchRecord) MatchResponse {
	return MatchResponse{
		MatchID:         m.MatchID,
		BankLineIDs:     m.BankLineIDs,
		LedgerEntryIDs:  m.LedgerEntryIDs,
		MatchRule:       string(m.Rule),
		Confidence:      m.Confidence,
		Status:          string(m.Status),
		RejectionReason: m.RejectionReason,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
	}
}

// ListMatchesParams holds parameters for listing match records.
type ListMatchesParams struct {
	Status    *domain.MatchStatus
	Limit     int
	NextToken *string
}

// ListMatchesResponse is a page of match records.
type ListMatchesResponse struct {
	Matches   []MatchResponse `json:"matches"`
	NextToken *string         `json:"nextToken,omitempty"`
}
