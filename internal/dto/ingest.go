package dto

import (
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// StatementLineInput is one already-parsed bank statement line delivered by
// the ingestion collaborator. The core never parses raw files.
type StatementLineInput struct {
	AccountNo    string          `json:"accountNo" binding:"required"`
	Date         time.Time       `json:"date" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,len=3"`
}

// ImportStatementLinesRequest delivers a parsed batch of statement lines.
type ImportStatementLinesRequest struct {
	SourceFile string               `json:"sourceFile" binding:"required"`
	Lines      []StatementLineInput `json:"lines" binding:"required,min=1,dive"`
}

// LedgerEntryInput is one already-parsed general ledger entry.
type LedgerEntryInput struct {
	GLAccount    string          `json:"glAccount" binding:"required"`
	Date         time.Time       `json:"date" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,len=3"`
}

// ImportLedgerEntriesRequest delivers a parsed batch of ledger entries.
type ImportLedgerEntriesRequest struct {
	SourceSystem string             `json:"sourceSystem" binding:"required"`
	Entries      []LedgerEntryInput `json:"entries" binding:"required,min=1,dive"`
}

// ImportResponse reports how many records a batch import persisted.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ListItemsParams holds parameters for listing statement lines or ledger entries.
type ListItemsParams struct {
	Status       *domain.ItemStatus
	CurrencyCode *string
	Search       *string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	NextToken    *string
}

// StatementLineResponse is the serializable representation of a statement line.
type StatementLineResponse struct {
	LineID       string          `json:"lineID"`
	AccountNo    string          `json:"accountNo"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	SourceFile   string          `json:"sourceFile"`
	Status       string          `json:"status"`
	MatchedWith  []string        `json:"matchedWith,omitempty"`
}

// ToStatementLineResponse converts a domain statement line to its response DTO.
func ToStatementLineResponse(l *domain.BankStatementLine) StatementLineResponse {
	return StatementLineResponse{
		LineID:       l.LineID,
		AccountNo:    l.AccountNo,
		Date:         l.Date,
		Description:  l.Description,
		Amount:       l.Amount,
		CurrencyCode: l.CurrencyCode,
		SourceFile:   l.SourceFile,
		Status:       string(l.Status),
		MatchedWith:  l.MatchedWith,
	}
}

// LedgerEntryResponse is the serializable representation of a ledger entry.
type LedgerEntryResponse struct {
	EntryID      string          `json:"entryID"`
	GLAccount    string          `json:"glAccount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	SourceSystem string          `json:"sourceSystem"`
	Status       string          `json:"status"`
	MatchedWith  []string        `json:"matchedWith,omitempty"`
}

// ToLedgerEntryResponse converts a domain ledger entry to its response DTO.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:      e.EntryID,
		GLAccount:    e.GLAccount,
		Date:         e.Date,
		Description:  e.Description,
		Amount:       e.Amount,
		CurrencyCode: e.CurrencyCode,
		SourceSystem: e.SourceSystem,
		Status:       string(e.Status),
		MatchedWith:  e.MatchedWith,
	}
}

// ListStatementLinesResponse is a page of statement lines.
type ListStatementLinesResponse struct {
	Lines     []StatementLineResponse `json:"lines"`
	NextToken *string                 `json:"nextToken,omitempty"`
}

// ListLedgerEntriesResponse is a page of ledger entries.
type ListLedgerEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}
