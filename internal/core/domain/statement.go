package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus is the lifecycle status of a bank statement line or ledger entry.
// Items are never deleted, only status-transitioned.
type ItemStatus string

const (
	ItemUnmatched ItemStatus = "UNMATCHED"
	ItemMatched   ItemStatus = "MATCHED"
	ItemException ItemStatus = "EXCEPTION"
)

// Valid reports whether the status is one of the known item statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemUnmatched, ItemMatched, ItemException:
		return true
	}
	return false
}

// BankStatementLine is a single line from an ingested bank statement.
// Created by the ingestion boundary with status UNMATCHED; mutated only by the
// matching engine and approval workflow.
type BankStatementLine struct {
	LineID       string          `json:"lineID"` // Primary Key (e.g., UUID)
	AccountNo    string          `json:"accountNo"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"` // Signed; precise decimal type
	CurrencyCode string          `json:"currencyCode"`
	SourceFile   string          `json:"sourceFile"`
	Status       ItemStatus      `json:"status"`
	MatchedWith  []string        `json:"matchedWith,omitempty"` // MatchRecord IDs (set on approval)
	AuditFields
}

// LedgerEntry is a single entry from the general ledger. Same lifecycle rules
// as BankStatementLine.
type LedgerEntry struct {
	EntryID      string          `json:"entryID"` // Primary Key (e.g., UUID)
	GLAccount    string          `json:"glAccount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	SourceSystem string          `json:"sourceSystem"`
	Status       ItemStatus      `json:"status"`
	MatchedWith  []string        `json:"matchedWith,omitempty"`
	AuditFields
}

// ItemFilter narrows statement line / ledger entry queries. Nil fields mean "all".
type ItemFilter struct {
	Status       *ItemStatus
	AccountNo    *string // bank side only
	GLAccount    *string // ledger side only
	CurrencyCode *string
	DateFrom     *time.Time
	DateTo       *time.Time
	Search       *string // matches description or account identifier
}
