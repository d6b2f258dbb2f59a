package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus mirrors domain.ItemStatus at the persistence layer.
type ItemStatus string

const (
	ItemUnmatched ItemStatus = "UNMATCHED"
	ItemMatched   ItemStatus = "MATCHED"
	ItemException ItemStatus = "EXCEPTION"
)

// BankStatementLine is the persisted form of a bank statement line.
// MatchedWith is stored as a text array column.
type BankStatementLine struct {
	LineID       string          `db:"line_id"`
	AccountNo    string          `db:"account_no"`
	Date         time.Time       `db:"line_date"`
	Description  string          `db:"description"`
	Amount       decimal.Decimal `db:"amount"`
	CurrencyCode string          `db:"currency_code"`
	SourceFile   string          `db:"source_file"`
	Status       ItemStatus      `db:"status"`
	MatchedWith  []string        `db:"matched_with"`
	AuditFields
}

// LedgerEntry is the persisted form of a general-ledger entry.
type LedgerEntry struct {
	EntryID      string          `db:"entry_id"`
	GLAccount    string          `db:"gl_account"`
	Date         time.Time       `db:"entry_date"`
	Description  string          `db:"description"`
	Amount       decimal.Decimal `db:"amount"`
	CurrencyCode string          `db:"currency_code"`
	SourceSystem string          `db:"source_system"`
	Status       ItemStatus      `db:"status"`
	MatchedWith  []string        `db:"matched_with"`
	AuditFields
}
