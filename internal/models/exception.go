package models

import "github.com/shopspring/decimal"

// ExceptionStatus mirrors domain.ExceptionStatus at the persistence layer.
type ExceptionStatus string

const (
	ExceptionOpen          ExceptionStatus = "OPEN"
	ExceptionInvestigating ExceptionStatus = "INVESTIGATING"
	ExceptionResolved      ExceptionStatus = "RESOLVED"
)

// Exception is the persisted form of a reconciliation exception. Aging is
// derived at read time and has no column.
type Exception struct {
	ExceptionID   string          `db:"exception_id"`
	TransactionID string          `db:"transaction_id"`
	Type          string          `db:"exception_type"`
	Amount        decimal.Decimal `db:"amount"`
	CurrencyCode  string          `db:"currency_code"`
	Note          string          `db:"note"`
	AssignedTo    string          `db:"assigned_to"`
	Status        ExceptionStatus `db:"status"`
	AuditFields
}
