package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExceptionType classifies why a transaction could not be matched.
type ExceptionType string

const (
	ExceptionTimingDifference ExceptionType = "timing_difference"
	ExceptionMissingEntry     ExceptionType = "missing_entry"
	ExceptionBankFee          ExceptionType = "bank_fee"
	ExceptionOther            ExceptionType = "other"
)

// Valid reports whether the type is one of the known exception types.
func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionTimingDifference, ExceptionMissingEntry, ExceptionBankFee, ExceptionOther:
		return true
	}
	return false
}

// ExceptionStatus is the lifecycle state of an exception. RESOLVED is terminal;
// reopening means creating a new exception, never resurrecting a resolved one.
type ExceptionStatus string

const (
	ExceptionOpen          ExceptionStatus = "OPEN"
	ExceptionInvestigating ExceptionStatus = "INVESTIGATING"
	ExceptionResolved      ExceptionStatus = "RESOLVED"
)

// Valid reports whether the status is one of the known exception statuses.
func (s ExceptionStatus) Valid() bool {
	switch s {
	case ExceptionOpen, ExceptionInvestigating, ExceptionResolved:
		return true
	}
	return false
}

// ExceptionPriority is derived from aging at read time; it drives sorting and
// highlighting, never state transitions.
type ExceptionPriority string

const (
	PriorityLow    ExceptionPriority = "LOW"
	PriorityMedium ExceptionPriority = "MEDIUM"
	PriorityHigh   ExceptionPriority = "HIGH"
)

// Exception tracks an unmatched bank line or ledger entry that failed matching
// past policy. Resolved exceptions are retained for audit.
type Exception struct {
	ExceptionID   string          `json:"exceptionID"` // Primary Key (e.g., UUID)
	TransactionID string          `json:"transactionID"`
	Type          ExceptionType   `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	Note          string          `json:"note"`
	AssignedTo    string          `json:"assignedTo"`
	Status        ExceptionStatus `json:"status"`
	AuditFields
}

// AgingDays returns whole days elapsed since creation. Computed on read, never
// stored, so it cannot drift.
func (e Exception) AgingDays(now time.Time) int {
	age := now.Sub(e.CreatedAt)
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}

// CanTransitionTo reports whether the exception state machine permits moving to
// the target status. OPEN -> INVESTIGATING -> RESOLVED, with OPEN -> RESOLVED
// allowed for fast resolution.
func (e Exception) CanTransitionTo(target ExceptionStatus) bool {
	switch e.Status {
	case ExceptionOpen:
		return target == ExceptionInvestigating || target == ExceptionResolved
	case ExceptionInvestigating:
		return target == ExceptionResolved
	default:
		return false
	}
}

// ExceptionFilter narrows exception queries. Nil fields mean "all".
type ExceptionFilter struct {
	Type          *ExceptionType
	Status        *ExceptionStatus
	AssignedTo    *string
	TransactionID *string
}
