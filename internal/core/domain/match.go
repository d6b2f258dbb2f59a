package domain

import "time"

// MatchStatus is the lifecycle state of a match record. APPROVED and REJECTED
// are terminal; a rejected record is retained for history but its items are
// freed for re-matching.
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchApproved MatchStatus = "APPROVED"
	MatchRejected MatchStatus = "REJECTED"
)

// Valid reports whether the status is one of the known match statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchApproved, MatchRejected:
		return true
	}
	return false
}

// MatchRule identifies which rule produced a match.
type MatchRule string

const (
	RuleExactMatch      MatchRule = "exact_match"
	RuleAmountTolerance MatchRule = "amount_tolerance"
	RuleReferenceMatch  MatchRule = "reference_match"
	RuleManual          MatchRule = "manual"
)

// MatchRecord groups one or more bank statement lines with one or more ledger
// entries representing the same cash movement. Items referenced by a PENDING or
// APPROVED record may not be claimed by any other record.
type MatchRecord struct {
	MatchID         string      `json:"matchID"` // Primary Key (e.g., UUID)
	BankLineIDs     []string    `json:"bankLineIDs"`
	LedgerEntryIDs  []string    `json:"ledgerEntryIDs"`
	Rule            MatchRule   `json:"matchRule"`
	Confidence      float64     `json:"confidence"` // 0 for manual matches
	Status          MatchStatus `json:"status"`
	RejectionReason string      `json:"rejectionReason,omitempty"`
	ApprovedBy      *string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time  `json:"approvedAt,omitempty"`
	AuditFields
}

// MatchProposal is the successful output of the rule evaluator: a candidate
// grouping that satisfied a rule, before it is persisted as a pending record.
type MatchProposal struct {
	BankLineIDs    []string
	LedgerEntryIDs []string
	Rule           MatchRule
	Confidence     float64
}

// MatchScope narrows an auto-match run. Nil fields mean "all".
type MatchScope struct {
	AccountNo    *string
	GLAccount    *string
	CurrencyCode *string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// MatchRunSummary reports the outcome of one RunAutoMatch invocation.
type MatchRunSummary struct {
	LinesExamined    int      `json:"linesExamined"`
	MatchesProposed  int      `json:"matchesProposed"`
	ExceptionsOpened int      `json:"exceptionsOpened"`
	SkippedLineIDs   []string `json:"skippedLineIDs,omitempty"` // lost claim races past the retry budget
}
