package models

import "time"

// MatchStatus mirrors domain.MatchStatus at the persistence layer.
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchApproved MatchStatus = "APPROVED"
	MatchRejected MatchStatus = "REJECTED"
)

// MatchRecord is the persisted form of a match record. The referenced item
// ids live in the match_items table; a partial unique index on active rows
// enforces the at-most-one-claim invariant.
type MatchRecord struct {
	MatchID         string      `db:"match_id"`
	Rule            string      `db:"match_rule"`
	Confidence      float64     `db:"confidence"`
	Status          MatchStatus `db:"status"`
	RejectionReason string      `db:"rejection_reason"`
	ApprovedBy      *string     `db:"approved_by"`
	ApprovedAt      *time.Time  `db:"approved_at"`
	AuditFields
}

// MatchItemSide marks which feed a claimed item belongs to.
type MatchItemSide string

const (
	SideBank   MatchItemSide = "BANK"
	SideLedger MatchItemSide = "LEDGER"
)

// MatchItem is one claimed item row of a match record.
type MatchItem struct {
	MatchID  string        `db:"match_id"`
	ItemID   string        `db:"item_id"`
	Side     MatchItemSide `db:"side"`
	Position int           `db:"position"` // preserves candidate ordering
	Active   bool          `db:"active"`   // false once the match is rejected
}
