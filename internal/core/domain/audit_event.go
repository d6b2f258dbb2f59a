package domain

import "time"

// AuditAction names a state-changing operation recorded in the audit trail.
type AuditAction string

const (
	ActionMatchCreated           AuditAction = "MATCH_CREATED"
	ActionMatchApproved          AuditAction = "MATCH_APPROVED"
	ActionMatchRejected          AuditAction = "MATCH_REJECTED"
	ActionExceptionOpened        AuditAction = "EXCEPTION_OPENED"
	ActionExceptionStatusChanged AuditAction = "EXCEPTION_STATUS_CHANGED"
	ActionExceptionReassigned    AuditAction = "EXCEPTION_REASSIGNED"
	ActionStatementBatchImported AuditAction = "STATEMENT_BATCH_IMPORTED"
	ActionLedgerBatchImported    AuditAction = "LEDGER_BATCH_IMPORTED"
	ActionUserCreated            AuditAction = "USER_CREATED"
	ActionUserUpdated            AuditAction = "USER_UPDATED"
	ActionUserDeactivated        AuditAction = "USER_DEACTIVATED"
)

// AuditEntity names the entity type an audit event concerns.
type AuditEntity string

const (
	EntityMatchRecord       AuditEntity = "MATCH_RECORD"
	EntityException         AuditEntity = "EXCEPTION"
	EntityBankStatementLine AuditEntity = "BANK_STATEMENT_LINE"
	EntityLedgerEntry       AuditEntity = "LEDGER_ENTRY"
	EntityUser              AuditEntity = "USER"
)

// AuditEvent is one append-only record of a state-changing operation. Events
// are write-once: never mutated, never deleted. Every committed mutation to a
// reconciliation entity produces exactly one event in the same transaction.
type AuditEvent struct {
	EventID   string      `json:"eventID"` // Primary Key (e.g., UUID)
	UserID    string      `json:"userID"`
	Action    AuditAction `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
	Entity    AuditEntity `json:"entity"`
	EntityID  string      `json:"entityID"`
	OldValue  *string     `json:"oldValue,omitempty"` // JSON snapshot before the mutation
	NewValue  *string     `json:"newValue,omitempty"` // JSON snapshot after the mutation
}

// AuditFilter narrows audit trail queries. Nil fields mean "all".
type AuditFilter struct {
	UserID   *string
	Action   *AuditAction
	Entity   *AuditEntity
	EntityID *string
	From     *time.Time
	To       *time.Time
}
