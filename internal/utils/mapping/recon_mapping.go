package mapping

import (
	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/finopsd/recon_backend/internal/models"
)

// ToModelBankStatementLine converts a domain BankStatementLine to a model BankStatementLine
func ToModelBankStatementLine(d domain.BankStatementLine) models.BankStatementLine {
	return models.BankStatementLine{
		LineID:       d.LineID,
		AccountNo:    d.AccountNo,
		Date:         d.Date,
		Description:  d.Description,
		Amount:       d.Amount,
		CurrencyCode: d.CurrencyCode,
		SourceFile:   d.SourceFile,
		Status:       models.ItemStatus(d.Status),
		MatchedWith:  d.MatchedWith,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainBankStatementLine converts a model BankStatementLine to a domain BankStatementLine
func ToDomainBankStatementLine(m models.BankStatementLine) domain.BankStatementLine {
	return domain.BankStatementLine{
		LineID:       m.LineID,
		AccountNo:    m.AccountNo,
		Date:         m.Date,
		Description:  m.Description,
		Amount:       m.Amount,
		CurrencyCode: m.CurrencyCode,
		SourceFile:   m.SourceFile,
		Status:       domain.ItemStatus(m.Status),
		MatchedWith:  m.MatchedWith,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainBankStatementLineSlice converts a slice of model BankStatementLines to a slice of domain BankStatementLines
func ToDomainBankStatementLineSlice(ms []models.BankStatementLine) []domain.BankStatementLine {
	ds := make([]domain.BankStatementLine, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainBankStatementLine(m)
	}
	return ds
}

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:      d.EntryID,
		GLAccount:    d.GLAccount,
		Date:         d.Date,
		Description:  d.Description,
		Amount:       d.Amount,
		CurrencyCode: d.CurrencyCode,
		SourceSystem: d.SourceSystem,
		Status:       models.ItemStatus(d.Status),
		MatchedWith:  d.MatchedWith,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:      m.EntryID,
		GLAccount:    m.GLAccount,
		Date:         m.Date,
		Description:  m.Description,
		Amount:       m.Amount,
		CurrencyCode: m.CurrencyCode,
		SourceSystem: m.SourceSystem,
		Status:       domain.ItemStatus(m.Status),
		MatchedWith:  m.MatchedWith,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainLedgerEntrySlice converts a slice of model LedgerEntries to a slice of domain LedgerEntries
func ToDomainLedgerEntrySlice(ms []models.LedgerEntry) []domain.LedgerEntry {
	ds := make([]domain.LedgerEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLedgerEntry(m)
	}
	return ds
}

// ToModelMatchRecord converts a domain MatchRecord to a model MatchRecord.
// The claimed item ids travel separately as match_items rows.
func ToModelMatchRecord(d domain.MatchRecord) models.MatchRecord {
	return models.MatchRecord{
		MatchID:         d.MatchID,
		Rule:            string(d.Rule),
		Confidence:      d.Confidence,
		Status:          models.MatchStatus(d.Status),
		RejectionReason: d.RejectionReason,
		ApprovedBy:      d.ApprovedBy,
		ApprovedAt:      d.ApprovedAt,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainMatchRecord converts a model MatchRecord and its item rows to a
// domain MatchRecord. Item rows must be ordered by position.
func ToDomainMatchRecord(m models.MatchRecord, items []models.MatchItem) domain.MatchRecord {
	d := domain.MatchRecord{
		MatchID:         m.MatchID,
		Rule:            domain.MatchRule(m.Rule),
		Confidence:      m.Confidence,
		Status:          domain.MatchStatus(m.Status),
		RejectionReason: m.RejectionReason,
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
	for _, item := range items {
		switch item.Side {
		case models.SideBank:
			d.BankLineIDs = append(d.BankLineIDs, item.ItemID)
		case models.SideLedger:
			d.LedgerEntryIDs = append(d.LedgerEntryIDs, item.ItemID)
		}
	}
	return d
}

// ToModelMatchItems expands a domain MatchRecord into its match_items rows.
func ToModelMatchItems(d domain.MatchRecord) []models.MatchItem {
	items := make([]models.MatchItem, 0, len(d.BankLineIDs)+len(d.LedgerEntryIDs))
	for i, id := range d.BankLineIDs {
		items = append(items, models.MatchItem{
			MatchID:  d.MatchID,
			ItemID:   id,
			Side:     models.SideBank,
			Position: i,
			Active:   true,
		})
	}
	for i, id := range d.LedgerEntryIDs {
		items = append(items, models.MatchItem{
			MatchID:  d.MatchID,
			ItemID:   id,
			Side:     models.SideLedger,
			Position: i,
			Active:   true,
		})
	}
	return items
}

// ToModelException converts a domain Exception to a model Exception
func ToModelException(d domain.Exception) models.Exception {
	return models.Exception{
		ExceptionID:   d.ExceptionID,
		TransactionID: d.TransactionID,
		Type:          string(d.Type),
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		Note:          d.Note,
		AssignedTo:    d.AssignedTo,
		Status:        models.ExceptionStatus(d.Status),
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainException converts a model Exception to a domain Exception
func ToDomainException(m models.Exception) domain.Exception {
	return domain.Exception{
		ExceptionID:   m.ExceptionID,
		TransactionID: m.TransactionID,
		Type:          domain.ExceptionType(m.Type),
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Note:          m.Note,
		AssignedTo:    m.AssignedTo,
		Status:        domain.ExceptionStatus(m.Status),
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainExceptionSlice converts a slice of model Exceptions to a slice of domain Exceptions
func ToDomainExceptionSlice(ms []models.Exception) []domain.Exception {
	ds := make([]domain.Exception, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainException(m)
	}
	return ds
}

// ToModelAuditEvent converts a domain AuditEvent to a model AuditEvent
func ToModelAuditEvent(d domain.AuditEvent) models.AuditEvent {
	return models.AuditEvent{
		EventID:   d.EventID,
		UserID:    d.UserID,
		Action:    string(d.Action),
		Timestamp: d.Timestamp,
		Entity:    string(d.Entity),
		EntityID:  d.EntityID,
		OldValue:  d.OldValue,
		NewValue:  d.NewValue,
	}
}

// ToDomainAuditEvent converts a model AuditEvent to a domain AuditEvent
func ToDomainAuditEvent(m models.AuditEvent) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:   m.EventID,
		UserID:    m.UserID,
		Action:    domain.AuditAction(m.Action),
		Timestamp: m.Timestamp,
		Entity:    domain.AuditEntity(m.Entity),
		EntityID:  m.EntityID,
		OldValue:  m.OldValue,
		NewValue:  m.NewValue,
	}
}

// ToDomainAuditEventSlice converts a slice of model AuditEvents to a slice of domain AuditEvents
func ToDomainAuditEventSlice(ms []models.AuditEvent) []domain.AuditEvent {
	ds := make([]domain.AuditEvent, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainAuditEvent(m)
	}
	return ds
}
