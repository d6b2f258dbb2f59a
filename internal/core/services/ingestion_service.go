package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/google/uuid"
)

type ingestionService struct {
	BaseService
	statementRepo portsrepo.StatementRepositoryFacade
	ledgerRepo    portsrepo.LedgerRepositoryFacade
	auditSvc      portssvc.AuditSvcFacade
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(statementRepo portsrepo.StatementRepositoryFacade, ledgerRepo portsrepo.LedgerRepositoryFacade, auditSvc portssvc.AuditSvcFacade) portssvc.IngestionSvcFacade {
	return &ingestionService{
		statementRepo: statementRepo,
		ledgerRepo:    ledgerRepo,
		auditSvc:      auditSvc,
	}
}

// Ensure ingestionService implements portssvc.IngestionSvcFacade
var _ portssvc.IngestionSvcFacade = (*ingestionService)(nil)

// ImportStatementLines persists an already-parsed batch of statement lines as
// UNMATCHED. The whole batch lands with one STATEMENT_BATCH_IMPORTED audit
// event in the same transaction.
func (s *ingestionService) ImportStatementLines(ctx context.Context, req dto.ImportStatementLinesRequest, userID string) (int, error) {
	now := time.Now().UTC()
	lines := make([]domain.BankStatementLine, len(req.Lines))
	for i, input := range req.Lines {
		lines[i] = domain.BankStatementLine{
			LineID:       uuid.NewString(),
			AccountNo:    input.AccountNo,
			Date:         input.Date,
			Description:  input.Description,
			Amount:       input.Amount,
			CurrencyCode: input.CurrencyCode,
			SourceFile:   req.SourceFile,
			Status:       domain.ItemUnmatched,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	audit := s.auditSvc.NewEvent(userID, domain.ActionStatementBatchImported, domain.EntityBankStatementLine, req.SourceFile,
		nil, map[string]int{"lines": len(lines)})

	if err := s.statementRepo.SaveLines(ctx, lines, audit); err != nil {
		s.LogError(ctx, err, "failed to import statement lines", slog.String("source_file", req.SourceFile))
		return 0, fmt.Errorf("failed to import statement lines: %w", err)
	}

	s.LogInfo(ctx, "statement batch imported",
		slog.String("source_file", req.SourceFile),
		slog.Int("lines", len(lines)))
	return len(lines), nil
}

// ImportLedgerEntries persists an already-parsed batch of ledger entries as
// UNMATCHED, with one LEDGER_BATCH_IMPORTED audit event.
func (s *ingestionService) ImportLedgerEntries(ctx context.Context, req dto.ImportLedgerEntriesRequest, userID string) (int, error) {
	now := time.Now().UTC()
	entries := make([]domain.LedgerEntry, len(req.Entries))
	for i, input := range req.Entries {
		entries[i] = domain.LedgerEntry{
			EntryID:      uuid.NewString(),
			GLAccount:    input.GLAccount,
			Date:         input.Date,
			Description:  input.Description,
			Amount:       input.Amount,
			CurrencyCode: input.CurrencyCode,
			SourceSystem: req.SourceSystem,
			Status:       domain.ItemUnmatched,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	audit := s.auditSvc.NewEvent(userID, domain.ActionLedgerBatchImported, domain.EntityLedgerEntry, req.SourceSystem,
		nil, map[string]int{"entries": len(entries)})

	if err := s.ledgerRepo.SaveEntries(ctx, entries, audit); err != nil {
		s.LogError(ctx, err, "failed to import ledger entries", slog.String("source_system", req.SourceSystem))
		return 0, fmt.Errorf("failed to import ledger entries: %w", err)
	}

	s.LogInfo(ctx, "ledger batch imported",
		slog.String("source_system", req.SourceSystem),
		slog.Int("entries", len(entries)))
	return len(entries), nil
}

func (s *ingestionService) ListStatementLines(ctx context.Context, params dto.ListItemsParams) (*dto.ListStatementLinesResponse, error) {
	filter := domain.ItemFilter{
		Status:       params.Status,
		CurrencyCode: params.CurrencyCode,
		DateFrom:     params.DateFrom,
		DateTo:       params.DateTo,
		Search:       params.Search,
	}
	lines, nextToken, err := s.statementRepo.ListLines(ctx, filter, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "failed to list statement lines")
		return nil, fmt.Errorf("failed to list statement lines: %w", err)
	}
	resp := &dto.ListStatementLinesResponse{
		Lines:     make([]dto.StatementLineResponse, len(lines)),
		NextToken: nextToken,
	}
	for i := range lines {
		resp.Lines[i] = dto.ToStatementLineResponse(&lines[i])
	}
	return resp, nil
}

func (s *ingestionService) ListLedgerEntries(ctx context.Context, params dto.ListItemsParams) (*dto.ListLedgerEntriesResponse, error) {
	filter := domain.ItemFilter{
		Status:       params.Status,
		CurrencyCode: params.CurrencyCode,
		DateFrom:     params.DateFrom,
		DateTo:       params.DateTo,
		Search:       params.Search,
	}
	entries, nextToken, err := s.ledgerRepo.ListEntries(ctx, filter, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "failed to list ledger entries")
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	resp := &dto.ListLedgerEntriesResponse{
		Entries:   make([]dto.LedgerEntryResponse, len(entries)),
		NextToken: nextToken,
	}
	for i := range entries {
		resp.Entries[i] = dto.ToLedgerEntryResponse(&entries[i])
	}
	return resp, nil
}
