package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	portsrepo "github.com/finopsd/recon_backend/internal/core/ports/repositories"
	portssvc "github.com/finopsd/recon_backend/internal/core/ports/services"
	"github.com/finopsd/recon_backend/internal/dto"
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/finopsd/recon_backend/internal/platform/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxCandidatesPerLine caps how many pre-filtered ledger entries are
// considered for one bank line. Candidates are ordered by the tie-break
// preference first, so the cap drops only the least plausible ones.
const maxCandidatesPerLine = 16

type matchingService struct {
	BaseService
	matchRepo     portsrepo.MatchRepositoryFacade
	statementRepo portsrepo.StatementRepositoryFacade
	ledgerRepo    portsrepo.LedgerRepositoryFacade
	auditSvc      portssvc.AuditSvcFacade
	exceptionSvc  portssvc.ExceptionSvcFacade
	evaluator     *RuleEvaluator
	policy        config.MatchingPolicy
	metrics       *metrics.Metrics
}

// NewMatchingService creates a new matching service.
func NewMatchingService(
	matchRepo portsrepo.MatchRepositoryFacade,
	statementRepo portsrepo.StatementRepositoryFacade,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	auditSvc portssvc.AuditSvcFacade,
	exceptionSvc portssvc.ExceptionSvcFacade,
	evaluator *RuleEvaluator,
	policy config.MatchingPolicy,
	m *metrics.Metrics,
) portssvc.MatchingSvcFacade {
	return &matchingService{
		matchRepo:     matchRepo,
		statementRepo: statementRepo,
		ledgerRepo:    ledgerRepo,
		auditSvc:      auditSvc,
		exceptionSvc:  exceptionSvc,
		evaluator:     evaluator,
		policy:        policy,
		metrics:       m,
	}
}

// Ensure matchingService implements portssvc.MatchingSvcFacade
var _ portssvc.MatchingSvcFacade = (*matchingService)(nil)

// claimSet tracks items claimed during one auto-match run so parallel workers
// do not propose overlapping groups. The database claim index remains the
// authority across processes; this only avoids predictable conflicts in-run.
type claimSet struct {
	mu      sync.Mutex
	lines   map[string]bool
	entries map[string]bool
}

func newClaimSet() *claimSet {
	return &claimSet{lines: make(map[string]bool), entries: make(map[string]bool)}
}

func (c *claimSet) lineClaimed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[id]
}

func (c *claimSet) entryClaimed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id]
}

// tryClaim atomically claims all ids or none of them.
func (c *claimSet) tryClaim(lineIDs, entryIDs []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range lineIDs {
		if c.lines[id] {
			return false
		}
	}
	for _, id := range entryIDs {
		if c.entries[id] {
			return false
		}
	}
	for _, id := range lineIDs {
		c.lines[id] = true
	}
	for _, id := range entryIDs {
		c.entries[id] = true
	}
	return true
}

// release frees claims taken by tryClaim for a proposal that did not commit,
// so other groupings in the run can still use the items.
func (c *claimSet) release(lineIDs, entryIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range lineIDs {
		delete(c.lines, id)
	}
	for _, id := range entryIDs {
		delete(c.entries, id)
	}
}

// runTally accumulates the run summary across workers.
type runTally struct {
	mu      sync.Mutex
	summary domain.MatchRunSummary
}

func (t *runTally) examined()     { t.mu.Lock(); t.summary.LinesExamined++; t.mu.Unlock() }
func (t *runTally) proposed()     { t.mu.Lock(); t.summary.MatchesProposed++; t.mu.Unlock() }
func (t *runTally) excepted()     { t.mu.Lock(); t.summary.ExceptionsOpened++; t.mu.Unlock() }
func (t *runTally) skipped(id string) {
	t.mu.Lock()
	t.summary.SkippedLineIDs = append(t.summary.SkippedLineIDs, id)
	t.mu.Unlock()
}

// RunAutoMatch evaluates every unmatched statement line in scope against the
// rule catalog and creates pending match records for successful groupings.
// Each proposal commits in its own transaction, so cancelling the run between
// lines keeps already-committed proposals and stops future work only.
func (s *matchingService) RunAutoMatch(ctx context.Context, scope domain.MatchScope, runBy string) (*domain.MatchRunSummary, error) {
	start := time.Now()
	defer s.metrics.ObserveAutoMatch(start)

	lines, err := s.statementRepo.GetUnmatchedLines(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched statement lines: %w", err)
	}
	entries, err := s.ledgerRepo.GetUnmatchedEntries(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched ledger entries: %w", err)
	}

	s.LogInfo(ctx, "auto-match run starting",
		slog.Int("lines", len(lines)),
		slog.Int("entries", len(entries)),
		slog.String("run_by", runBy))

	claims := newClaimSet()
	tally := &runTally{}

	// Lines partition by currency; cross-currency groups are never valid, so
	// workers on different currencies cannot contend on ledger entries.
	buckets := make(map[string][]domain.BankStatementLine)
	for _, line := range lines {
		buckets[line.CurrencyCode] = append(buckets[line.CurrencyCode], line)
	}
	entriesByCurrency := make(map[string][]domain.LedgerEntry)
	for _, entry := range entries {
		entriesByCurrency[entry.CurrencyCode] = append(entriesByCurrency[entry.CurrencyCode], entry)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.MatchWorkers)
	for currency, bucket := range buckets {
		bucket := bucket
		candidates := entriesByCurrency[currency]
		g.Go(func() error {
			for i := range bucket {
				if err := gctx.Err(); err != nil {
					return err
				}
				s.processLine(gctx, bucket[i], bucket, candidates, claims, tally, runBy)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Cancellation keeps committed work; report what was done so far.
		tally.mu.Lock()
		summary := tally.summary
		tally.mu.Unlock()
		return &summary, err
	}

	tally.mu.Lock()
	summary := tally.summary
	tally.mu.Unlock()

	s.LogInfo(ctx, "auto-match run finished",
		slog.Int("lines_examined", summary.LinesExamined),
		slog.Int("matches_proposed", summary.MatchesProposed),
		slog.Int("exceptions_opened", summary.ExceptionsOpened),
		slog.Int("skipped", len(summary.SkippedLineIDs)))
	return &summary, nil
}

// processLine tries candidate groupings for one statement line in order of
// increasing complexity: 1:1, then 1:N, then N:1. The first accepted grouping
// becomes a pending match record; exhaustion hands the line to the exception
// manager.
func (s *matchingService) processLine(ctx context.Context, line domain.BankStatementLine, bucket []domain.BankStatementLine, allEntries []domain.LedgerEntry, claims *claimSet, tally *runTally, runBy string) {
	if claims.lineClaimed(line.LineID) {
		return
	}
	tally.examined()

	candidates := s.candidateEntries(line, allEntries, claims)
	conflictBudget := s.policy.ClaimRetries

	// 1:1
	for _, entry := range candidates {
		outcome := s.tryGroup(ctx, []domain.BankStatementLine{line}, []domain.LedgerEntry{entry}, claims, tally, runBy, &conflictBudget)
		if outcome != tryContinue {
			if outcome == trySkipLine {
				tally.skipped(line.LineID)
			}
			return
		}
	}

	// 1:N ledger groupings
	for size := 2; size <= s.policy.MaxGroupSize && size <= len(candidates); size++ {
		done := false
		combinations(len(candidates), size, func(idx []int) bool {
			group := make([]domain.LedgerEntry, size)
			for i, j := range idx {
				group[i] = candidates[j]
			}
			outcome := s.tryGroup(ctx, []domain.BankStatementLine{line}, group, claims, tally, runBy, &conflictBudget)
			if outcome != tryContinue {
				if outcome == trySkipLine {
					tally.skipped(line.LineID)
				}
				done = true
				return true
			}
			return false
		})
		if done {
			return
		}
	}

	// N:1 bank groupings against single entries
	partners := s.partnerLines(line, bucket, claims)
	for size := 1; size < s.policy.MaxGroupSize && size <= len(partners); size++ {
		done := false
		combinations(len(partners), size, func(idx []int) bool {
			group := make([]domain.BankStatementLine, 0, size+1)
			group = append(group, line)
			for _, j := range idx {
				group = append(group, partners[j])
			}
			for _, entry := range candidates {
				outcome := s.tryGroup(ctx, group, []domain.LedgerEntry{entry}, claims, tally, runBy, &conflictBudget)
				if outcome != tryContinue {
					if outcome == trySkipLine {
						tally.skipped(line.LineID)
					}
					done = true
					return true
				}
			}
			return false
		})
		if done {
			return
		}
	}

	s.handleUnmatchable(ctx, line, len(candidates) > 0, tally, runBy)
}

type tryOutcome int

const (
	tryContinue tryOutcome = iota // grouping not accepted, try the next one
	tryCommitted                  // pending match record created
	trySkipLine                   // conflict budget exhausted or line gone
	tryLineDone                   // line claimed elsewhere, nothing to report
)

// tryGroup evaluates one grouping and, when a rule accepts, persists the
// pending match record with its MATCH_CREATED audit event. A concurrent claim
// burns one unit of the per-line conflict budget.
func (s *matchingService) tryGroup(ctx context.Context, bank []domain.BankStatementLine, ledger []domain.LedgerEntry, claims *claimSet, tally *runTally, runBy string, conflictBudget *int) tryOutcome {
	proposal, err := s.evaluator.Evaluate(bank, ledger)
	if err != nil || proposal == nil {
		return tryContinue
	}

	if !claims.tryClaim(proposal.BankLineIDs, proposal.LedgerEntryIDs) {
		return tryContinue
	}

	record := s.newMatchRecord(proposal, runBy)
	audit := s.auditSvc.NewEvent(runBy, domain.ActionMatchCreated, domain.EntityMatchRecord, record.MatchID, nil, record)

	err = s.matchRepo.SaveMatch(ctx, record, audit)
	if err == nil {
		tally.proposed()
		s.metrics.IncrementMatchProposed(string(record.Rule))
		s.LogDebug(ctx, "pending match created",
			slog.String("match_id", record.MatchID),
			slog.String("rule", string(record.Rule)))
		return tryCommitted
	}

	// The proposal did not commit; free the in-run claims so other groupings
	// can still use the items.
	claims.release(proposal.BankLineIDs, proposal.LedgerEntryIDs)

	switch {
	case errors.Is(err, apperrors.ErrConcurrentClaim):
		s.metrics.ClaimConflicts.Inc()
		*conflictBudget--
		if *conflictBudget < 0 {
			return trySkipLine
		}
		return tryContinue
	case errors.Is(err, apperrors.ErrInvalidCandidateSet):
		// Another operation consumed one of the items since the scan.
		return tryLineDone
	default:
		s.LogError(ctx, err, "failed to save pending match", slog.String("match_id", record.MatchID))
		return trySkipLine
	}
}

// handleUnmatchable opens an exception for a line no rule could place. Close
// candidates that missed the thresholds suggest a timing difference; no
// candidates at all suggest the ledger entry is missing.
func (s *matchingService) handleUnmatchable(ctx context.Context, line domain.BankStatementLine, hadCandidates bool, tally *runTally, runBy string) {
	excType := domain.ExceptionMissingEntry
	note := "auto-match found no ledger candidates"
	if hadCandidates {
		excType = domain.ExceptionTimingDifference
		note = "auto-match candidates exist but no rule accepted"
	}

	_, err := s.exceptionSvc.CreateException(ctx, dto.CreateExceptionRequest{
		TransactionID: line.LineID,
		Type:          excType,
		Amount:        line.Amount,
		CurrencyCode:  line.CurrencyCode,
		Note:          note,
	}, runBy)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateException) {
			// Re-runs over a stable unmatched set are idempotent.
			return
		}
		s.LogError(ctx, err, "failed to open exception for unmatched line", slog.String("line_id", line.LineID))
		return
	}
	tally.excepted()
}

// candidateEntries pre-filters and orders ledger entries for one bank line.
func (s *matchingService) candidateEntries(line domain.BankStatementLine, entries []domain.LedgerEntry, claims *claimSet) []domain.LedgerEntry {
	candidates := make([]domain.LedgerEntry, 0)
	for _, entry := range entries {
		if claims.entryClaimed(entry.EntryID) {
			continue
		}
		if s.evaluator.WithinPrefilter(line, entry) {
			candidates = append(candidates, entry)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return s.evaluator.PreferCandidate(line, candidates[i], candidates[j])
	})
	if len(candidates) > maxCandidatesPerLine {
		candidates = candidates[:maxCandidatesPerLine]
	}
	return candidates
}

// partnerLines finds other unclaimed lines that could form an N:1 group with
// the given line: same account and currency, dates within the policy window.
func (s *matchingService) partnerLines(line domain.BankStatementLine, bucket []domain.BankStatementLine, claims *claimSet) []domain.BankStatementLine {
	partners := make([]domain.BankStatementLine, 0)
	for _, other := range bucket {
		if other.LineID == line.LineID || claims.lineClaimed(other.LineID) {
			continue
		}
		if other.AccountNo != line.AccountNo {
			continue
		}
		if dateDistanceDays(line.Date, other.Date) > s.policy.DateWindowDays {
			continue
		}
		partners = append(partners, other)
	}
	sort.Slice(partners, func(i, j int) bool { return partners[i].LineID < partners[j].LineID })
	return partners
}

func (s *matchingService) newMatchRecord(proposal *domain.MatchProposal, createdBy string) domain.MatchRecord {
	now := time.Now().UTC()
	return domain.MatchRecord{
		MatchID:        uuid.NewString(),
		BankLineIDs:    proposal.BankLineIDs,
		LedgerEntryIDs: proposal.LedgerEntryIDs,
		Rule:           proposal.Rule,
		Confidence:     proposal.Confidence,
		Status:         domain.MatchPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     createdBy,
			LastUpdatedAt: now,
			LastUpdatedBy: createdBy,
		},
	}
}

// CreateManualMatch creates a pending match from explicitly selected items,
// bypassing the rule evaluator but enforcing the same claim preconditions.
func (s *matchingService) CreateManualMatch(ctx context.Context, req dto.CreateManualMatchRequest, userID string) (*domain.MatchRecord, error) {
	lines, err := s.statementRepo.FindLinesByIDs(ctx, req.BankLineIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCandidateSet
		}
		return nil, fmt.Errorf("failed to load statement lines for manual match: %w", err)
	}
	entries, err := s.ledgerRepo.FindEntriesByIDs(ctx, req.LedgerEntryIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCandidateSet
		}
		return nil, fmt.Errorf("failed to load ledger entries for manual match: %w", err)
	}
	for _, line := range lines {
		if line.Status != domain.ItemUnmatched {
			return nil, apperrors.ErrInvalidCandidateSet
		}
	}
	for _, entry := range entries {
		if entry.Status != domain.ItemUnmatched {
			return nil, apperrors.ErrInvalidCandidateSet
		}
	}

	record := s.newMatchRecord(&domain.MatchProposal{
		BankLineIDs:    req.BankLineIDs,
		LedgerEntryIDs: req.LedgerEntryIDs,
		Rule:           domain.RuleManual,
		Confidence:     0,
	}, userID)
	audit := s.auditSvc.NewEvent(userID, domain.ActionMatchCreated, domain.EntityMatchRecord, record.MatchID, nil, record)

	if err := s.matchRepo.SaveMatch(ctx, record, audit); err != nil {
		if errors.Is(err, apperrors.ErrConcurrentClaim) || errors.Is(err, apperrors.ErrInvalidCandidateSet) {
			return nil, err
		}
		s.LogError(ctx, err, "failed to save manual match", slog.String("match_id", record.MatchID))
		return nil, fmt.Errorf("failed to create manual match: %w", err)
	}

	s.metrics.IncrementMatchProposed(string(domain.RuleManual))
	return &record, nil
}

func (s *matchingService) GetMatchByID(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	return s.matchRepo.FindMatchByID(ctx, matchID)
}

func (s *matchingService) ListMatches(ctx context.Context, params dto.ListMatchesParams) (*dto.ListMatchesResponse, error) {
	matches, nextToken, err := s.matchRepo.ListMatches(ctx, params.Status, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "failed to list matches")
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	resp := &dto.ListMatchesResponse{
		Matches:   make([]dto.MatchResponse, len(matches)),
		NextToken: nextToken,
	}
	for i := range matches {
		resp.Matches[i] = dto.ToMatchResponse(&matches[i])
	}
	return resp, nil
}

// ListPending retrieves the pending matches awaiting approval.
func (s *matchingService) ListPending(ctx context.Context, limit int, nextToken *string) (*dto.ListMatchesResponse, error) {
	pending := domain.MatchPending
	return s.ListMatches(ctx, dto.ListMatchesParams{Status: &pending, Limit: limit, NextToken: nextToken})
}

// combinations calls fn with each k-combination of [0,n) in lexicographic
// order. fn returning true stops the enumeration.
func combinations(n, k int, fn func(idx []int) bool) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if fn(idx) {
			return
		}
		// Advance to the next combination.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
