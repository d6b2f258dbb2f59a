package services

import (
	"strings"
	"time"

	"github.com/finopsd/recon_backend/internal/apperrors"
	"github.com/finopsd/recon_backend/internal/core/domain"
	"github.com/finopsd/recon_backend/internal/platform/config"
	"github.com/finopsd/recon_backend/internal/utils/similarity"
	"github.com/shopspring/decimal"
)

// Rule confidences are fixed by the catalog; thresholds come from policy.
const (
	confidenceExact     = 1.0
	confidenceTolerance = 0.8
	confidenceReference = 0.6
)

// RuleEvaluator applies the match-rule catalog to candidate item sets. It is
// pure: no I/O, no clock reads, deterministic for a given input and policy.
type RuleEvaluator struct {
	policy config.MatchingPolicy
}

// NewRuleEvaluator creates a rule evaluator bound to the given matching policy.
func NewRuleEvaluator(policy config.MatchingPolicy) *RuleEvaluator {
	return &RuleEvaluator{policy: policy}
}

// Evaluate runs the rule catalog against one candidate grouping in fixed
// priority order: exact_match, then amount_tolerance, then reference_match.
// The first rule that accepts wins. Returns nil when no rule accepts, and
// ErrInvalidCandidateSet when either side is empty or an item is not UNMATCHED.
func (e *RuleEvaluator) Evaluate(bank []domain.BankStatementLine, ledger []domain.LedgerEntry) (*domain.MatchProposal, error) {
	if len(bank) == 0 || len(ledger) == 0 {
		return nil, apperrors.ErrInvalidCandidateSet
	}
	for _, l := range bank {
		if l.Status != domain.ItemUnmatched {
			return nil, apperrors.ErrInvalidCandidateSet
		}
	}
	for _, en := range ledger {
		if en.Status != domain.ItemUnmatched {
			return nil, apperrors.ErrInvalidCandidateSet
		}
	}

	// Matching across currencies is never valid; conversion is out of scope.
	if !uniformCurrency(bank, ledger) {
		return nil, nil
	}

	if e.exactMatch(bank, ledger) {
		return e.proposal(bank, ledger, domain.RuleExactMatch, confidenceExact), nil
	}
	if e.amountTolerance(bank, ledger) {
		return e.proposal(bank, ledger, domain.RuleAmountTolerance, confidenceTolerance), nil
	}
	if e.referenceMatch(bank, ledger) {
		return e.proposal(bank, ledger, domain.RuleReferenceMatch, confidenceReference), nil
	}
	return nil, nil
}

// exactMatch requires equal sums with zero tolerance, all items on the same
// calendar day, and sufficient description token overlap between the sides.
func (e *RuleEvaluator) exactMatch(bank []domain.BankStatementLine, ledger []domain.LedgerEntry) bool {
	if !sumBank(bank).Equal(sumLedger(ledger)) {
		return false
	}
	day := truncateDay(bank[0].Date)
	for _, l := range bank {
		if !truncateDay(l.Date).Equal(day) {
			return false
		}
	}
	for _, en := range ledger {
		if !truncateDay(en.Date).Equal(day) {
			return false
		}
	}
	overlap := similarity.TokenOverlap(joinBankDescriptions(bank), joinLedgerDescriptions(ledger))
	return overlap >= e.policy.TokenOverlapRatio
}

// amountTolerance requires the sum delta within the policy tolerance and every
// cross-side date pair within the policy window.
func (e *RuleEvaluator) amountTolerance(bank []domain.BankStatementLine, ledger []domain.LedgerEntry) bool {
	delta := sumBank(bank).Sub(sumLedger(ledger)).Abs()
	if delta.GreaterThan(e.policy.ToleranceAmount) {
		return false
	}
	window := e.policy.DateWindowDays
	for _, l := range bank {
		for _, en := range ledger {
			if dateDistanceDays(l.Date, en.Date) > window {
				return false
			}
		}
	}
	return true
}

// referenceMatch requires every item in the group to carry the same non-empty
// reference token. Amounts need not agree.
func (e *RuleEvaluator) referenceMatch(bank []domain.BankStatementLine, ledger []domain.LedgerEntry) bool {
	ref := similarity.ExtractReference(bank[0].Description, e.policy.ReferenceMinDigits)
	if ref == "" {
		return false
	}
	for _, l := range bank[1:] {
		if similarity.ExtractReference(l.Description, e.policy.ReferenceMinDigits) != ref {
			return false
		}
	}
	for _, en := range ledger {
		if similarity.ExtractReference(en.Description, e.policy.ReferenceMinDigits) != ref {
			return false
		}
	}
	return true
}

// PreferCandidate orders two ledger candidates for the same bank line:
// smaller amount delta first, then smaller date delta, then lexicographically
// smallest id. Deterministic so repeated runs propose identical matches.
func (e *RuleEvaluator) PreferCandidate(line domain.BankStatementLine, a, b domain.LedgerEntry) bool {
	deltaA := line.Amount.Sub(a.Amount).Abs()
	deltaB := line.Amount.Sub(b.Amount).Abs()
	if !deltaA.Equal(deltaB) {
		return deltaA.LessThan(deltaB)
	}
	daysA := dateDistanceDays(line.Date, a.Date)
	daysB := dateDistanceDays(line.Date, b.Date)
	if daysA != daysB {
		return daysA < daysB
	}
	return a.EntryID < b.EntryID
}

// WithinPrefilter reports whether a ledger entry is close enough to a bank
// line to be worth evaluating: same currency and date within the policy
// window. This prunes the candidate space before grouping.
func (e *RuleEvaluator) WithinPrefilter(line domain.BankStatementLine, entry domain.LedgerEntry) bool {
	if entry.CurrencyCode != line.CurrencyCode {
		return false
	}
	return dateDistanceDays(line.Date, entry.Date) <= e.policy.DateWindowDays
}

func (e *RuleEvaluator) proposal(bank []domain.BankStatementLine, ledger []domain.LedgerEntry, rule domain.MatchRule, confidence float64) *domain.MatchProposal {
	p := &domain.MatchProposal{
		BankLineIDs:    make([]string, len(bank)),
		LedgerEntryIDs: make([]string, len(ledger)),
		Rule:           rule,
		Confidence:     confidence,
	}
	for i, l := range bank {
		p.BankLineIDs[i] = l.LineID
	}
	for i, en := range ledger {
		p.LedgerEntryIDs[i] = en.EntryID
	}
	return p
}

func uniformCurrency(bank []domain.BankStatementLine, ledger []domain.LedgerEntry) bool {
	currency := bank[0].CurrencyCode
	for _, l := range bank {
		if l.CurrencyCode != currency {
			return false
		}
	}
	for _, en := range ledger {
		if en.CurrencyCode != currency {
			return false
		}
	}
	return true
}

func sumBank(bank []domain.BankStatementLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range bank {
		sum = sum.Add(l.Amount)
	}
	return sum
}

func sumLedger(ledger []domain.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, en := range ledger {
		sum = sum.Add(en.Amount)
	}
	return sum
}

func truncateDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func dateDistanceDays(a, b time.Time) int {
	diff := truncateDay(a).Sub(truncateDay(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

func joinBankDescriptions(bank []domain.BankStatementLine) string {
	parts := make([]string, len(bank))
	for i, l := range bank {
		parts[i] = l.Description
	}
	return strings.Join(parts, " ")
}

func joinLedgerDescriptions(ledger []domain.LedgerEntry) string {
	parts := make([]string, len(ledger))
	for i, en := range ledger {
		parts[i] = en.Description
	}
	return strings.Join(parts, " ")
}
