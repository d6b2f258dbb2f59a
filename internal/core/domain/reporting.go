package domain

// ReconciliationSummary aggregates the current state of the reconciliation for
// dashboards. AutoMatchRate is matched transactions over total, in percent.
type ReconciliationSummary struct {
	TotalTransactions     int     `json:"totalTransactions"`
	MatchedTransactions   int     `json:"matchedTransactions"`
	UnmatchedTransactions int     `json:"unmatchedTransactions"`
	Exceptions            int     `json:"exceptions"`
	AutoMatchRate         float64 `json:"autoMatchRate"`
	PendingApprovals      int     `json:"pendingApprovals"`
}
