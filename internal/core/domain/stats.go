package domain

// PlatformStats is the aggregated read model returned by get_platform_stats.
// All monetary totals are sums of completed ledger transactions, so the
// numbers stay consistent with the conservation invariant.
type PlatformStats struct {
	TotalAccounts       int64 `json:"total_accounts"`
	TotalDeposits       int64 `json:"total_deposits"`
	TotalWithdrawals    int64 `json:"total_withdrawals"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	ActiveSessions      int64 `json:"active_sessions"`
	TotalEscrowed       int64 `json:"total_escrowed"`
	FeesCollected       int64 `json:"fees_collected"`
}
