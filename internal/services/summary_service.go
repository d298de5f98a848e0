package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"finpulse/internal/cache"
	"finpulse/internal/core"
	"finpulse/internal/log"
)

// AccountBalance pairs an account with its resolved balance for the
// dashboard's net-worth breakdown.
type AccountBalance struct {
	AccountID            int64      `json:"accountId"`
	Name                 string     `json:"name"`
	Currency             string     `json:"currency"`
	Balance              core.Money `json:"balance"`
	ManualOverrideActive bool       `json:"manualOverrideActive"`
}

// DashboardData is the aggregate the dashboard view renders in one shot.
type DashboardData struct {
	Summary  core.FinancialSummary `json:"summary"`
	NetWorth core.Money            `json:"netWorth"`
	Accounts []AccountBalance      `json:"accounts"`
}

// SummaryService buckets the transaction ledger for charts and assembles the
// dashboard aggregate.
type SummaryService struct {
	txns     TransactionReader
	accounts AccountReader
	balances *BalanceService
	cache    *cache.LRU[DashboardData]
	logger   *log.Logger
}

func NewSummaryService(txns TransactionReader, accounts AccountReader, balances *BalanceService, dashCache *cache.LRU[DashboardData], logger *log.Logger) *SummaryService {
	return &SummaryService{
		txns:     txns,
		accounts: accounts,
		balances: balances,
		cache:    dashCache,
		logger:   logger.WithComponent(log.ComponentSummary),
	}
}

// Summarize partitions the owner's ledger into windowSize trailing buckets of
// the given granularity. A failed read degrades to an empty series.
func (s *SummaryService) Summarize(ctx context.Context, ownerID string, granularity core.Granularity, windowSize int, now time.Time) []core.PeriodTotals {
	if windowSize < 1 {
		windowSize = 1
	}

	var from time.Time
	switch granularity {
	case core.Daily:
		from = core.DayStart(now).AddDate(0, 0, -(windowSize - 1))
	case core.ISOWeek:
		from = core.WeekStart(now).AddDate(0, 0, -7*(windowSize-1))
	default:
		from = core.MonthStart(now).AddDate(0, -(windowSize - 1), 0)
	}

	txns, err := s.txns.TransactionsByOwner(ctx, ownerID, from, core.DayStart(now).AddDate(0, 0, 1))
	if err != nil {
		s.logger.WarnContext(ctx, "Summary read failed, returning empty series",
			log.FieldOwnerID, ownerID, log.FieldError, err)
		return []core.PeriodTotals{}
	}

	return core.BucketTransactions(txns, granularity)
}

// MonthlySummary rolls the trailing months up into totals, savings rate and
// the monthly trend series.
func (s *SummaryService) MonthlySummary(ctx context.Context, ownerID string, months int, now time.Time) core.FinancialSummary {
	if months < 1 {
		months = 1
	}
	from := core.MonthStart(now).AddDate(0, -(months - 1), 0)

	txns, err := s.txns.TransactionsByOwner(ctx, ownerID, from, core.DayStart(now).AddDate(0, 0, 1))
	if err != nil {
		s.logger.WarnContext(ctx, "Monthly summary read failed, returning zeroed summary",
			log.FieldOwnerID, ownerID, log.FieldError, err)
		return core.FinancialSummary{MonthlyTrend: []core.PeriodTotals{}}
	}

	return core.Summarize(txns)
}

// Dashboard assembles the monthly summary and net worth. Balances resolve
// concurrently with "resolve all, then sum" semantics: no completion order is
// assumed and a failing account contributes its fallback value instead of
// aborting the batch. Results are briefly cached per owner.
func (s *SummaryService) Dashboard(ctx context.Context, ownerID string, now time.Time) DashboardData {
	cacheKey := "dashboard:" + ownerID
	if s.cache != nil {
		if data, ok := s.cache.Get(cacheKey); ok {
			return data
		}
	}

	data := DashboardData{
		Summary:  s.MonthlySummary(ctx, ownerID, 6, now),
		Accounts: []AccountBalance{},
	}

	accounts, err := s.accounts.AccountsByOwner(ctx, ownerID)
	if err != nil {
		s.logger.WarnContext(ctx, "Account listing failed, net worth unavailable",
			log.FieldOwnerID, ownerID, log.FieldError, err)
		return data
	}

	balances := make([]AccountBalance, len(accounts))
	var g errgroup.Group
	for i, account := range accounts {
		g.Go(func() error {
			res, err := s.balances.Resolve(ctx, ownerID, account.ID)
			if err != nil {
				// Isolated per-entity failure: contribute zero, keep going.
				s.logger.WarnContext(ctx, "Balance resolution failed for account",
					log.FieldAccountID, account.ID, log.FieldError, err)
				res = core.BalanceResolution{}
			}
			balances[i] = AccountBalance{
				AccountID:            account.ID,
				Name:                 account.Name,
				Currency:             account.Currency,
				Balance:              res.Balance,
				ManualOverrideActive: res.ManualOverrideActive,
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range balances {
		data.NetWorth.Cents += b.Balance.Cents
	}
	data.Accounts = balances

	if s.cache != nil {
		s.cache.Set(cacheKey, data)
	}
	return data
}

// InvalidateDashboard drops the cached aggregate after a write.
func (s *SummaryService) InvalidateDashboard(ownerID string) {
	if s.cache != nil {
		s.cache.Delete("dashboard:" + ownerID)
	}
}
