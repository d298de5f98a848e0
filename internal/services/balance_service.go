package services

import (
	"context"
	"fmt"
	"time"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

// BalanceService resolves account balances from the transaction ledger or an
// active manual override, and manages the override lifecycle.
type BalanceService struct {
	accounts  AccountReader
	overrides OverrideWriter
	txns      TransactionReader
	logger    *log.Logger
}

func NewBalanceService(accounts AccountReader, overrides OverrideWriter, txns TransactionReader, logger *log.Logger) *BalanceService {
	return &BalanceService{
		accounts:  accounts,
		overrides: overrides,
		txns:      txns,
		logger:    logger.WithComponent(log.ComponentBalance),
	}
}

// Resolve derives the account's displayed balance. It is a pure read: no
// caching, no writes. When the ledger cannot be read and no override is
// active, the account's last stored balance is the fallback; an active
// override never falls back to ledger data.
func (s *BalanceService) Resolve(ctx context.Context, ownerID string, accountID int64) (core.BalanceResolution, error) {
	account, err := s.accounts.Account(ctx, ownerID, accountID)
	if err != nil {
		return core.BalanceResolution{}, fmt.Errorf("resolve balance: %w", err)
	}

	if account.ManualOverrideActive {
		return core.ResolveBalance(account, nil), nil
	}

	txns, err := s.txns.TransactionsByAccount(ctx, ownerID, accountID)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger read failed, falling back to stored balance",
			log.FieldAccountID, accountID, log.FieldError, err)
		res := core.BalanceResolution{}
		if account.StoredBalance != nil {
			res.Balance = *account.StoredBalance
		}
		return res, nil
	}

	return core.ResolveBalance(account, txns), nil
}

// SetOverride activates a manual balance override. The stored ledger value is
// cleared in the same statement so the account never carries two sources of
// truth.
func (s *BalanceService) SetOverride(ctx context.Context, ownerID string, accountID int64, balance core.Money, note string, now time.Time) error {
	if err := s.overrides.SetManualBalance(ctx, ownerID, accountID, balance, note, now); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	s.logger.InfoContext(ctx, "Manual balance override set",
		log.FieldAccountID, accountID, log.FieldAmountCents, balance.Cents)
	return nil
}

// ClearOverride deactivates the override and restores the ledger-derived
// balance as the stored value. Deriving the value and writing it are two
// independently failing steps; a failure between them leaves the override in
// place rather than a half-cleared account.
func (s *BalanceService) ClearOverride(ctx context.Context, ownerID string, accountID int64) error {
	if _, err := s.accounts.Account(ctx, ownerID, accountID); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}

	txns, err := s.txns.TransactionsByAccount(ctx, ownerID, accountID)
	if err != nil {
		return fmt.Errorf("clear override: derive ledger balance: %w", err)
	}
	ledger := core.LedgerBalance(txns)

	if err := s.overrides.ClearManualBalance(ctx, ownerID, accountID, ledger); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}
	s.logger.InfoContext(ctx, "Manual balance override cleared",
		log.FieldAccountID, accountID, log.FieldAmountCents, ledger.Cents)
	return nil
}
