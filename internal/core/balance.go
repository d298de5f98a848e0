package core

import "time"

// BalanceResolution is the result of resolving an account's displayed
// balance. It is a plain value safe to serialize into an HTTP response.
type BalanceResolution struct {
	Balance              Money      `json:"balance"`
	ManualOverrideActive bool       `json:"manualOverrideActive"`
	ManualBalance        *Money     `json:"manualBalance,omitempty"`
	TransactionImpact    Money      `json:"transactionImpact"`
	LastManualSet        *time.Time `json:"lastManualSet,omitempty"`
}

// LedgerBalance is the exact signed sum of a transaction ledger.
func LedgerBalance(txns []Transaction) Money {
	var cents int64
	for _, t := range txns {
		cents += t.SignedCents()
	}
	return Money{Cents: cents}
}

// ResolveBalance derives an account's balance from its ledger or, when a
// manual override is active, from the override alone. The override supersedes
// the ledger entirely: TransactionImpact is zero, not a delta on top of it.
// An active override whose value is missing resolves to zero rather than a
// stale ledger number, since the override is the user's explicit source of
// truth.
func ResolveBalance(a Account, txns []Transaction) BalanceResolution {
	if a.ManualOverrideActive {
		res := BalanceResolution{
			ManualOverrideActive: true,
			ManualBalance:        a.ManualBalance,
			LastManualSet:        a.ManualBalanceSetAt,
		}
		if a.ManualBalance != nil {
			res.Balance = *a.ManualBalance
		}
		return res
	}
	ledger := LedgerBalance(txns)
	return BalanceResolution{
		Balance:           ledger,
		TransactionImpact: ledger,
	}
}
