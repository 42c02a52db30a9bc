// Package ledger owns every user balance on the venue. All mutations
// go through Credit/Debit/Apply under one writer lock, so concurrent
// deposit approvals, referral credits and trade settlements can never
// lose an update.
package ledger

import (
	"options_venue/errs"
	"options_venue/models"
	"sync"
)

type Ledger struct {
	mtx      sync.RWMutex
	balances map[int64]models.Balance
	demoSeed float64
}

func New(demoSeed float64) *Ledger {
	return &Ledger{
		balances: make(map[int64]models.Balance),
		demoSeed: demoSeed,
	}
}

// ensure must be called with the write lock held.
func (l *Ledger) ensure(userID int64) models.Balance {
	b, ok := l.balances[userID]
	if !ok {
		b = models.Balance{Real: 0, Demo: l.demoSeed}
		l.balances[userID] = b
	}
	return b
}

// Balance returns the user's funds, seeding defaults on first sight.
func (l *Ledger) Balance(userID int64) models.Balance {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.ensure(userID)
}

// Credit adds amount to one of the user's balances.
func (l *Ledger) Credit(userID int64, amount float64, account models.AccountType) error {
	if amount <= 0 {
		return errs.Validationf("credit amount must be positive, got %.2f", amount)
	}
	return l.apply(userID, amount, account)
}

// Debit removes amount from one of the user's balances. It fails with
// ErrInsufficientFunds rather than ever letting a balance go negative.
func (l *Ledger) Debit(userID int64, amount float64, account models.AccountType) error {
	if amount <= 0 {
		return errs.Validationf("debit amount must be positive, got %.2f", amount)
	}
	return l.apply(userID, -amount, account)
}

func (l *Ledger) apply(userID int64, delta float64, account models.AccountType) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	b := l.ensure(userID)
	switch account {
	case models.AccountReal:
		if b.Real+delta < 0 {
			return errs.ErrInsufficientFunds
		}
		b.Real += delta
	case models.AccountDemo:
		if b.Demo+delta < 0 {
			return errs.ErrInsufficientFunds
		}
		b.Demo += delta
	default:
		return errs.Validationf("unknown account type %q", account)
	}
	l.balances[userID] = b
	return nil
}

// Snapshot copies every balance for persistence.
func (l *Ledger) Snapshot() map[int64]models.Balance {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	out := make(map[int64]models.Balance, len(l.balances))
	for id, b := range l.balances {
		out[id] = b
	}
	return out
}

// Restore replaces the ledger contents with a persisted snapshot.
func (l *Ledger) Restore(balances map[int64]models.Balance) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.balances = make(map[int64]models.Balance, len(balances))
	for id, b := range balances {
		l.balances[id] = b
	}
}
