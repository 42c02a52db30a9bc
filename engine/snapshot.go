package engine

import (
	"context"
	"errors"
	"time"

	"options_venue/errs"
	"options_venue/metrics"
	"options_venue/middleware"
	"options_venue/models"
	"options_venue/store"
	"options_venue/utils"

	"github.com/cenkalti/backoff/v4"
)

// Snapshot keys in the persistence store.
const (
	keyUsers        = "users"
	keyBalances     = "balances"
	keyTransactions = "transactions"
	keyTradeHistory = "tradeHistory"
	keyActiveTrades = "activeTrades"
	keyAccounts     = "withdrawalAccounts"
	keyAssets       = "assets"
	keySettings     = "settings"
	keyTicks        = "ticks"
)

const saveTimeout = 2 * time.Second

// loadSnapshot reads the persisted state at startup. A missing key
// just leaves the boot defaults in place; a failing store is retried
// with backoff and then given up on, so the engine starts empty
// rather than not at all.
func (e *Engine) loadSnapshot() {
	operation := func() error {
		return e.loadAll()
	}

	retry := utils.NewExponentialBackoff()
	if err := backoff.RetryNotify(operation, retry,
		func(err error, duration time.Duration) {
			e.log.Warnw("Snapshot load failed, retrying",
				"error", err, "retry_in", duration)
		}); err != nil {
		e.log.Errorw("Snapshot load abandoned, starting empty", "error", err)
	}
}

func (e *Engine) loadAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var assets []models.Asset
	if err := e.loadKey(ctx, keyAssets, &assets); err != nil {
		return err
	}
	if len(assets) > 0 {
		e.Catalog.Restore(assets)
	}

	var userList []models.User
	if err := e.loadKey(ctx, keyUsers, &userList); err != nil {
		return err
	}
	if len(userList) > 0 {
		e.Users.Restore(userList)
	}

	var balances map[int64]models.Balance
	if err := e.loadKey(ctx, keyBalances, &balances); err != nil {
		return err
	}
	if len(balances) > 0 {
		e.Ledger.Restore(balances)
	}

	var transactions []models.Transaction
	if err := e.loadKey(ctx, keyTransactions, &transactions); err != nil {
		return err
	}
	if len(transactions) > 0 {
		e.Transactions.Restore(transactions)
	}

	var accounts []models.WithdrawalAccount
	if err := e.loadKey(ctx, keyAccounts, &accounts); err != nil {
		return err
	}
	if len(accounts) > 0 {
		e.Accounts.Restore(accounts)
	}

	var active []models.ActiveTrade
	if err := e.loadKey(ctx, keyActiveTrades, &active); err != nil {
		return err
	}
	var history []models.CompletedTrade
	if err := e.loadKey(ctx, keyTradeHistory, &history); err != nil {
		return err
	}
	if len(active) > 0 || len(history) > 0 {
		e.Trades.Restore(active, history)
	}

	var ticks map[string][]models.Tick
	if err := e.loadKey(ctx, keyTicks, &ticks); err != nil {
		return err
	}
	if len(ticks) > 0 {
		e.Feed.Restore(ticks)
	}

	var settings Settings
	if err := e.loadKey(ctx, keySettings, &settings); err != nil {
		return err
	}
	if settings.Limits.MaxDeposit > 0 {
		e.settingsMtx.Lock()
		e.settings = settings
		e.settingsMtx.Unlock()
	}

	return nil
}

func (e *Engine) loadKey(ctx context.Context, key string, v any) error {
	err := store.LoadJSON(ctx, e.store, key, v)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	return err
}

// persist writes the named snapshot keys best-effort: saves go
// through the circuit breaker, failures are logged and counted, and
// the in-memory state stays authoritative either way.
func (e *Engine) persist(keys ...string) {
	for _, key := range keys {
		v := e.snapshotValue(key)
		if v == nil {
			continue
		}
		err := middleware.WithCircuitBreaker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			return store.SaveJSON(ctx, e.store, key, v)
		})
		if err != nil {
			metrics.IncrementPersistErrors()
			e.log.Warnw("Snapshot save failed", "key", key, "error", err)
		}
	}
}

func (e *Engine) persistAll() {
	e.persist(keyUsers, keyBalances, keyTransactions, keyTradeHistory,
		keyActiveTrades, keyAccounts, keyAssets, keySettings, keyTicks)
}

func (e *Engine) snapshotValue(key string) any {
	switch key {
	case keyUsers:
		return e.Users.List()
	case keyBalances:
		return e.Ledger.Snapshot()
	case keyTransactions:
		return e.Transactions.Snapshot()
	case keyTradeHistory:
		_, history := e.Trades.Snapshot()
		return history
	case keyActiveTrades:
		active, _ := e.Trades.Snapshot()
		return active
	case keyAccounts:
		return e.Accounts.Snapshot()
	case keyAssets:
		return e.Catalog.List()
	case keySettings:
		return e.Settings()
	case keyTicks:
		return e.Feed.Snapshot()
	default:
		return nil
	}
}
