// Package engine ties the venue together: one Engine instance owns
// the asset catalogue, the ledger, the feed and settlement loops, and
// the money-movement components, with persistence, clock and random
// source injected so independent instances can run side by side in
// tests.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"options_venue/bank"
	"options_venue/config"
	"options_venue/db"
	"options_venue/feed"
	"options_venue/ledger"
	"options_venue/metrics"
	"options_venue/middleware"
	"options_venue/models"
	"options_venue/store"
	"options_venue/trading"
	"options_venue/users"
	"options_venue/ws"

	"go.uber.org/zap"
)

// Settings are the admin-tunable venue parameters.
type Settings struct {
	ReferralPercentage float64     `json:"referralPercentage"`
	Limits             bank.Limits `json:"limits"`
}

type Params struct {
	Config   *config.Config
	Store    store.Store
	Logger   *zap.SugaredLogger
	Clock    func() time.Time
	RNG      *rand.Rand
	Hub      *ws.Hub      // optional
	Archiver *db.Archiver // optional
}

type Engine struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	store store.Store
	clock func() time.Time

	Catalog      *Catalog
	Ledger       *ledger.Ledger
	Feed         *feed.Generator
	Trades       *trading.Manager
	Accounts     *bank.Accounts
	Transactions *bank.Transactions
	Users        *users.Registry

	hub      *ws.Hub
	archiver *db.Archiver

	settingsMtx sync.RWMutex
	settings    Settings

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	lastFeedRun   atomic.Int64
	lastSettleRun atomic.Int64
}

func New(p Params) *Engine {
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.RNG == nil {
		p.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.Store == nil {
		p.Store = store.NewMemory()
	}

	e := &Engine{
		cfg:      p.Config,
		log:      p.Logger,
		store:    p.Store,
		clock:    p.Clock,
		hub:      p.Hub,
		archiver: p.Archiver,
	}

	e.settings = Settings{
		ReferralPercentage: p.Config.Funds.ReferralPercentage,
		Limits: bank.Limits{
			MinDeposit:    p.Config.Funds.MinDeposit,
			MaxDeposit:    p.Config.Funds.MaxDeposit,
			MinWithdrawal: p.Config.Funds.MinWithdrawal,
			MaxWithdrawal: p.Config.Funds.MaxWithdrawal,
		},
	}

	e.Catalog = NewCatalog(models.DefaultAssets())
	e.Ledger = ledger.New(p.Config.Funds.DemoSeed)

	// The feed loop and HTTP registration draw randomness
	// concurrently, and a rand.Source is not safe for concurrent use.
	// Each component gets its own instance, seeded from the injected
	// one so tests stay deterministic.
	e.Feed = feed.NewGenerator(p.Config.Feed.TickWindow, p.Config.Feed.BootstrapTicks, p.Clock,
		rand.New(rand.NewSource(p.RNG.Int63())))
	e.Users = users.NewRegistry(rand.New(rand.NewSource(p.RNG.Int63())))
	e.Accounts = bank.NewAccounts()

	e.Trades = trading.NewManager(trading.Params{
		Ledger:     e.Ledger,
		Prices:     e.Feed,
		Assets:     e.Catalog,
		Now:        p.Clock,
		TieEpsilon: p.Config.Trading.TieEpsilon,
		Logger:     p.Logger,
		OnSettled:  e.onSettled,
	})

	e.Transactions = bank.NewTransactions(bank.TransactionsParams{
		Ledger:      e.Ledger,
		Users:       e.Users,
		Accounts:    e.Accounts,
		Limits:      e.limits,
		ReferralPct: e.referralPercentage,
		Now:         p.Clock,
		Logger:      p.Logger,
	})

	return e
}

func (e *Engine) limits() bank.Limits {
	e.settingsMtx.RLock()
	defer e.settingsMtx.RUnlock()
	return e.settings.Limits
}

func (e *Engine) referralPercentage() float64 {
	e.settingsMtx.RLock()
	defer e.settingsMtx.RUnlock()
	return e.settings.ReferralPercentage
}

// Settings returns the current admin-tunable parameters.
func (e *Engine) Settings() Settings {
	e.settingsMtx.RLock()
	defer e.settingsMtx.RUnlock()
	return e.settings
}

// UpdateSettings replaces the admin-tunable parameters.
func (e *Engine) UpdateSettings(s Settings) {
	e.settingsMtx.Lock()
	e.settings = s
	e.settingsMtx.Unlock()
	e.persist(keySettings)
}

// Start loads the persisted snapshot, bootstraps the feed and
// launches the two scheduled loops.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}

	e.loadSnapshot()

	for _, asset := range e.Catalog.List() {
		e.Feed.Bootstrap(asset)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.wg.Add(2)
	go e.runFeedLoop(ctx)
	go e.runSettlementLoop(ctx)

	e.log.Infow("Engine started",
		"assets", len(e.Catalog.List()),
		"feed_interval", e.cfg.Feed.Interval,
		"settlement_interval", e.cfg.Trading.SettlementInterval,
	)
}

// Stop halts the loops and writes a final snapshot.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}

	e.cancel()
	e.wg.Wait()
	e.persistAll()
	e.log.Infow("Engine stopped")
}

// FeedHealthy reports whether the feed loop ran recently. Wired into
// the health endpoint.
func (e *Engine) FeedHealthy() bool {
	return e.loopHealthy(e.lastFeedRun.Load(), e.cfg.Feed.Interval)
}

// SettlementHealthy reports whether the settlement loop ran recently.
func (e *Engine) SettlementHealthy() bool {
	return e.loopHealthy(e.lastSettleRun.Load(), e.cfg.Trading.SettlementInterval)
}

func (e *Engine) loopHealthy(lastRun int64, interval time.Duration) bool {
	if lastRun == 0 {
		return e.running.Load()
	}
	return e.clock().UnixMilli()-lastRun < 10*interval.Milliseconds()
}

func (e *Engine) runFeedLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Feed.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			middleware.RecoverCycle("feed", e.feedCycle)
		}
	}
}

// feedCycle advances every asset's walk by one tick. A failure on one
// asset never blocks the others.
func (e *Engine) feedCycle() {
	for _, asset := range e.Catalog.List() {
		tick := e.Feed.Tick(asset)
		metrics.IncrementTicks()

		if e.hub != nil {
			e.hub.BroadcastTick(asset.Name, tick)
		}
		if e.archiver != nil {
			e.archiver.RecordTick(asset.Name, tick)
		}
	}
	e.lastFeedRun.Store(e.clock().UnixMilli())
	e.persist(keyTicks)
}

func (e *Engine) runSettlementLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Trading.SettlementInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			middleware.RecoverCycle("settlement", e.settlementCycle)
		}
	}
}

func (e *Engine) settlementCycle() {
	start := time.Now()
	settled := e.Trades.SettleExpired()
	metrics.RecordSettlementCycle(time.Since(start))
	e.lastSettleRun.Store(e.clock().UnixMilli())

	if settled > 0 {
		e.persist(keyActiveTrades, keyTradeHistory, keyBalances)
	}
}

func (e *Engine) onSettled(trade models.CompletedTrade) {
	if e.archiver != nil {
		e.archiver.RecordTrade(trade)
	}
}
