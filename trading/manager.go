// Package trading owns the set of open wagers and their settlement.
// A trade has exactly one terminal transition: it leaves the active
// set and enters the history in the same claimed step, so it can
// never be double-settled or double-paid.
package trading

import (
	"sync"
	"time"

	"options_venue/errs"
	"options_venue/ledger"
	"options_venue/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PriceSource yields the last known price for an asset. Settlement
// reads the very latest tick, which may lag the exact expiry moment
// by up to one scheduler interval.
type PriceSource interface {
	LatestClose(assetName string) (float64, bool)
}

// AssetProvider resolves the asset catalogue entry for a trade.
type AssetProvider interface {
	Asset(name string) (models.Asset, error)
}

type Manager struct {
	mtx     sync.Mutex
	active  map[string]models.ActiveTrade
	history []models.CompletedTrade

	ledger     *ledger.Ledger
	prices     PriceSource
	assets     AssetProvider
	now        func() time.Time
	tieEpsilon float64
	log        *zap.SugaredLogger

	// onSettled fans settled trades out to the archive sink and the
	// stream hub. Called outside the manager lock.
	onSettled func(models.CompletedTrade)
}

type Params struct {
	Ledger     *ledger.Ledger
	Prices     PriceSource
	Assets     AssetProvider
	Now        func() time.Time
	TieEpsilon float64
	Logger     *zap.SugaredLogger
	OnSettled  func(models.CompletedTrade)
}

func NewManager(p Params) *Manager {
	if p.TieEpsilon <= 0 {
		p.TieEpsilon = 0.00001
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	return &Manager{
		active:     make(map[string]models.ActiveTrade),
		ledger:     p.Ledger,
		prices:     p.Prices,
		assets:     p.Assets,
		now:        p.Now,
		tieEpsilon: p.TieEpsilon,
		log:        p.Logger,
		onSettled:  p.OnSettled,
	}
}

// Open places a wager. The stake is debited from the matching balance
// immediately; settlement later only ever credits.
func (m *Manager) Open(userID int64, assetName string, direction models.Direction, stake float64, durationSeconds int, account models.AccountType) (models.ActiveTrade, error) {
	if stake <= 0 {
		return models.ActiveTrade{}, errs.Validationf("stake must be positive, got %.2f", stake)
	}
	if durationSeconds <= 0 {
		return models.ActiveTrade{}, errs.Validationf("duration must be positive, got %d", durationSeconds)
	}
	if direction != models.DirectionUp && direction != models.DirectionDown {
		return models.ActiveTrade{}, errs.Validationf("unknown direction %q", direction)
	}
	if account != models.AccountReal && account != models.AccountDemo {
		return models.ActiveTrade{}, errs.Validationf("unknown account type %q", account)
	}

	if _, err := m.assets.Asset(assetName); err != nil {
		return models.ActiveTrade{}, err
	}

	entryPrice, ok := m.prices.LatestClose(assetName)
	if !ok {
		return models.ActiveTrade{}, errs.NotFoundf("no price for asset %q", assetName)
	}

	if err := m.ledger.Debit(userID, stake, account); err != nil {
		return models.ActiveTrade{}, err
	}

	now := m.now().UnixMilli()
	trade := models.ActiveTrade{
		ID:         uuid.New().String(),
		UserID:     userID,
		AssetName:  assetName,
		Direction:  direction,
		Stake:      stake,
		EntryPrice: entryPrice,
		EntryTime:  now,
		ExpiryTime: now + int64(durationSeconds)*1000,
		Account:    account,
	}

	m.mtx.Lock()
	m.active[trade.ID] = trade
	m.mtx.Unlock()

	m.log.Infow("Trade opened",
		"trade_id", trade.ID,
		"user_id", userID,
		"asset", assetName,
		"direction", direction,
		"stake", stake,
		"entry_price", entryPrice,
		"account", account,
	)
	return trade, nil
}

// Active returns open trades, optionally filtered by user (0 matches
// all) and account ("" matches all).
func (m *Manager) Active(userID int64, account models.AccountType) []models.ActiveTrade {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	out := make([]models.ActiveTrade, 0, len(m.active))
	for _, t := range m.active {
		if userID != 0 && t.UserID != userID {
			continue
		}
		if account != "" && t.Account != account {
			continue
		}
		out = append(out, t)
	}
	return out
}

// History returns settled trades, newest close first, optionally
// filtered by user.
func (m *Manager) History(userID int64) []models.CompletedTrade {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	out := make([]models.CompletedTrade, 0, len(m.history))
	for _, t := range m.history {
		if userID != 0 && t.UserID != userID {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Snapshot copies active trades and history for persistence.
func (m *Manager) Snapshot() ([]models.ActiveTrade, []models.CompletedTrade) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	active := make([]models.ActiveTrade, 0, len(m.active))
	for _, t := range m.active {
		active = append(active, t)
	}
	history := make([]models.CompletedTrade, len(m.history))
	copy(history, m.history)
	return active, history
}

// Restore replaces the trade state with a persisted snapshot. Expired
// trades restored here settle on the next scheduler pass.
func (m *Manager) Restore(active []models.ActiveTrade, history []models.CompletedTrade) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.active = make(map[string]models.ActiveTrade, len(active))
	for _, t := range active {
		m.active[t.ID] = t
	}
	m.history = m.history[:0]
	for _, t := range history {
		m.appendHistoryLocked(t)
	}
}
