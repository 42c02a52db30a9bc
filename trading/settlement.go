package trading

import (
	"math"
	"sort"

	"options_venue/metrics"
	"options_venue/models"
)

// SettleExpired scans the active set and settles every trade whose
// expiry has passed, exactly once each. A failure settling one trade
// never blocks the rest of the cycle. Returns the number settled.
func (m *Manager) SettleExpired() int {
	now := m.now().UnixMilli()

	m.mtx.Lock()
	expired := make([]models.ActiveTrade, 0)
	for _, t := range m.active {
		if t.ExpiryTime <= now {
			expired = append(expired, t)
		}
	}
	m.mtx.Unlock()

	settled := 0
	for _, t := range expired {
		if m.settle(t) {
			settled++
		}
	}
	return settled
}

// settle claims the trade out of the active set, computes the outcome
// against the latest tick and credits the ledger. The claim happens
// under the manager lock, so a concurrent settlement attempt on the
// same id finds the trade already gone and backs off.
func (m *Manager) settle(trade models.ActiveTrade) bool {
	settlementPrice, ok := m.prices.LatestClose(trade.AssetName)
	if !ok {
		m.log.Warnw("No settlement price, trade stays active",
			"trade_id", trade.ID, "asset", trade.AssetName)
		return false
	}

	asset, err := m.assets.Asset(trade.AssetName)
	if err != nil {
		m.log.Errorw("Asset missing at settlement, trade stays active",
			"trade_id", trade.ID, "asset", trade.AssetName, "error", err)
		return false
	}

	outcome, profit := m.outcome(trade, settlementPrice, asset.Payout)

	m.mtx.Lock()
	if _, live := m.active[trade.ID]; !live {
		// Already claimed by a concurrent settlement pass.
		m.mtx.Unlock()
		return false
	}
	delete(m.active, trade.ID)

	completed := models.CompletedTrade{
		ActiveTrade: trade,
		CloseTime:   m.now().UnixMilli(),
		ClosePrice:  settlementPrice,
		Outcome:     outcome,
		Profit:      profit,
	}
	m.appendHistoryLocked(completed)
	m.mtx.Unlock()

	// The stake was debited at open time. A win returns it plus the
	// payout, a tie returns it alone, a loss returns nothing.
	switch outcome {
	case models.OutcomeWin:
		if err := m.ledger.Credit(trade.UserID, trade.Stake+profit, trade.Account); err != nil {
			m.log.Errorw("Settlement credit failed", "trade_id", trade.ID, "error", err)
		}
	case models.OutcomeTie:
		if err := m.ledger.Credit(trade.UserID, trade.Stake, trade.Account); err != nil {
			m.log.Errorw("Settlement refund failed", "trade_id", trade.ID, "error", err)
		}
	}

	metrics.IncrementTradesSettled(string(outcome))
	m.log.Infow("Trade settled",
		"trade_id", trade.ID,
		"user_id", trade.UserID,
		"asset", trade.AssetName,
		"outcome", outcome,
		"entry_price", trade.EntryPrice,
		"close_price", settlementPrice,
		"profit", profit,
	)

	if m.onSettled != nil {
		m.onSettled(completed)
	}
	return true
}

// outcome applies the venue's win rule: up wins strictly above the
// entry price, down strictly below; a move inside the tie epsilon
// refunds the stake.
func (m *Manager) outcome(trade models.ActiveTrade, price, payout float64) (models.Outcome, float64) {
	switch {
	case trade.Direction == models.DirectionUp && price > trade.EntryPrice:
		return models.OutcomeWin, trade.Stake * payout / 100
	case trade.Direction == models.DirectionDown && price < trade.EntryPrice:
		return models.OutcomeWin, trade.Stake * payout / 100
	case math.Abs(price-trade.EntryPrice) > m.tieEpsilon:
		return models.OutcomeLoss, -trade.Stake
	default:
		return models.OutcomeTie, 0
	}
}

// appendHistoryLocked inserts with id dedupe and keeps the history
// ordered by close time, newest first. Caller holds m.mtx.
func (m *Manager) appendHistoryLocked(trade models.CompletedTrade) {
	for _, t := range m.history {
		if t.ID == trade.ID {
			return
		}
	}
	m.history = append(m.history, trade)
	sort.SliceStable(m.history, func(i, j int) bool {
		return m.history[i].CloseTime > m.history[j].CloseTime
	})
}
