package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prometheus metrics
	ticksGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_ticks_generated_total",
		Help: "The total number of synthetic price ticks generated",
	})

	tradesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_trades_opened_total",
		Help: "Total number of wagers opened",
	})

	tradesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_trades_settled_total",
		Help: "Total number of wagers settled, by outcome",
	}, []string{"outcome"})

	transactionsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_transactions_decided_total",
		Help: "Deposit/withdrawal requests decided, by kind and status",
	}, []string{"kind", "status"})

	referralCommissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_referral_commissions_total",
		Help: "Referral commissions credited on approved deposits",
	})

	persistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_persist_errors_total",
		Help: "Best-effort snapshot saves that failed",
	})

	settlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "venue_settlement_cycle_seconds",
		Help:    "Time spent per settlement scan cycle",
		Buckets: prometheus.LinearBuckets(0.001, 0.001, 10),
	})

	// Internal counters
	tickCount      uint64
	settledCount   uint64
	errorCount     uint64
	lastSettlement atomic.Int64
	startTime      = time.Now()
)

func IncrementTicks() {
	atomic.AddUint64(&tickCount, 1)
	ticksGenerated.Inc()
}

func IncrementTradesOpened() {
	tradesOpened.Inc()
}

func IncrementTradesSettled(outcome string) {
	atomic.AddUint64(&settledCount, 1)
	tradesSettled.WithLabelValues(outcome).Inc()
	lastSettlement.Store(time.Now().Unix())
}

func IncrementTransactions(kind, status string) {
	transactionsDecided.WithLabelValues(kind, status).Inc()
}

func IncrementReferralCommissions() {
	referralCommissions.Inc()
}

func IncrementPersistErrors() {
	atomic.AddUint64(&errorCount, 1)
	persistErrors.Inc()
}

func RecordSettlementCycle(duration time.Duration) {
	settlementDuration.Observe(duration.Seconds())
}

func GetStats() (uint64, uint64, uint64, time.Duration) {
	return atomic.LoadUint64(&tickCount),
		atomic.LoadUint64(&settledCount),
		atomic.LoadUint64(&errorCount),
		time.Since(startTime)
}
