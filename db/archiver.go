package db

import (
	"context"
	"sync"
	"time"

	"options_venue/models"

	"go.uber.org/zap"
)

// Archiver buffers ticks and settled trades and flushes them to
// ClickHouse in batches, on size or on a timer. Records are dropped
// rather than blocking the feed or settlement loops when the buffer
// is full; archiving is best-effort by design.
type Archiver struct {
	db            *ClickHouseDB
	ticks         chan ArchivedTick
	trades        chan ArchivedTrade
	batchSize     int
	flushInterval time.Duration
	log           *zap.SugaredLogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewArchiver(db *ClickHouseDB, batchSize int, flushInterval time.Duration, log *zap.SugaredLogger) *Archiver {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Archiver{
		db:            db,
		ticks:         make(chan ArchivedTick, batchSize*2),
		trades:        make(chan ArchivedTrade, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		log:           log,
	}
}

// Start launches the flush loops.
func (a *Archiver) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(2)
	go a.runTicks(ctx)
	go a.runTrades(ctx)
}

// Stop flushes what is buffered and shuts the loops down.
func (a *Archiver) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// RecordTick queues one tick for archiving without ever blocking.
func (a *Archiver) RecordTick(asset string, tick models.Tick) {
	select {
	case a.ticks <- ArchivedTick{
		Timestamp: time.UnixMilli(tick.Time),
		Asset:     asset,
		Open:      tick.Open,
		High:      tick.High,
		Low:       tick.Low,
		Close:     tick.Close,
	}:
	default:
		a.log.Warnw("Archive buffer full, dropping tick", "asset", asset)
	}
}

// RecordTrade queues one settled trade for archiving without blocking.
func (a *Archiver) RecordTrade(trade models.CompletedTrade) {
	select {
	case a.trades <- ArchivedTrade{
		TradeID:    trade.ID,
		UserID:     trade.UserID,
		Asset:      trade.AssetName,
		Direction:  string(trade.Direction),
		Account:    string(trade.Account),
		Stake:      trade.Stake,
		EntryPrice: trade.EntryPrice,
		ClosePrice: trade.ClosePrice,
		Outcome:    string(trade.Outcome),
		Profit:     trade.Profit,
		EntryTime:  time.UnixMilli(trade.EntryTime),
		CloseTime:  time.UnixMilli(trade.CloseTime),
	}:
	default:
		a.log.Warnw("Archive buffer full, dropping settled trade", "trade_id", trade.ID)
	}
}

func (a *Archiver) runTicks(ctx context.Context) {
	defer a.wg.Done()

	buf := make([]ArchivedTick, 0, a.batchSize)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if err := a.db.InsertTicks(context.Background(), buf); err != nil {
			a.log.Errorw("Tick archive insert failed", "count", len(buf), "error", err)
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case t := <-a.ticks:
			buf = append(buf, t)
			if len(buf) >= a.batchSize {
				flush()
			}
		}
	}
}

func (a *Archiver) runTrades(ctx context.Context) {
	defer a.wg.Done()

	buf := make([]ArchivedTrade, 0, a.batchSize)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if err := a.db.InsertSettledTrades(context.Background(), buf); err != nil {
			a.log.Errorw("Trade archive insert failed", "count", len(buf), "error", err)
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case t := <-a.trades:
			buf = append(buf, t)
			if len(buf) >= a.batchSize {
				flush()
			}
		}
	}
}
