// Package db is the venue's optional append-only archive: every
// generated tick and every settled trade can be batch-inserted into
// ClickHouse for offline analysis. The engine runs fine without it.
package db

import (
	"context"
	"fmt"
	"time"

	"options_venue/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTicksSQL = `
CREATE TABLE IF NOT EXISTS venue_ticks (
    timestamp DateTime64(3),
    asset String,
    open Float64,
    high Float64,
    low Float64,
    close Float64
) ENGINE = MergeTree()
ORDER BY (timestamp, asset)
`

const createTradesSQL = `
CREATE TABLE IF NOT EXISTS venue_settled_trades (
    trade_id String,
    user_id Int64,
    asset String,
    direction String,
    account String,
    stake Float64,
    entry_price Float64,
    close_price Float64,
    outcome String,
    profit Float64,
    entry_time DateTime64(3),
    close_time DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (close_time, asset)
`

// ArchivedTick is one feed tick as stored in ClickHouse.
type ArchivedTick struct {
	Timestamp time.Time `ch:"timestamp"`
	Asset     string    `ch:"asset"`
	Open      float64   `ch:"open"`
	High      float64   `ch:"high"`
	Low       float64   `ch:"low"`
	Close     float64   `ch:"close"`
}

// ArchivedTrade is one settled wager as stored in ClickHouse.
type ArchivedTrade struct {
	TradeID    string    `ch:"trade_id"`
	UserID     int64     `ch:"user_id"`
	Asset      string    `ch:"asset"`
	Direction  string    `ch:"direction"`
	Account    string    `ch:"account"`
	Stake      float64   `ch:"stake"`
	EntryPrice float64   `ch:"entry_price"`
	ClosePrice float64   `ch:"close_price"`
	Outcome    string    `ch:"outcome"`
	Profit     float64   `ch:"profit"`
	EntryTime  time.Time `ch:"entry_time"`
	CloseTime  time.Time `ch:"close_time"`
}

type ClickHouseDB struct {
	conn driver.Conn
}

func NewClickHouseDB(cfg *config.Config) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		},
		Protocol: clickhouse.Native,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	db := &ClickHouseDB{conn: conn}
	if err := db.createTables(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *ClickHouseDB) createTables() error {
	ctx := context.Background()
	if err := db.conn.Exec(ctx, createTicksSQL); err != nil {
		return err
	}
	return db.conn.Exec(ctx, createTradesSQL)
}

func (db *ClickHouseDB) InsertTicks(ctx context.Context, ticks []ArchivedTick) error {
	batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO venue_ticks")
	if err != nil {
		return err
	}

	for _, tick := range ticks {
		if err := batch.AppendStruct(&tick); err != nil {
			return err
		}
	}

	return batch.Send()
}

func (db *ClickHouseDB) InsertSettledTrades(ctx context.Context, trades []ArchivedTrade) error {
	batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO venue_settled_trades")
	if err != nil {
		return err
	}

	for _, trade := range trades {
		if err := batch.AppendStruct(&trade); err != nil {
			return err
		}
	}

	return batch.Send()
}

func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}
