package models

// Direction of a wager.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// AccountType selects which balance a trade or grant touches.
type AccountType string

const (
	AccountReal AccountType = "real"
	AccountDemo AccountType = "demo"
)

// Outcome of a settled trade.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeTie  Outcome = "tie"
)

// ActiveTrade is an open wager. The stake was already debited from the
// matching balance when the trade was created, so settlement only ever
// credits. Times are milliseconds since epoch.
type ActiveTrade struct {
	ID         string      `json:"id"`
	UserID     int64       `json:"userId"`
	AssetName  string      `json:"assetName"`
	Direction  Direction   `json:"direction"`
	Stake      float64     `json:"stake"`
	EntryPrice float64     `json:"entryPrice"`
	EntryTime  int64       `json:"entryTime"`
	ExpiryTime int64       `json:"expiryTime"`
	Account    AccountType `json:"account"`
}

// CompletedTrade is the terminal record of a wager. Profit is signed:
// positive on a win, -stake on a loss, zero on a tie.
type CompletedTrade struct {
	ActiveTrade
	CloseTime  int64   `json:"closeTime"`
	ClosePrice float64 `json:"closePrice"`
	Outcome    Outcome `json:"outcome"`
	Profit     float64 `json:"profit"`
}
