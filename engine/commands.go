package engine

import (
	"options_venue/errs"
	"options_venue/feed"
	"options_venue/metrics"
	"options_venue/models"
)

// Commands. Every mutation persists the affected snapshot keys
// best-effort before returning.

// RegisterUser creates an account, optionally linked to a referrer by
// referral code, and seeds its balances.
func (e *Engine) RegisterUser(name, email, referralCode string) (models.User, error) {
	user, err := e.Users.Register(name, email, referralCode)
	if err != nil {
		return models.User{}, err
	}
	e.Ledger.Balance(user.ID) // seed real 0 / demo default
	e.persist(keyUsers, keyBalances)
	return user, nil
}

// SetUserBlocked flips a user's block flag.
func (e *Engine) SetUserBlocked(userID int64, blocked bool) error {
	if err := e.Users.SetBlocked(userID, blocked); err != nil {
		return err
	}
	e.persist(keyUsers)
	return nil
}

// PlaceTrade opens a wager for the user, debiting the stake.
func (e *Engine) PlaceTrade(userID int64, assetName string, direction models.Direction, stake float64, durationSeconds int, account models.AccountType) (models.ActiveTrade, error) {
	user, err := e.Users.Get(userID)
	if err != nil {
		return models.ActiveTrade{}, err
	}
	if user.Blocked {
		return models.ActiveTrade{}, errs.Validationf("account is blocked")
	}

	trade, err := e.Trades.Open(userID, assetName, direction, stake, durationSeconds, account)
	if err != nil {
		return models.ActiveTrade{}, err
	}
	metrics.IncrementTradesOpened()
	e.persist(keyActiveTrades, keyBalances)
	return trade, nil
}

// RequestDeposit files a pending deposit request.
func (e *Engine) RequestDeposit(userID int64, amount float64, utr string) (models.Transaction, error) {
	tx, err := e.Transactions.RequestDeposit(userID, amount, utr)
	if err != nil {
		return models.Transaction{}, err
	}
	e.persist(keyTransactions)
	return tx, nil
}

// RequestWithdrawal files a pending withdrawal to a verified account.
func (e *Engine) RequestWithdrawal(userID int64, amount float64, withdrawalAccountID string) (models.Transaction, error) {
	tx, err := e.Transactions.RequestWithdrawal(userID, amount, withdrawalAccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	e.persist(keyTransactions)
	return tx, nil
}

// ApproveTransaction decides a pending transaction. The returned
// transaction may be Rejected (duplicate UTR, insufficient funds)
// together with the matching error.
func (e *Engine) ApproveTransaction(transactionID string) (models.Transaction, error) {
	tx, err := e.Transactions.Approve(transactionID)
	e.persist(keyTransactions, keyBalances)
	return tx, err
}

// RejectTransaction declines a pending transaction.
func (e *Engine) RejectTransaction(transactionID, reason string) (models.Transaction, error) {
	tx, err := e.Transactions.Reject(transactionID, reason)
	if err != nil {
		return models.Transaction{}, err
	}
	e.persist(keyTransactions)
	return tx, nil
}

// AddWithdrawalAccount registers a pending withdrawal destination.
func (e *Engine) AddWithdrawalAccount(userID int64, accountType models.WithdrawalAccountType, holder, accountNumber, ifsc, upiID string) (models.WithdrawalAccount, error) {
	if _, err := e.Users.Get(userID); err != nil {
		return models.WithdrawalAccount{}, err
	}
	account, err := e.Accounts.Add(userID, accountType, holder, accountNumber, ifsc, upiID)
	if err != nil {
		return models.WithdrawalAccount{}, err
	}
	e.persist(keyAccounts)
	return account, nil
}

// RemoveWithdrawalAccount deletes a withdrawal destination.
func (e *Engine) RemoveWithdrawalAccount(userID int64, accountID string) error {
	if err := e.Accounts.Remove(userID, accountID); err != nil {
		return err
	}
	e.persist(keyAccounts)
	return nil
}

// InitiateVerification is the admin seeding the micro-deposit amount.
func (e *Engine) InitiateVerification(accountID string, amount float64) (string, error) {
	msg, err := e.Accounts.InitiateVerification(accountID, amount)
	if err != nil {
		return "", err
	}
	e.persist(keyAccounts)
	return msg, nil
}

// SubmitVerificationAmount is the owner echoing the micro-deposit.
func (e *Engine) SubmitVerificationAmount(accountID string, amount float64) (string, error) {
	msg, err := e.Accounts.SubmitVerificationAmount(accountID, amount)
	e.persist(keyAccounts)
	return msg, err
}

// ManualVerificationDecision is the admin override.
func (e *Engine) ManualVerificationDecision(accountID string, verified bool) (string, error) {
	msg, err := e.Accounts.ManualDecision(accountID, verified)
	if err != nil {
		return "", err
	}
	e.persist(keyAccounts)
	return msg, nil
}

// UpdateAssetPayout adjusts an asset's payout percentage.
func (e *Engine) UpdateAssetPayout(assetName string, payout float64) error {
	if err := e.Catalog.UpdatePayout(assetName, payout); err != nil {
		return err
	}
	e.persist(keyAssets)
	return nil
}

// GrantBalance credits a user's real balance directly (admin reward).
func (e *Engine) GrantBalance(userID int64, amount float64) error {
	if _, err := e.Users.Get(userID); err != nil {
		return err
	}
	if err := e.Ledger.Credit(userID, amount, models.AccountReal); err != nil {
		return err
	}
	e.persist(keyBalances)
	return nil
}

// DeductBalance debits a user's real balance directly (admin
// correction). Cannot push the balance negative.
func (e *Engine) DeductBalance(userID int64, amount float64) error {
	if _, err := e.Users.Get(userID); err != nil {
		return err
	}
	if err := e.Ledger.Debit(userID, amount, models.AccountReal); err != nil {
		return err
	}
	e.persist(keyBalances)
	return nil
}

// Queries.

// Balance returns the user's real and demo funds.
func (e *Engine) Balance(userID int64) (models.Balance, error) {
	if _, err := e.Users.Get(userID); err != nil {
		return models.Balance{}, err
	}
	return e.Ledger.Balance(userID), nil
}

// Ticks returns the asset's raw tick window.
func (e *Engine) Ticks(assetName string) ([]models.Tick, error) {
	if _, err := e.Catalog.Asset(assetName); err != nil {
		return nil, err
	}
	return e.Feed.Ticks(assetName), nil
}

// Candles aggregates the asset's tick window for a timeframe.
func (e *Engine) Candles(assetName string, timeframeSeconds int) ([]models.Candle, error) {
	if timeframeSeconds <= 0 {
		return nil, errs.Validationf("timeframe must be positive, got %d", timeframeSeconds)
	}
	ticks, err := e.Ticks(assetName)
	if err != nil {
		return nil, err
	}
	return feed.Aggregate(ticks, timeframeSeconds, e.cfg.Feed.CandleLimit), nil
}

// ActiveTrades lists open wagers, optionally filtered.
func (e *Engine) ActiveTrades(userID int64, account models.AccountType) []models.ActiveTrade {
	return e.Trades.Active(userID, account)
}

// TradeHistory lists settled wagers, newest close first.
func (e *Engine) TradeHistory(userID int64) []models.CompletedTrade {
	return e.Trades.History(userID)
}

// TransactionList lists deposit/withdrawal requests, newest first.
func (e *Engine) TransactionList(userID int64) []models.Transaction {
	return e.Transactions.List(userID)
}

// Assets returns the catalogue.
func (e *Engine) Assets() []models.Asset {
	return e.Catalog.List()
}

// WithdrawalAccounts lists a user's registered destinations.
func (e *Engine) WithdrawalAccounts(userID int64) []models.WithdrawalAccount {
	return e.Accounts.ListByUser(userID)
}
