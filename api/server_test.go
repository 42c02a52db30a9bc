package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"options_venue/config"
	"options_venue/engine"
	"options_venue/models"
	"options_venue/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed.Interval = 250 * time.Millisecond
	cfg.Feed.TickWindow = 400
	cfg.Feed.BootstrapTicks = 50
	cfg.Feed.CandleLimit = 400
	cfg.Trading.SettlementInterval = 500 * time.Millisecond
	cfg.Trading.TieEpsilon = 0.00001
	cfg.Funds.DemoSeed = 10000
	cfg.Funds.ReferralPercentage = 1
	cfg.Funds.MinDeposit = 100
	cfg.Funds.MaxDeposit = 50000
	cfg.Funds.MinWithdrawal = 500
	cfg.Funds.MaxWithdrawal = 25000
	return cfg
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	eng := engine.New(engine.Params{
		Config: testConfig(),
		Store:  store.NewMemory(),
		RNG:    rand.New(rand.NewSource(1)),
	})
	for _, asset := range eng.Catalog.List() {
		eng.Feed.Bootstrap(asset)
	}

	srv := httptest.NewServer(NewServer(eng, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, eng
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAssetsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var assets []models.Asset
	resp := getJSON(t, srv.URL+"/api/assets", &assets)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Len(t, assets, 8)
}

func TestTicksAndCandlesEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	var ticks []models.Tick
	resp := getJSON(t, srv.URL+"/api/ticks?asset=BTC/USD", &ticks)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, ticks)

	var candles []models.Candle
	resp = getJSON(t, srv.URL+"/api/candles?asset=BTC/USD&timeframe=60", &candles)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, candles)

	resp = getJSON(t, srv.URL+"/api/ticks?asset=DOGE/USD", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/candles?asset=BTC/USD&timeframe=0", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterAndTradeFlow(t *testing.T) {
	srv, eng := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/users/register", map[string]any{
		"name": "Ravi Kumar", "email": "ravi@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	decodeBody(t, resp, &user)
	require.NotZero(t, user.ID)
	require.NotEmpty(t, user.ReferralCode)

	resp = postJSON(t, srv.URL+"/api/trades", map[string]any{
		"userId": user.ID, "asset": "BTC/USD", "direction": "up",
		"stake": 100, "duration": 60, "account": "demo",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trade models.ActiveTrade
	decodeBody(t, resp, &trade)
	require.Equal(t, models.DirectionUp, trade.Direction)

	var balance models.Balance
	getJSON(t, fmt.Sprintf("%s/api/balance?userId=%d", srv.URL, user.ID), &balance)
	require.Equal(t, 9900.0, balance.Demo, "stake debited through the HTTP flow")

	var active []models.ActiveTrade
	getJSON(t, fmt.Sprintf("%s/api/trades/active?userId=%d", srv.URL, user.ID), &active)
	require.Len(t, active, 1)

	require.Len(t, eng.ActiveTrades(user.ID, ""), 1)
}

func TestErrorStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unknown user -> 404.
	resp := getJSON(t, srv.URL+"/api/balance?userId=99", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Validation failure -> 400 with a message envelope.
	resp = postJSON(t, srv.URL+"/api/users/register", map[string]any{"name": "", "email": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &result)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Message)

	// Malformed body -> 400.
	malformed, err := http.Post(srv.URL+"/api/trades", "application/json", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	defer malformed.Body.Close()
	require.Equal(t, http.StatusBadRequest, malformed.StatusCode)

	// Wrong method on a command -> 405.
	resp = getJSON(t, srv.URL+"/api/users/register", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestVerificationOverHTTP(t *testing.T) {
	srv, eng := newTestServer(t)

	user, err := eng.RegisterUser("Ravi Kumar", "ravi@example.com", "")
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/api/accounts", map[string]any{
		"userId": user.ID, "type": "bank", "holderName": "Ravi Kumar",
		"accountNumber": "1234567890", "ifscCode": "HDFC0001234",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var account models.WithdrawalAccount
	decodeBody(t, resp, &account)
	require.Equal(t, models.AccountPending, account.Status)

	resp = postJSON(t, srv.URL+"/api/accounts/verify/initiate", map[string]any{
		"accountId": account.ID, "amount": 1.23,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/accounts/verify/confirm", map[string]any{
		"accountId": account.ID, "amount": 1.23,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &result)
	require.True(t, result.Success)
	require.Equal(t, "Bank account successfully verified!", result.Message)

	// Re-initiating a verified account conflicts.
	resp = postJSON(t, srv.URL+"/api/accounts/verify/initiate", map[string]any{
		"accountId": account.ID, "amount": 1.23,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTransactionsOverHTTP(t *testing.T) {
	srv, eng := newTestServer(t)

	user, err := eng.RegisterUser("Ravi Kumar", "ravi@example.com", "")
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/api/deposits", map[string]any{
		"userId": user.ID, "amount": 1000, "utr": "AAA111",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tx models.Transaction
	decodeBody(t, resp, &tx)
	require.Equal(t, models.StatusPending, tx.Status)

	resp = postJSON(t, srv.URL+"/api/transactions/approve", map[string]any{"id": tx.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var approved models.Transaction
	decodeBody(t, resp, &approved)
	require.Equal(t, models.StatusApproved, approved.Status)

	// Duplicate UTR comes back as a 200 with the rejected record.
	resp = postJSON(t, srv.URL+"/api/deposits", map[string]any{
		"userId": user.ID, "amount": 1000, "utr": "AAA111",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dup models.Transaction
	decodeBody(t, resp, &dup)

	resp = postJSON(t, srv.URL+"/api/transactions/approve", map[string]any{"id": dup.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dupResult struct {
		Success     bool               `json:"success"`
		Message     string             `json:"message"`
		Transaction models.Transaction `json:"transaction"`
	}
	decodeBody(t, resp, &dupResult)
	require.False(t, dupResult.Success)
	require.Equal(t, models.StatusRejected, dupResult.Transaction.Status)
	require.Contains(t, dupResult.Transaction.RejectionReason, "Duplicate UTR")

	var list []models.Transaction
	getJSON(t, fmt.Sprintf("%s/api/transactions?userId=%d", srv.URL, user.ID), &list)
	require.Len(t, list, 2)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var health struct {
		Status string `json:"status"`
	}
	resp := getJSON(t, srv.URL+"/health", &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, health.Status)
}
