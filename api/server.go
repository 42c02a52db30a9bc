package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"options_venue/engine"
	"options_venue/errs"
	"options_venue/metrics"
	"options_venue/models"
	"options_venue/monitoring"
	"options_venue/utils"
	"options_venue/ws"
)

// Server exposes the venue over HTTP. Queries return their payload
// directly; commands return a commandResult envelope.
type Server struct {
	engine *engine.Engine
	hub    *ws.Hub
	log    *zap.SugaredLogger
}

func NewServer(eng *engine.Engine, hub *ws.Hub, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{engine: eng, hub: hub, log: logger}
}

// Handler builds the full route table wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", monitoring.HealthCheckHandler)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.Handler)
	}

	mux.HandleFunc("/api/assets", s.handleAssets)
	mux.HandleFunc("/api/ticks", s.handleTicks)
	mux.HandleFunc("/api/candles", s.handleCandles)
	mux.HandleFunc("/api/balance", s.handleBalance)

	mux.HandleFunc("/api/users/register", s.handleRegister)
	mux.HandleFunc("/api/users/block", s.handleBlock)

	mux.HandleFunc("/api/trades", s.handlePlaceTrade)
	mux.HandleFunc("/api/trades/active", s.handleActiveTrades)
	mux.HandleFunc("/api/trades/history", s.handleTradeHistory)

	mux.HandleFunc("/api/deposits", s.handleDeposit)
	mux.HandleFunc("/api/withdrawals", s.handleWithdrawal)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/approve", s.handleApprove)
	mux.HandleFunc("/api/transactions/reject", s.handleReject)

	mux.HandleFunc("/api/accounts", s.handleAccounts)
	mux.HandleFunc("/api/accounts/remove", s.handleRemoveAccount)
	mux.HandleFunc("/api/accounts/verify/initiate", s.handleVerifyInitiate)
	mux.HandleFunc("/api/accounts/verify/confirm", s.handleVerifyConfirm)
	mux.HandleFunc("/api/accounts/verify/manual", s.handleVerifyManual)

	mux.HandleFunc("/api/admin/payout", s.handlePayout)
	mux.HandleFunc("/api/admin/balance/grant", s.handleGrant)
	mux.HandleFunc("/api/admin/balance/deduct", s.handleDeduct)
	mux.HandleFunc("/api/admin/settings", s.handleSettings)

	return utils.RequestLogger(mux)
}

type commandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Logger.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrInsufficientFunds),
		errors.Is(err, errs.ErrDuplicateReference):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidState):
		status = http.StatusConflict
	}
	writeJSON(w, status, commandResult{Success: false, Message: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commandResult{Success: false, Message: "method not allowed"})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errs.Validationf("invalid request body: %v", err))
		return false
	}
	return true
}

func queryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ticks, settled, persistErrors, uptime := metrics.GetStats()
	stats := map[string]any{
		"ticks_generated": ticks,
		"trades_settled":  settled,
		"persist_errors":  persistErrors,
		"uptime":          uptime.String(),
	}
	if s.hub != nil {
		stats["ws_clients"] = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Assets())
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	ticks, err := s.engine.Ticks(r.URL.Query().Get("asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticks)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	timeframe, _ := strconv.Atoi(r.URL.Query().Get("timeframe"))
	candles, err := s.engine.Candles(r.URL.Query().Get("asset"), timeframe)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candles)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.engine.Balance(queryInt64(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		ReferralCode string `json:"referralCode"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := s.engine.RegisterUser(req.Name, req.Email, req.ReferralCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int64 `json:"userId"`
		Blocked bool  `json:"blocked"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetUserBlocked(req.UserID, req.Blocked); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) handlePlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64              `json:"userId"`
		Asset     string             `json:"asset"`
		Direction models.Direction   `json:"direction"`
		Stake     float64            `json:"stake"`
		Duration  int                `json:"duration"`
		Account   models.AccountType `json:"account"`
	}
	if !decode(w, r, &req) {
		return
	}
	trade, err := s.engine.PlaceTrade(req.UserID, req.Asset, req.Direction, req.Stake, req.Duration, req.Account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleActiveTrades(w http.ResponseWriter, r *http.Request) {
	account := models.AccountType(r.URL.Query().Get("account"))
	writeJSON(w, http.StatusOK, s.engine.ActiveTrades(queryInt64(r, "userId"), account))
}

func (s *Server) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.TradeHistory(queryInt64(r, "userId")))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64   `json:"userId"`
		Amount float64 `json:"amount"`
		UTR    string  `json:"utr"`
	}
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.engine.RequestDeposit(req.UserID, req.Amount, req.UTR)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64   `json:"userId"`
		Amount    float64 `json:"amount"`
		AccountID string  `json:"accountId"`
	}
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.engine.RequestWithdrawal(req.UserID, req.Amount, req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.TransactionList(queryInt64(r, "userId")))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.engine.ApproveTransaction(req.ID)
	if err != nil {
		// The transaction may have been auto-rejected; surface both
		// the final record and the reason.
		if tx.Status == models.StatusRejected {
			writeJSON(w, http.StatusOK, struct {
				commandResult
				Transaction models.Transaction `json:"transaction"`
			}{commandResult{Success: false, Message: err.Error()}, tx})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.engine.RejectTransaction(req.ID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.engine.WithdrawalAccounts(queryInt64(r, "userId")))
	case http.MethodPost:
		var req struct {
			UserID        int64                        `json:"userId"`
			Type          models.WithdrawalAccountType `json:"type"`
			Holder        string                       `json:"holderName"`
			AccountNumber string                       `json:"accountNumber"`
			IFSCCode      string                       `json:"ifscCode"`
			UPIID         string                       `json:"upiId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errs.Validationf("invalid request body: %v", err))
			return
		}
		account, err := s.engine.AddWithdrawalAccount(req.UserID, req.Type, req.Holder, req.AccountNumber, req.IFSCCode, req.UPIID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, commandResult{Success: false, Message: "method not allowed"})
	}
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64  `json:"userId"`
		AccountID string `json:"accountId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.RemoveWithdrawalAccount(req.UserID, req.AccountID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) handleVerifyInitiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string  `json:"accountId"`
		Amount    float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.engine.InitiateVerification(req.AccountID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true, Message: msg})
}

func (s *Server) handleVerifyConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string  `json:"accountId"`
		Amount    float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.engine.SubmitVerificationAmount(req.AccountID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true, Message: msg})
}

func (s *Server) handleVerifyManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Verified  bool   `json:"verified"`
	}
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.engine.ManualVerificationDecision(req.AccountID, req.Verified)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true, Message: msg})
}

func (s *Server) handlePayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset  string  `json:"asset"`
		Payout float64 `json:"payout"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.UpdateAssetPayout(req.Asset, req.Payout); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64   `json:"userId"`
		Amount float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.GrantBalance(req.UserID, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) handleDeduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64   `json:"userId"`
		Amount float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.DeductBalance(req.UserID, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.engine.Settings())
	case http.MethodPost:
		var settings engine.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, errs.Validationf("invalid request body: %v", err))
			return
		}
		s.engine.UpdateSettings(settings)
		writeJSON(w, http.StatusOK, commandResult{Success: true})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, commandResult{Success: false, Message: "method not allowed"})
	}
}
