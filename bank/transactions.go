package bank

import (
	"sort"
	"sync"
	"time"

	"options_venue/errs"
	"options_venue/ledger"
	"options_venue/metrics"
	"options_venue/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserDirectory resolves users for block checks and referrer lookups.
type UserDirectory interface {
	Get(id int64) (models.User, error)
}

// Limits bounds request amounts at submission time.
type Limits struct {
	MinDeposit    float64
	MaxDeposit    float64
	MinWithdrawal float64
	MaxWithdrawal float64
}

// Transactions is the approval engine for deposit and withdrawal
// requests. A transaction leaves Pending exactly once: to Approved,
// or to Rejected with a specific human-readable reason (including
// approvals that convert to rejections on a duplicate UTR or
// insufficient funds).
type Transactions struct {
	mtx  sync.Mutex
	list []models.Transaction

	ledger      *ledger.Ledger
	users       UserDirectory
	accounts    *Accounts
	limits      func() Limits
	referralPct func() float64
	now         func() time.Time
	log         *zap.SugaredLogger
}

type TransactionsParams struct {
	Ledger      *ledger.Ledger
	Users       UserDirectory
	Accounts    *Accounts
	Limits      func() Limits
	ReferralPct func() float64
	Now         func() time.Time
	Logger      *zap.SugaredLogger
}

func NewTransactions(p TransactionsParams) *Transactions {
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	return &Transactions{
		ledger:      p.Ledger,
		users:       p.Users,
		accounts:    p.Accounts,
		limits:      p.Limits,
		referralPct: p.ReferralPct,
		now:         p.Now,
		log:         p.Logger,
	}
}

// RequestDeposit files a pending deposit carrying the payer's UTR
// reference.
func (t *Transactions) RequestDeposit(userID int64, amount float64, utr string) (models.Transaction, error) {
	user, err := t.users.Get(userID)
	if err != nil {
		return models.Transaction{}, err
	}
	if user.Blocked {
		return models.Transaction{}, errs.Validationf("account is blocked")
	}
	if utr == "" {
		return models.Transaction{}, errs.Validationf("UTR reference is required")
	}
	limits := t.limits()
	if amount < limits.MinDeposit || amount > limits.MaxDeposit {
		return models.Transaction{}, errs.Validationf("deposit amount must be between %.2f and %.2f", limits.MinDeposit, limits.MaxDeposit)
	}

	tx := models.Transaction{
		ID:     uuid.New().String(),
		UserID: userID,
		Kind:   models.KindDeposit,
		Amount: amount,
		Status: models.StatusPending,
		Date:   t.now().UnixMilli(),
		UTR:    utr,
	}
	t.append(tx)
	return tx, nil
}

// RequestWithdrawal files a pending withdrawal to a verified account
// owned by the user, snapshotting the destination details.
func (t *Transactions) RequestWithdrawal(userID int64, amount float64, withdrawalAccountID string) (models.Transaction, error) {
	user, err := t.users.Get(userID)
	if err != nil {
		return models.Transaction{}, err
	}
	if user.Blocked {
		return models.Transaction{}, errs.Validationf("account is blocked")
	}
	limits := t.limits()
	if amount < limits.MinWithdrawal || amount > limits.MaxWithdrawal {
		return models.Transaction{}, errs.Validationf("withdrawal amount must be between %.2f and %.2f", limits.MinWithdrawal, limits.MaxWithdrawal)
	}
	if t.ledger.Balance(userID).Real < amount {
		return models.Transaction{}, errs.ErrInsufficientFunds
	}

	account, err := t.accounts.VerifiedAccount(userID, withdrawalAccountID)
	if err != nil {
		return models.Transaction{}, err
	}

	tx := models.Transaction{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Kind:                models.KindWithdrawal,
		Amount:              amount,
		Status:              models.StatusPending,
		Date:                t.now().UnixMilli(),
		WithdrawalAccountID: account.ID,
		AccountNumber:       account.AccountNumber,
		IFSCCode:            account.IFSCCode,
		UPIID:               account.UPIID,
	}
	t.append(tx)
	return tx, nil
}

// Approve decides a pending transaction. Deposit approvals reject on
// a reused UTR; withdrawal approvals reject when the real balance no
// longer covers the amount. In both cases the transaction lands in
// Rejected with the specific reason, not a generic error.
func (t *Transactions) Approve(transactionID string) (models.Transaction, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	idx, err := t.pendingIndexLocked(transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	tx := t.list[idx]

	switch tx.Kind {
	case models.KindDeposit:
		if t.utrAlreadyApprovedLocked(tx) {
			tx.Status = models.StatusRejected
			tx.RejectionReason = "Duplicate UTR code. This transaction ID has already been used for a previous deposit."
			t.list[idx] = tx
			metrics.IncrementTransactions(string(tx.Kind), string(tx.Status))
			return tx, errs.ErrDuplicateReference
		}

		if err := t.ledger.Credit(tx.UserID, tx.Amount, models.AccountReal); err != nil {
			return models.Transaction{}, err
		}
		tx.Status = models.StatusApproved
		t.list[idx] = tx
		metrics.IncrementTransactions(string(tx.Kind), string(tx.Status))
		t.payReferralCommission(tx)
		return tx, nil

	case models.KindWithdrawal:
		if err := t.ledger.Debit(tx.UserID, tx.Amount, models.AccountReal); err != nil {
			tx.Status = models.StatusRejected
			tx.RejectionReason = "User has insufficient funds for this withdrawal."
			t.list[idx] = tx
			metrics.IncrementTransactions(string(tx.Kind), string(tx.Status))
			return tx, errs.ErrInsufficientFunds
		}
		tx.Status = models.StatusApproved
		t.list[idx] = tx
		metrics.IncrementTransactions(string(tx.Kind), string(tx.Status))
		return tx, nil

	default:
		return models.Transaction{}, errs.Validationf("unknown transaction kind %q", tx.Kind)
	}
}

// Reject declines a pending transaction with a human-readable reason.
func (t *Transactions) Reject(transactionID, reason string) (models.Transaction, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	idx, err := t.pendingIndexLocked(transactionID)
	if err != nil {
		return models.Transaction{}, err
	}

	tx := t.list[idx]
	if reason == "" {
		reason = "Something went wrong, please try again later. If the error repeats, please contact our support service."
	}
	tx.Status = models.StatusRejected
	tx.RejectionReason = reason
	t.list[idx] = tx
	metrics.IncrementTransactions(string(tx.Kind), string(tx.Status))
	return tx, nil
}

// List returns transactions newest first, optionally filtered by user
// (0 matches all).
func (t *Transactions) List(userID int64) []models.Transaction {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	out := make([]models.Transaction, 0, len(t.list))
	for _, tx := range t.list {
		if userID != 0 && tx.UserID != userID {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Snapshot copies the transaction list for persistence.
func (t *Transactions) Snapshot() []models.Transaction {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	out := make([]models.Transaction, len(t.list))
	copy(out, t.list)
	return out
}

// Restore replaces the transactions with a persisted snapshot.
func (t *Transactions) Restore(list []models.Transaction) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.list = make([]models.Transaction, len(list))
	copy(t.list, list)
	t.sortLocked()
}

func (t *Transactions) append(tx models.Transaction) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.list = append(t.list, tx)
	t.sortLocked()
}

func (t *Transactions) sortLocked() {
	sort.SliceStable(t.list, func(i, j int) bool {
		return t.list[i].Date > t.list[j].Date
	})
}

func (t *Transactions) pendingIndexLocked(transactionID string) (int, error) {
	for i, tx := range t.list {
		if tx.ID == transactionID {
			if tx.Status != models.StatusPending {
				return 0, errs.InvalidStatef("transaction is already %s", tx.Status)
			}
			return i, nil
		}
	}
	return 0, errs.NotFoundf("transaction %s", transactionID)
}

// utrAlreadyApprovedLocked reports whether another approved deposit,
// by any user, already consumed this transaction's UTR.
func (t *Transactions) utrAlreadyApprovedLocked(tx models.Transaction) bool {
	for _, other := range t.list {
		if other.ID == tx.ID {
			continue
		}
		if other.Kind == models.KindDeposit && other.Status == models.StatusApproved && other.UTR != "" && other.UTR == tx.UTR {
			return true
		}
	}
	return false
}

// payReferralCommission credits the depositor's referrer directly on
// the ledger. There is deliberately no transaction record for it; the
// credit is logged and counted instead.
func (t *Transactions) payReferralCommission(tx models.Transaction) {
	user, err := t.users.Get(tx.UserID)
	if err != nil || user.ReferrerID == 0 {
		return
	}

	commission := tx.Amount * t.referralPct() / 100
	if commission <= 0 {
		return
	}
	if err := t.ledger.Credit(user.ReferrerID, commission, models.AccountReal); err != nil {
		t.log.Errorw("Referral commission credit failed",
			"referrer_id", user.ReferrerID, "error", err)
		return
	}

	metrics.IncrementReferralCommissions()
	t.log.Infow("Referral commission paid",
		"depositor_id", tx.UserID,
		"referrer_id", user.ReferrerID,
		"deposit", tx.Amount,
		"commission", commission,
	)
}
