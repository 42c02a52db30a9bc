// Package bank drives the money-movement side of the venue: the
// micro-deposit verification of withdrawal accounts and the approval
// of deposit/withdrawal requests.
package bank

import (
	"fmt"
	"sync"

	"options_venue/errs"
	"options_venue/models"

	"github.com/google/uuid"
)

// Accounts is the withdrawal-account verification state machine:
// pending -> awaiting_verification -> verified | rejected. An admin
// seeds the micro-deposit amount; the owner must echo it back exactly.
// Three misses reject the account for good.
type Accounts struct {
	mtx      sync.Mutex
	accounts map[string]models.WithdrawalAccount
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[string]models.WithdrawalAccount)}
}

// Add registers a new account in pending state.
func (a *Accounts) Add(userID int64, accountType models.WithdrawalAccountType, holder, accountNumber, ifsc, upiID string) (models.WithdrawalAccount, error) {
	if holder == "" {
		return models.WithdrawalAccount{}, errs.Validationf("account holder name is required")
	}
	switch accountType {
	case models.AccountTypeBank:
		if accountNumber == "" || ifsc == "" {
			return models.WithdrawalAccount{}, errs.Validationf("bank accounts need an account number and IFSC code")
		}
	case models.AccountTypeUPI:
		if upiID == "" {
			return models.WithdrawalAccount{}, errs.Validationf("UPI accounts need a UPI id")
		}
	default:
		return models.WithdrawalAccount{}, errs.Validationf("unknown account type %q", accountType)
	}

	account := models.WithdrawalAccount{
		ID:            uuid.New().String(),
		UserID:        userID,
		AccountType:   accountType,
		HolderName:    holder,
		AccountNumber: accountNumber,
		IFSCCode:      ifsc,
		UPIID:         upiID,
		Status:        models.AccountPending,
	}

	a.mtx.Lock()
	a.accounts[account.ID] = account
	a.mtx.Unlock()
	return account, nil
}

// Remove deletes an account owned by userID.
func (a *Accounts) Remove(userID int64, accountID string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok || account.UserID != userID {
		return errs.NotFoundf("withdrawal account %s", accountID)
	}
	delete(a.accounts, accountID)
	return nil
}

func (a *Accounts) Get(accountID string) (models.WithdrawalAccount, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok {
		return models.WithdrawalAccount{}, errs.NotFoundf("withdrawal account %s", accountID)
	}
	return account, nil
}

// ListByUser returns the accounts owned by a user.
func (a *Accounts) ListByUser(userID int64) []models.WithdrawalAccount {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	out := make([]models.WithdrawalAccount, 0)
	for _, acc := range a.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	return out
}

// InitiateVerification moves a pending account to
// awaiting_verification, storing the micro-deposit amount and
// resetting the attempt counter. Valid only from pending.
func (a *Accounts) InitiateVerification(accountID string, amount float64) (string, error) {
	if amount <= 0 {
		return "", errs.Validationf("verification amount must be positive, got %.2f", amount)
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok {
		return "", errs.NotFoundf("withdrawal account %s", accountID)
	}
	if account.Status != models.AccountPending {
		return "", errs.InvalidStatef("account is %s, verification can only start from pending", account.Status)
	}

	account.Status = models.AccountAwaitingVerification
	account.VerificationAmount = amount
	account.VerificationAttempts = 0
	a.accounts[accountID] = account

	return fmt.Sprintf("Verification initiated. User must now confirm ₹%.2f.", amount), nil
}

// SubmitVerificationAmount is the owner echoing the micro-deposit
// back. An exact match verifies the account; the third miss rejects
// it permanently.
func (a *Accounts) SubmitVerificationAmount(accountID string, amount float64) (string, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok {
		return "", errs.NotFoundf("withdrawal account %s", accountID)
	}
	if account.Status != models.AccountAwaitingVerification {
		return "", errs.InvalidStatef("this account is not awaiting verification")
	}

	if account.VerificationAmount == amount {
		account.Status = models.AccountVerified
		account.RejectionReason = ""
		a.accounts[accountID] = account
		return "Bank account successfully verified!", nil
	}

	account.VerificationAttempts++
	if account.VerificationAttempts >= models.MaxVerificationAttempts {
		account.Status = models.AccountRejected
		account.RejectionReason = "Too many incorrect verification attempts."
		a.accounts[accountID] = account
		return "", errs.Validationf("too many incorrect attempts, the account has been rejected")
	}

	a.accounts[accountID] = account
	return "", errs.Validationf("incorrect amount, %d attempt(s) left",
		models.MaxVerificationAttempts-account.VerificationAttempts)
}

// ManualDecision is the admin override: verify or reject directly,
// bypassing attempt counting. Valid from any non-terminal state.
func (a *Accounts) ManualDecision(accountID string, verified bool) (string, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok {
		return "", errs.NotFoundf("withdrawal account %s", accountID)
	}
	if account.Terminal() {
		return "", errs.InvalidStatef("account is already %s", account.Status)
	}

	if verified {
		account.Status = models.AccountVerified
		account.RejectionReason = ""
		a.accounts[accountID] = account
		return "Account manually approved.", nil
	}
	account.Status = models.AccountRejected
	account.RejectionReason = "Account was rejected by admin."
	a.accounts[accountID] = account
	return "Account has been rejected.", nil
}

// VerifiedAccount resolves an account that is owned by userID and
// eligible as a withdrawal destination.
func (a *Accounts) VerifiedAccount(userID int64, accountID string) (models.WithdrawalAccount, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	account, ok := a.accounts[accountID]
	if !ok || account.UserID != userID {
		return models.WithdrawalAccount{}, errs.NotFoundf("withdrawal account %s", accountID)
	}
	if account.Status != models.AccountVerified {
		return models.WithdrawalAccount{}, errs.InvalidStatef("withdrawal account is %s, only verified accounts can receive payouts", account.Status)
	}
	return account, nil
}

// Snapshot copies all accounts for persistence.
func (a *Accounts) Snapshot() []models.WithdrawalAccount {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	out := make([]models.WithdrawalAccount, 0, len(a.accounts))
	for _, acc := range a.accounts {
		out = append(out, acc)
	}
	return out
}

// Restore replaces the accounts with a persisted snapshot.
func (a *Accounts) Restore(accounts []models.WithdrawalAccount) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.accounts = make(map[string]models.WithdrawalAccount, len(accounts))
	for _, acc := range accounts {
		a.accounts[acc.ID] = acc
	}
}
