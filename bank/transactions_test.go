package bank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"options_venue/errs"
	"options_venue/ledger"
	"options_venue/models"
)

type fakeUsers struct {
	users map[int64]models.User
}

func (f *fakeUsers) Get(id int64) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, errs.NotFoundf("user %d", id)
	}
	return u, nil
}

type bankFixture struct {
	tx       *Transactions
	ledger   *ledger.Ledger
	accounts *Accounts
	users    *fakeUsers
	nowMs    int64
}

func newBankFixture(t *testing.T) *bankFixture {
	t.Helper()

	f := &bankFixture{
		ledger:   ledger.New(10000),
		accounts: NewAccounts(),
		users: &fakeUsers{users: map[int64]models.User{
			1: {ID: 1, Name: "Ravi Kumar", Email: "ravi@example.com"},
			2: {ID: 2, Name: "Priya Singh", Email: "priya@example.com"},
			// User 3 was referred by user 1.
			3: {ID: 3, Name: "Amit Shah", Email: "amit@example.com", ReferrerID: 1},
			4: {ID: 4, Name: "Blocked", Email: "blocked@example.com", Blocked: true},
		}},
		nowMs: 1_700_000_000_000,
	}
	f.tx = NewTransactions(TransactionsParams{
		Ledger:   f.ledger,
		Users:    f.users,
		Accounts: f.accounts,
		Limits: func() Limits {
			return Limits{MinDeposit: 100, MaxDeposit: 50000, MinWithdrawal: 500, MaxWithdrawal: 25000}
		},
		ReferralPct: func() float64 { return 1 },
		Now: func() time.Time {
			f.nowMs++
			return time.UnixMilli(f.nowMs)
		},
	})
	return f
}

func (f *bankFixture) verifiedAccount(t *testing.T, userID int64) models.WithdrawalAccount {
	t.Helper()
	account, err := f.accounts.Add(userID, models.AccountTypeBank, "Holder", "1234567890", "HDFC0001234", "")
	require.NoError(t, err)
	_, err = f.accounts.ManualDecision(account.ID, true)
	require.NoError(t, err)
	return account
}

func TestDepositRequestValidation(t *testing.T) {
	f := newBankFixture(t)

	_, err := f.tx.RequestDeposit(99, 1000, "UTR1")
	require.ErrorIs(t, err, errs.ErrNotFound, "unknown user")

	_, err = f.tx.RequestDeposit(4, 1000, "UTR1")
	require.ErrorIs(t, err, errs.ErrValidation, "blocked user")

	_, err = f.tx.RequestDeposit(1, 1000, "")
	require.ErrorIs(t, err, errs.ErrValidation, "missing UTR")

	_, err = f.tx.RequestDeposit(1, 99, "UTR1")
	require.ErrorIs(t, err, errs.ErrValidation, "below minimum")

	_, err = f.tx.RequestDeposit(1, 50001, "UTR1")
	require.ErrorIs(t, err, errs.ErrValidation, "above maximum")
}

func TestDepositApproveCreditsRealBalance(t *testing.T) {
	f := newBankFixture(t)

	tx, err := f.tx.RequestDeposit(1, 1000, "UTR1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, tx.Status)
	require.Equal(t, 0.0, f.ledger.Balance(1).Real, "no credit before approval")

	approved, err := f.tx.Approve(tx.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)
	require.Equal(t, 1000.0, f.ledger.Balance(1).Real)
}

func TestDuplicateUTRAutoRejects(t *testing.T) {
	f := newBankFixture(t)

	first, err := f.tx.RequestDeposit(1, 1000, "AAA111")
	require.NoError(t, err)
	_, err = f.tx.Approve(first.ID)
	require.NoError(t, err)

	// A different user reusing the same UTR.
	second, err := f.tx.RequestDeposit(2, 2000, "AAA111")
	require.NoError(t, err)

	rejected, err := f.tx.Approve(second.ID)
	require.ErrorIs(t, err, errs.ErrDuplicateReference)
	require.Equal(t, models.StatusRejected, rejected.Status)
	require.Equal(t, "Duplicate UTR code. This transaction ID has already been used for a previous deposit.", rejected.RejectionReason)
	require.Equal(t, 0.0, f.ledger.Balance(2).Real, "no credit on a duplicate")

	// The decision is terminal.
	_, err = f.tx.Approve(second.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestRejectedDepositFreesItsUTR(t *testing.T) {
	f := newBankFixture(t)

	first, err := f.tx.RequestDeposit(1, 1000, "BBB222")
	require.NoError(t, err)
	_, err = f.tx.Reject(first.ID, "Payment not received.")
	require.NoError(t, err)

	// Only approved deposits consume a UTR.
	second, err := f.tx.RequestDeposit(1, 1000, "BBB222")
	require.NoError(t, err)
	approved, err := f.tx.Approve(second.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)
}

func TestReferralCommissionOnApprovedDeposit(t *testing.T) {
	f := newBankFixture(t)

	tx, err := f.tx.RequestDeposit(3, 1000, "CCC333")
	require.NoError(t, err)
	_, err = f.tx.Approve(tx.ID)
	require.NoError(t, err)

	require.Equal(t, 1000.0, f.ledger.Balance(3).Real, "depositor gets the full amount")
	require.Equal(t, 10.0, f.ledger.Balance(1).Real, "referrer gets 1% of it")

	// No transaction record is written for the commission.
	require.Empty(t, f.tx.List(1))
}

func TestNoCommissionWithoutReferrer(t *testing.T) {
	f := newBankFixture(t)

	tx, err := f.tx.RequestDeposit(2, 1000, "DDD444")
	require.NoError(t, err)
	_, err = f.tx.Approve(tx.ID)
	require.NoError(t, err)

	require.Equal(t, 0.0, f.ledger.Balance(1).Real)
}

func TestWithdrawalRequestValidation(t *testing.T) {
	f := newBankFixture(t)
	account := f.verifiedAccount(t, 1)
	require.NoError(t, f.ledger.Credit(1, 5000, models.AccountReal))

	_, err := f.tx.RequestWithdrawal(1, 499, account.ID)
	require.ErrorIs(t, err, errs.ErrValidation, "below minimum")

	_, err = f.tx.RequestWithdrawal(1, 25001, account.ID)
	require.ErrorIs(t, err, errs.ErrValidation, "above maximum")

	_, err = f.tx.RequestWithdrawal(1, 6000, account.ID)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds, "cannot request more than the balance")

	_, err = f.tx.RequestWithdrawal(4, 1000, account.ID)
	require.ErrorIs(t, err, errs.ErrValidation, "blocked user")
}

func TestWithdrawalRequiresVerifiedAccount(t *testing.T) {
	f := newBankFixture(t)
	require.NoError(t, f.ledger.Credit(1, 5000, models.AccountReal))

	pending, err := f.accounts.Add(1, models.AccountTypeBank, "Holder", "1234567890", "HDFC0001234", "")
	require.NoError(t, err)

	_, err = f.tx.RequestWithdrawal(1, 1000, pending.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	other := f.verifiedAccount(t, 2)
	_, err = f.tx.RequestWithdrawal(1, 1000, other.ID)
	require.ErrorIs(t, err, errs.ErrNotFound, "cannot withdraw to another user's account")
}

func TestWithdrawalSnapshotsDestination(t *testing.T) {
	f := newBankFixture(t)
	account := f.verifiedAccount(t, 1)
	require.NoError(t, f.ledger.Credit(1, 5000, models.AccountReal))

	tx, err := f.tx.RequestWithdrawal(1, 1000, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, tx.WithdrawalAccountID)
	require.Equal(t, "1234567890", tx.AccountNumber)
	require.Equal(t, "HDFC0001234", tx.IFSCCode)
}

func TestWithdrawalApproveDebitsAtDecisionTime(t *testing.T) {
	f := newBankFixture(t)
	account := f.verifiedAccount(t, 1)
	require.NoError(t, f.ledger.Credit(1, 5000, models.AccountReal))

	tx, err := f.tx.RequestWithdrawal(1, 1000, account.ID)
	require.NoError(t, err)
	require.Equal(t, 5000.0, f.ledger.Balance(1).Real, "no debit until approval")

	approved, err := f.tx.Approve(tx.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)
	require.Equal(t, 4000.0, f.ledger.Balance(1).Real)
}

func TestWithdrawalApproveRejectsWhenFundsAreGone(t *testing.T) {
	f := newBankFixture(t)
	account := f.verifiedAccount(t, 1)
	require.NoError(t, f.ledger.Credit(1, 1000, models.AccountReal))

	tx, err := f.tx.RequestWithdrawal(1, 1000, account.ID)
	require.NoError(t, err)

	// The balance moves between request and decision.
	require.NoError(t, f.ledger.Debit(1, 600, models.AccountReal))

	rejected, err := f.tx.Approve(tx.ID)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	require.Equal(t, models.StatusRejected, rejected.Status)
	require.Equal(t, "User has insufficient funds for this withdrawal.", rejected.RejectionReason)
	require.Equal(t, 400.0, f.ledger.Balance(1).Real, "balance untouched by the failed approval")
}

func TestRejectUsesDefaultReason(t *testing.T) {
	f := newBankFixture(t)

	tx, err := f.tx.RequestDeposit(1, 1000, "EEE555")
	require.NoError(t, err)

	rejected, err := f.tx.Reject(tx.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, rejected.Status)
	require.Contains(t, rejected.RejectionReason, "contact our support service")

	custom, err := f.tx.RequestDeposit(1, 1000, "FFF666")
	require.NoError(t, err)
	rejected, err = f.tx.Reject(custom.ID, "Payment not received.")
	require.NoError(t, err)
	require.Equal(t, "Payment not received.", rejected.RejectionReason)
}

func TestDecideUnknownOrDecidedTransaction(t *testing.T) {
	f := newBankFixture(t)

	_, err := f.tx.Approve("missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	tx, err := f.tx.RequestDeposit(1, 1000, "GGG777")
	require.NoError(t, err)
	_, err = f.tx.Approve(tx.ID)
	require.NoError(t, err)

	_, err = f.tx.Approve(tx.ID)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = f.tx.Reject(tx.ID, "late")
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	f := newBankFixture(t)

	first, err := f.tx.RequestDeposit(1, 1000, "HHH888")
	require.NoError(t, err)
	second, err := f.tx.RequestDeposit(2, 1000, "III999")
	require.NoError(t, err)
	third, err := f.tx.RequestDeposit(1, 1000, "JJJ000")
	require.NoError(t, err)

	all := f.tx.List(0)
	require.Len(t, all, 3)
	require.Equal(t, third.ID, all[0].ID, "newest first")
	require.Equal(t, second.ID, all[1].ID)
	require.Equal(t, first.ID, all[2].ID)

	mine := f.tx.List(1)
	require.Len(t, mine, 2)
	require.Equal(t, third.ID, mine[0].ID)
}

func TestTransactionsSnapshotRestore(t *testing.T) {
	f := newBankFixture(t)

	tx, err := f.tx.RequestDeposit(1, 1000, "KKK111")
	require.NoError(t, err)

	restored := newBankFixture(t)
	restored.tx.Restore(f.tx.Snapshot())

	list := restored.tx.List(0)
	require.Len(t, list, 1)
	require.Equal(t, tx.ID, list[0].ID)

	// Pending state survives, so the decision still works.
	_, err = restored.tx.Approve(tx.ID)
	require.NoError(t, err)
	require.Equal(t, 1000.0, restored.ledger.Balance(1).Real)
}
