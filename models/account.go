package models

// WithdrawalAccountType is the payout rail of a withdrawal account.
type WithdrawalAccountType string

const (
	AccountTypeBank WithdrawalAccountType = "bank"
	AccountTypeUPI  WithdrawalAccountType = "upi"
)

// AccountStatus is the verification state of a withdrawal account.
// verified and rejected are terminal.
type AccountStatus string

const (
	AccountPending              AccountStatus = "pending"
	AccountAwaitingVerification AccountStatus = "awaiting_verification"
	AccountVerified             AccountStatus = "verified"
	AccountRejected             AccountStatus = "rejected"
)

// MaxVerificationAttempts caps micro-deposit confirmation retries.
// The third miss rejects the account.
const MaxVerificationAttempts = 3

// WithdrawalAccount is a bank or UPI destination owned by a user. An
// admin sets VerificationAmount once when initiating verification; the
// owner must echo it back exactly to reach verified. Only verified
// accounts are eligible as withdrawal destinations.
type WithdrawalAccount struct {
	ID                   string                `json:"id"`
	UserID               int64                 `json:"userId"`
	AccountType          WithdrawalAccountType `json:"accountType"`
	HolderName           string                `json:"accountHolderName"`
	AccountNumber        string                `json:"accountNumber,omitempty"`
	IFSCCode             string                `json:"ifscCode,omitempty"`
	UPIID                string                `json:"upiId,omitempty"`
	Status               AccountStatus         `json:"status"`
	RejectionReason      string                `json:"rejectionReason,omitempty"`
	VerificationAmount   float64               `json:"verificationAmount,omitempty"`
	VerificationAttempts int                   `json:"verificationAttempts"`
}

// Terminal reports whether the account can no longer change state on
// its own (admin override excluded, which also refuses terminal states).
func (a *WithdrawalAccount) Terminal() bool {
	return a.Status == AccountVerified || a.Status == AccountRejected
}
