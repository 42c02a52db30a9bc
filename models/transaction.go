package models

// TransactionKind separates money-in from money-out requests.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus. A transaction leaves Pending exactly once.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "Pending"
	StatusApproved TransactionStatus = "Approved"
	StatusRejected TransactionStatus = "Rejected"
)

// Transaction is a deposit or withdrawal request. Deposits carry the
// payer-supplied UTR reference used for duplicate detection;
// withdrawals snapshot the destination account details at request
// time so later edits to the account cannot redirect the payout.
type Transaction struct {
	ID                  string            `json:"id"`
	UserID              int64             `json:"userId"`
	Kind                TransactionKind   `json:"kind"`
	Amount              float64           `json:"amount"`
	Status              TransactionStatus `json:"status"`
	Date                int64             `json:"date"`
	UTR                 string            `json:"utr,omitempty"`
	WithdrawalAccountID string            `json:"withdrawalAccountId,omitempty"`
	AccountNumber       string            `json:"accountNumber,omitempty"`
	IFSCCode            string            `json:"ifscCode,omitempty"`
	UPIID               string            `json:"upiId,omitempty"`
	RejectionReason     string            `json:"rejectionReason,omitempty"`
}
