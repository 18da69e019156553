package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// TransactionType is the kind of money movement
type TransactionType string

const (
	TransactionTypeContribution TransactionType = "contribution"
	TransactionTypeTransfer     TransactionType = "transfer"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeConversion   TransactionType = "conversion"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeContribution, TransactionTypeTransfer, TransactionTypeWithdrawal,
		TransactionTypeDeposit, TransactionTypeConversion:
		return true
	}
	return false
}

// TransactionStatus represents the settlement state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// DisplayStillProcessing is shown for pending rows older than the settlement window
const DisplayStillProcessing = "still_processing"

// Transaction is one ledger movement. Terminal rows are never mutated.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	IdempotencyKey    string            `json:"idempotencyKey"`
	FromWalletID      *uuid.UUID        `json:"fromWalletId,omitempty"`
	ToWalletID        *uuid.UUID        `json:"toWalletId,omitempty"`
	Amount            Money             `json:"amount"`
	Fee               Money             `json:"fee"`
	NetAmount         Money             `json:"netAmount"`
	Currency          string            `json:"currency"`
	Type              TransactionType   `json:"transactionType"`
	Status            TransactionStatus `json:"status"`
	ExternalReference null.String       `json:"externalReference"`
	Method            null.String       `json:"method"`
	InitiatedBy       *uuid.UUID        `json:"initiatedBy,omitempty"`
	FailureReason     null.String       `json:"failureReason"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
}

// DisplayStatus is the status a client should render. A pending row older
// than window reads "still_processing"; it is never failed by a timer.
func (t *Transaction) DisplayStatus(now time.Time, window time.Duration) string {
	if t.Status == TransactionStatusPending && window > 0 && now.Sub(t.CreatedAt) > window {
		return DisplayStillProcessing
	}
	return string(t.Status)
}

// EntryDirection is the side of a ledger posting
type EntryDirection string

const (
	EntryDebit  EntryDirection = "debit"
	EntryCredit EntryDirection = "credit"
)

// LedgerEntry is the immutable posting appended for every credit or debit
type LedgerEntry struct {
	ID            uuid.UUID      `json:"id"`
	TransactionID uuid.UUID      `json:"transactionId"`
	WalletID      uuid.UUID      `json:"walletId"`
	Direction     EntryDirection `json:"direction"`
	Amount        Money          `json:"amount"`
	BalanceAfter  Money          `json:"balanceAfter"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TransferRequest is the HTTP payload for an internal movement
type TransferRequest struct {
	FromWalletID  uuid.UUID         `json:"fromWalletId" binding:"required"`
	ToWalletID    uuid.UUID         `json:"toWalletId" binding:"required"`
	Amount        Money             `json:"amount"`
	Type          TransactionType   `json:"transactionType"`
	Pin           string            `json:"pin"`
	AdminOverride bool              `json:"adminOverride"`
	Metadata      map[string]string `json:"metadata"`
}

// WithdrawRequest is the HTTP payload for moving funds out of the system
type WithdrawRequest struct {
	Amount      Money  `json:"amount"`
	Method      string `json:"method" binding:"required"`
	Destination string `json:"destination"`
	Pin         string `json:"pin"`
}

// InitializePaymentRequest is the HTTP payload for an external deposit
type InitializePaymentRequest struct {
	WalletID uuid.UUID         `json:"walletId" binding:"required"`
	Amount   Money             `json:"amount"`
	Email    string            `json:"email" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}
