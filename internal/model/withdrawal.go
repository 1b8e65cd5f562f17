package model

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus is the state of a seller payout request. COMPLETED,
// FAILED and CANCELLED are terminal.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "PENDING"
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalFailed     WithdrawalStatus = "FAILED"
	WithdrawalCancelled  WithdrawalStatus = "CANCELLED"
)

// Withdrawal is a seller payout request against the credited earnings
// balance.
type Withdrawal struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	SellerID    uuid.UUID        `json:"sellerId" db:"seller_id"`
	Amount      float64          `json:"amount" db:"amount"`
	Status      WithdrawalStatus `json:"status" db:"status"`
	TransferRef *string          `json:"transferRef,omitempty" db:"transfer_ref"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// WithdrawalInput is the request payload for creating a withdrawal.
type WithdrawalInput struct {
	Amount float64 `json:"amount"`
}

// BalanceSummary reports a seller's credited earnings against withdrawals.
type BalanceSummary struct {
	CreditedEarnings float64 `json:"creditedEarnings"`
	Withdrawn        float64 `json:"withdrawn"`
	Available        float64 `json:"available"`
}
