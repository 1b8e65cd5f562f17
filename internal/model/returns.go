package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnRequestStatus is the state of a customer-initiated return.
type ReturnRequestStatus string

const (
	ReturnRequestPending   ReturnRequestStatus = "PENDING"
	ReturnRequestApproved  ReturnRequestStatus = "APPROVED"
	ReturnRequestRejected  ReturnRequestStatus = "REJECTED"
	ReturnRequestCompleted ReturnRequestStatus = "COMPLETED"
)

// ReturnRequest links a user, an order and one of its items to a return
// decision. Approval flips the item's return window to RETURNED and the
// order to RETURNED.
type ReturnRequest struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	UserID      uuid.UUID           `json:"userId" db:"user_id"`
	OrderID     uuid.UUID           `json:"orderId" db:"order_id"`
	OrderItemID uuid.UUID           `json:"orderItemId" db:"order_item_id"`
	Reason      string              `json:"reason" db:"reason"`
	Status      ReturnRequestStatus `json:"status" db:"status"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty" db:"resolved_at"`
	CreatedAt   time.Time           `json:"createdAt" db:"created_at"`
}

// ReturnRequestInput is the request payload for opening a return.
type ReturnRequestInput struct {
	OrderItemID uuid.UUID `json:"orderItemId"`
	Reason      string    `json:"reason"`
}
