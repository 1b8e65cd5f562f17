package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies which WhatsApp template a queued notification
// uses and which order flag is flipped when it is delivered.
type NotificationKind string

const (
	NotifySellerNewOrder      NotificationKind = "SELLER_NEW_ORDER"
	NotifyAdminNewOrder       NotificationKind = "ADMIN_NEW_ORDER"
	NotifyAdminSellerResponse NotificationKind = "ADMIN_SELLER_RESPONSE"
	NotifyCustomerConfirmed   NotificationKind = "CUSTOMER_CONFIRMED"
	NotifyCustomerCancelled   NotificationKind = "CUSTOMER_CANCELLED"

	// NotifyOTP is sent synchronously during login, never queued.
	NotifyOTP NotificationKind = "OTP"
)

// OutboxStatus is the delivery state of a queued notification.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
)

// OutboxMessage is a queued WhatsApp notification, written in the same
// transaction as the order state change it announces and drained
// asynchronously with retries.
type OutboxMessage struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	OrderID     uuid.UUID        `json:"orderId" db:"order_id"`
	Kind        NotificationKind `json:"kind" db:"kind"`
	Destination string           `json:"destination" db:"destination"`
	Params      []string         `json:"params" db:"params"`
	ImageURL    *string          `json:"imageUrl,omitempty" db:"image_url"`
	Status      OutboxStatus     `json:"status" db:"status"`
	Attempts    int              `json:"attempts" db:"attempts"`
	NextAttempt time.Time        `json:"nextAttempt" db:"next_attempt"`
	LastError   *string          `json:"lastError,omitempty" db:"last_error"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}
