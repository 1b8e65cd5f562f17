package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnWindowStatus is the state of an item's customer return eligibility
// interval. ACTIVE transitions to exactly one of COMPLETED or RETURNED.
type ReturnWindowStatus string

const (
	ReturnWindowNotApplicable ReturnWindowStatus = "NOT_APPLICABLE"
	ReturnWindowActive        ReturnWindowStatus = "ACTIVE"
	ReturnWindowCompleted     ReturnWindowStatus = "COMPLETED"
	ReturnWindowReturned      ReturnWindowStatus = "RETURNED"
)

// EarningType distinguishes payouts credited at confirmation from payouts
// held until the item's return window closes.
type EarningType string

const (
	EarningTypeImmediate        EarningType = "IMMEDIATE"
	EarningTypePostReturnWindow EarningType = "POST_RETURN_WINDOW"
)

// SellerEarning is a ledger row linking a seller to an order item payout
// event. Rows are never mutated after creation except the credited flag.
type SellerEarning struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	SellerID          uuid.UUID   `json:"sellerId" db:"seller_id"`
	OrderItemID       uuid.UUID   `json:"orderItemId" db:"order_item_id"`
	Type              EarningType `json:"type" db:"type"`
	Amount            float64     `json:"amount" db:"amount"`
	Commission        float64     `json:"commission" db:"commission"`
	CreditedToBalance bool        `json:"creditedToBalance" db:"credited_to_balance"`
	CreditedAt        *time.Time  `json:"creditedAt,omitempty" db:"credited_at"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
}

// TimeRemaining is a human-oriented breakdown of the time left in a return
// window, clamped at zero once the window has elapsed.
type TimeRemaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ReturnWindowItem is an order item enriched with derived return-window
// fields for the seller dashboard.
type ReturnWindowItem struct {
	OrderItem
	OrderNumber    string         `json:"orderNumber"`
	TimeRemaining  TimeRemaining  `json:"timeRemaining"`
	Progress       float64        `json:"progress"` // percent elapsed, 0..100
	CreditedAmount *float64       `json:"creditedAmount,omitempty"`
	Earning        *SellerEarning `json:"earning,omitempty"`
}

// ReturnWindowDayGroup buckets return-window items by the calendar day their
// window closes.
type ReturnWindowDayGroup struct {
	Day   string             `json:"day"` // YYYY-MM-DD
	Items []ReturnWindowItem `json:"items"`
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ReturnWindowResponse is the payload for the return-window listing.
type ReturnWindowResponse struct {
	Items      []ReturnWindowItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// ReturnWindowStatusResponse is the payload for the grouped status view.
type ReturnWindowStatusResponse struct {
	Groups     []ReturnWindowDayGroup `json:"groups"`
	Pagination Pagination             `json:"pagination"`
}
