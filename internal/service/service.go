package service

import (
	"context"

	"threadkart/internal/model"

	"github.com/google/uuid"
)

// SellerReplyAction is the parsed intent of a WhatsApp button press.
type SellerReplyAction string

const (
	ActionAccept SellerReplyAction = "accept"
	ActionReject SellerReplyAction = "reject"
)

// SellerReplyResult reports what a seller button press did. Applied is false
// when the press was a replay or arrived after the order left PENDING.
type SellerReplyResult struct {
	OrderNumber string            `json:"orderNumber"`
	Action      SellerReplyAction `json:"action"`
	Applied     bool              `json:"applied"`
	Status      model.OrderStatus `json:"status"`
}

// OrderService drives the order lifecycle.
type OrderService interface {
	// HandlePaymentSuccess processes a successful-payment webhook for the
	// order. Replays are a no-op. Returns model.ErrOrderNotFound when the
	// order number is unknown.
	HandlePaymentSuccess(ctx context.Context, orderNumber string) error

	// HandleSellerReply processes a parsed WhatsApp button press.
	HandleSellerReply(ctx context.Context, action SellerReplyAction, orderNumber string) (*SellerReplyResult, error)

	// FinalizeTimeoutCancellation refunds and queues notifications for an
	// order the sweeper has already cancelled.
	FinalizeTimeoutCancellation(ctx context.Context, order *model.Order) error

	// MarkProcessing, MarkShipped and MarkDelivered advance fulfilment.
	// MarkDelivered opens return windows and credits immediate earnings for
	// final-sale items.
	MarkProcessing(ctx context.Context, orderID uuid.UUID) error
	MarkShipped(ctx context.Context, orderID uuid.UUID) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID) error

	// SellerOrders lists a seller's orders with per-status stats.
	SellerOrders(ctx context.Context, sellerID uuid.UUID, status *model.OrderStatus, limit, offset int) (*model.SellerOrdersResponse, error)
}

// ReturnWindowQuery carries the earnings listing parameters.
type ReturnWindowQuery struct {
	Status  *model.ReturnWindowStatus
	OrderID *uuid.UUID
	Page    int
	Limit   int
	SortBy  string
	SortDir string
}

// EarningsService is the read model over return windows and earnings.
type EarningsService interface {
	// ReturnWindow lists a seller's items enriched with time remaining,
	// progress and credited amounts.
	ReturnWindow(ctx context.Context, sellerID uuid.UUID, query ReturnWindowQuery) (*model.ReturnWindowResponse, error)

	// ReturnWindowStatus groups the same listing by the calendar day each
	// item's window closes.
	ReturnWindowStatus(ctx context.Context, sellerID uuid.UUID, query ReturnWindowQuery) (*model.ReturnWindowStatusResponse, error)
}

// ReturnService handles customer return requests.
type ReturnService interface {
	// Create opens a return request for an item whose window is ACTIVE.
	Create(ctx context.Context, userID uuid.UUID, input *model.ReturnRequestInput) (*model.ReturnRequest, error)

	// Approve flips the item to RETURNED, the order to RETURNED, and
	// initiates the item refund.
	Approve(ctx context.Context, requestID uuid.UUID) (*model.ReturnRequest, error)

	// Reject closes the request without touching the item.
	Reject(ctx context.Context, requestID uuid.UUID) (*model.ReturnRequest, error)
}

// WithdrawalService handles seller payout requests.
type WithdrawalService interface {
	// Request creates a PENDING withdrawal after checking the available
	// balance.
	Request(ctx context.Context, sellerID uuid.UUID, input *model.WithdrawalInput) (*model.Withdrawal, error)

	// List returns a seller's withdrawals and current balance.
	List(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.Withdrawal, *model.BalanceSummary, error)
}

// AuthService handles WhatsApp OTP login for sellers.
type AuthService interface {
	// SendOTP generates and delivers a verification code.
	SendOTP(ctx context.Context, phone string) error

	// VerifyOTP consumes a code and returns a signed session token.
	VerifyOTP(ctx context.Context, phone, code string) (string, error)
}
