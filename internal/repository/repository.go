package repository

import (
	"context"
	"time"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository defines order, item and payment-ledger data access.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetByOrderNumber retrieves an order by its external-facing number.
	// Returns nil without error when no order matches.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetByID retrieves an order by its internal id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetItems retrieves all items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// GetItem retrieves a single order item.
	GetItem(ctx context.Context, id uuid.UUID) (*model.OrderItem, error)

	// UpdateOrder persists the mutable fields of an order within the
	// provided transaction.
	UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// UpdateOrderFrom persists the order only while its stored status still
	// matches from. Returns false when another writer moved the order first.
	UpdateOrderFrom(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) (bool, error)

	// BackfillItemSellers fills missing order_items.seller_id values from
	// the product catalogue. Returns the number of rows repaired.
	BackfillItemSellers(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error)

	// SetReturnWindows opens the return window on all items of a delivered
	// order.
	SetReturnWindows(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, start, end time.Time) error

	// ClaimTimedOut atomically cancels and returns all orders past their
	// seller-response deadline that are still PENDING with a successful
	// payment. Concurrent callers never claim the same order twice.
	ClaimTimedOut(ctx context.Context, now time.Time, note string) ([]model.Order, error)

	// MarkRefunded flips the payment status to REFUNDED.
	MarkRefunded(ctx context.Context, orderID uuid.UUID) error

	// SetNotifiedFlag records successful delivery of a notification kind.
	SetNotifiedFlag(ctx context.Context, orderID uuid.UUID, kind model.NotificationKind) error

	// InsertTransaction appends a payment ledger row.
	InsertTransaction(ctx context.Context, txn *model.PaymentTransaction) error

	// ListBySeller lists a seller's orders, optionally filtered by status.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *model.OrderStatus, limit, offset int) ([]model.Order, error)

	// StatsBySeller counts a seller's orders per status.
	StatsBySeller(ctx context.Context, sellerID uuid.UUID) (*model.OrderStats, error)
}

// ReturnWindowFilter narrows the return-window listing queries.
type ReturnWindowFilter struct {
	Status  *model.ReturnWindowStatus
	OrderID *uuid.UUID
	SortBy  string // allow-listed column
	SortDir string // "asc" or "desc"
	Limit   int
	Offset  int
}

// EarningRepository defines seller-earning and return-window data access.
type EarningRepository interface {
	// InsertEarning appends a ledger row within the provided transaction.
	InsertEarning(ctx context.Context, tx pgx.Tx, earning *model.SellerEarning) error

	// GetByOrderItem retrieves the earning of the given type for an item.
	// Returns nil without error when none exists.
	GetByOrderItem(ctx context.Context, itemID uuid.UUID, earningType model.EarningType) (*model.SellerEarning, error)

	// ClaimExpiredReturnWindows atomically completes and returns all ACTIVE
	// items whose window has elapsed, within the provided transaction.
	ClaimExpiredReturnWindows(ctx context.Context, tx pgx.Tx, now time.Time) ([]model.OrderItem, error)

	// ListReturnWindowItems lists a seller's items with their order numbers.
	ListReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter ReturnWindowFilter) ([]model.OrderItem, map[uuid.UUID]string, error)

	// CountReturnWindowItems counts the rows the filter would match.
	CountReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter ReturnWindowFilter) (int, error)

	// BalanceSummary totals credited earnings and withdrawals for a seller.
	BalanceSummary(ctx context.Context, sellerID uuid.UUID) (*model.BalanceSummary, error)
}

// ReturnRepository defines return-request data access.
type ReturnRepository interface {
	// Create inserts a new return request.
	Create(ctx context.Context, req *model.ReturnRequest) error

	// GetByID retrieves a return request. Returns nil without error when no
	// request matches.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)

	// UpdateStatus persists a status change within the provided transaction.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.ReturnRequestStatus, resolvedAt time.Time) error

	// MarkItemReturned flips an ACTIVE item to RETURNED within the provided
	// transaction. Returns false when the item was not ACTIVE.
	MarkItemReturned(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, returnedAt time.Time) (bool, error)
}

// WithdrawalRepository defines seller payout request data access.
type WithdrawalRepository interface {
	// Create inserts a new withdrawal request.
	Create(ctx context.Context, w *model.Withdrawal) error

	// ListBySeller lists a seller's withdrawal requests, newest first.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.Withdrawal, error)
}

// OTPRepository defines WhatsApp OTP data access.
type OTPRepository interface {
	// Create inserts a new OTP row.
	Create(ctx context.Context, otp *model.WhatsAppOTP) error

	// GetActiveByPhone retrieves the most recent unverified OTP for a phone
	// number. Returns nil without error when none exists.
	GetActiveByPhone(ctx context.Context, phone string) (*model.WhatsAppOTP, error)

	// MarkVerified consumes an OTP.
	MarkVerified(ctx context.Context, id uuid.UUID) error

	// PurgeExpired deletes rows whose expiry is before the cutoff. Returns
	// the number of rows removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRepository defines notification outbox data access.
type OutboxRepository interface {
	// Enqueue inserts a pending notification within the provided transaction.
	Enqueue(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error

	// ClaimDue atomically claims up to limit pending messages that are due,
	// incrementing their attempt counter. Concurrent drainers never claim
	// the same message twice.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxMessage, error)

	// MarkSent records successful delivery.
	MarkSent(ctx context.Context, id uuid.UUID) error

	// Reschedule records a failed attempt. When park is true the message is
	// moved to FAILED and no longer drained.
	Reschedule(ctx context.Context, id uuid.UUID, nextAttempt time.Time, sendErr string, park bool) error
}
