package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "CREATED"
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusReturned   OrderStatus = "RETURNED"
)

// PaymentStatus is the money state of an order, tracked separately from
// fulfilment. REFUNDED is only set after the gateway confirms the refund.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// Order represents one customer checkout.
type Order struct {
	ID                     uuid.UUID     `json:"id" db:"id"`
	OrderNumber            string        `json:"orderNumber" db:"order_number"`
	UserID                 uuid.UUID     `json:"userId" db:"user_id"`
	CustomerPhone          string        `json:"customerPhone" db:"customer_phone"`
	ShippingAddress        string        `json:"shippingAddress" db:"shipping_address"`
	Status                 OrderStatus   `json:"status" db:"status"`
	PaymentStatus          PaymentStatus `json:"paymentStatus" db:"payment_status"`
	TotalAmount            float64       `json:"totalAmount" db:"total_amount"`
	PrimarySellerID        *uuid.UUID    `json:"primarySellerId,omitempty" db:"primary_seller_id"`
	SellerResponseDeadline *time.Time    `json:"sellerResponseDeadline,omitempty" db:"seller_response_deadline"`
	SellerPhone            *string       `json:"sellerPhone,omitempty" db:"seller_phone"`
	SellerNotified         bool          `json:"sellerNotified" db:"seller_notified"`
	AdminNotified          bool          `json:"adminNotified" db:"admin_notified"`
	CustomerNotified       bool          `json:"customerNotified" db:"customer_notified"`
	CancelledAt            *time.Time    `json:"cancelledAt,omitempty" db:"cancelled_at"`
	Notes                  string        `json:"notes" db:"notes"`
	CreatedAt              time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time     `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents one product line in an order.
type OrderItem struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	OrderID            uuid.UUID          `json:"orderId" db:"order_id"`
	ProductID          string             `json:"productId" db:"product_id"`
	ProductName        string             `json:"productName" db:"product_name"`
	SellerID           *uuid.UUID         `json:"sellerId,omitempty" db:"seller_id"`
	Price              float64            `json:"price" db:"price"`
	Quantity           int                `json:"quantity" db:"quantity"`
	ReturnWindowStatus ReturnWindowStatus `json:"returnWindowStatus" db:"return_window_status"`
	ReturnWindowStart  *time.Time         `json:"returnWindowStart,omitempty" db:"return_window_start"`
	ReturnWindowEnd    *time.Time         `json:"returnWindowEnd,omitempty" db:"return_window_end"`
	ReturnedAt         *time.Time         `json:"returnedAt,omitempty" db:"returned_at"`
	EarningsCreditedAt *time.Time         `json:"earningsCreditedAt,omitempty" db:"earnings_credited_at"`
}

// Amount returns the line total for the item.
func (i OrderItem) Amount() float64 {
	return i.Price * float64(i.Quantity)
}

// PaymentTransaction is an immutable ledger row recording a money movement
// against an order.
type PaymentTransaction struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"orderId" db:"order_id"`
	Kind        string    `json:"kind" db:"kind"` // PAYMENT or REFUND
	Reference   string    `json:"reference" db:"reference"`
	Amount      float64   `json:"amount" db:"amount"`
	GatewayName string    `json:"gatewayName" db:"gateway_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Payment transaction kinds.
const (
	TransactionKindPayment = "PAYMENT"
	TransactionKindRefund  = "REFUND"
)

// OrderStats summarises a seller's orders per status for the dashboard.
type OrderStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Shipped   int `json:"shipped"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
	Returned  int `json:"returned"`
}

// SellerOrdersResponse is the payload for the seller orders listing.
type SellerOrdersResponse struct {
	Orders []Order    `json:"orders"`
	Stats  OrderStats `json:"stats"`
}
