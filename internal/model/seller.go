package model

import (
	"time"

	"github.com/google/uuid"
)

// Seller is a marketplace seller account.
type Seller struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SellerContact aggregates one seller's share of an order for notification
// fan-out: who to message and what their lines add up to.
type SellerContact struct {
	SellerID  uuid.UUID `json:"sellerId" db:"seller_id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	ItemCount int       `json:"itemCount" db:"item_count"`
	Amount    float64   `json:"amount" db:"amount"`
}
