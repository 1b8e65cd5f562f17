package model

import (
	"time"

	"github.com/google/uuid"
)

// WhatsAppOTP is an ephemeral verification code sent to a phone number.
// Rows are purged by the sweeper once past the retention period.
type WhatsAppOTP struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PhoneNumber string    `json:"phoneNumber" db:"phone_number"`
	OTPCode     string    `json:"-" db:"otp_code"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at"`
	Verified    bool      `json:"verified" db:"verified"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (o WhatsAppOTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
