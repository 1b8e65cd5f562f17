package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeReturnNotFound     = "RETURN_NOT_FOUND"
	ErrCodeWindowClosed       = "RETURN_WINDOW_CLOSED"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvalidOTP         = "INVALID_OTP"
	ErrCodeOTPExpired         = "OTP_EXPIRED"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure that handlers map to an HTTP status.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrItemNotFound      = NewDomainError(ErrCodeItemNotFound, "Order item not found")
	ErrReturnNotFound    = NewDomainError(ErrCodeReturnNotFound, "Return request not found")
	ErrWindowClosed      = NewDomainError(ErrCodeWindowClosed, "Return window is no longer active")
	ErrInsufficientFunds = NewDomainError(ErrCodeInsufficientFunds, "Requested amount exceeds available balance")
	ErrInvalidAmount     = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero")
	ErrInvalidOTP        = NewDomainError(ErrCodeInvalidOTP, "Verification code does not match")
	ErrOTPExpired        = NewDomainError(ErrCodeOTPExpired, "Verification code has expired")
)
