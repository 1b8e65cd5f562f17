package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"threadkart/internal/lifecycle"
	"threadkart/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeDomainError maps a service error to an HTTP response. Non-domain
// errors become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var illegal *lifecycle.ErrIllegalTransition
	if errors.As(err, &illegal) {
		logger.Warn().Err(err).Msg("illegal lifecycle transition")
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: "ILLEGAL_TRANSITION", Message: illegal.Error()})
		return
	}

	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("handler error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case model.ErrCodeOrderNotFound, model.ErrCodeItemNotFound, model.ErrCodeReturnNotFound:
		status = http.StatusNotFound
	case model.ErrCodeWindowClosed:
		status = http.StatusConflict
	case model.ErrCodeInvalidAmount, model.ErrCodeInsufficientFunds, model.ErrCodeMissingField, model.ErrCodeInvalidJSON:
		status = http.StatusBadRequest
	case model.ErrCodeInvalidOTP, model.ErrCodeOTPExpired, model.ErrCodeInvalidSignature, model.ErrCodeUnauthorised:
		status = http.StatusUnauthorized
	case model.ErrCodeForbidden:
		status = http.StatusForbidden
	}

	logger.Warn().Str("code", domainErr.Code).Int("status", status).Msg(domainErr.Message)
	writeJSON(w, status, model.ErrorResponse{Error: domainErr.Code, Message: domainErr.Message})
}
