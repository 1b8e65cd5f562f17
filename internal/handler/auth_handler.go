package handler

import (
	"encoding/json"
	"net/http"

	"threadkart/internal/config"
	"threadkart/internal/middleware"
	"threadkart/internal/service"

	"github.com/rs/zerolog"
)

// AuthHandler serves the WhatsApp OTP login endpoints.
type AuthHandler struct {
	authService service.AuthService
	authCfg     config.AuthConfig
	logger      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, authCfg config.AuthConfig, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		authCfg:     authCfg,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// sendOTPRequest is the request payload for requesting a login code.
type sendOTPRequest struct {
	Phone string `json:"phone"`
}

// SendOTP handles POST /api/auth/otp/send. The response does not reveal
// whether the phone belongs to a registered seller.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required", h.logger)
		return
	}

	if err := h.authService.SendOTP(r.Context(), req.Phone); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// verifyOTPRequest is the request payload for verifying a login code.
type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyOTP handles POST /api/auth/otp/verify. On success the session token
// is set as an HTTP-only cookie.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
		return
	}
	if req.Phone == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "phone and code are required", h.logger)
		return
	}

	token, err := h.authService.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authCfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
