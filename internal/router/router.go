package router

import (
	"net/http"

	"threadkart/internal/config"
	"threadkart/internal/handler"
	"threadkart/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	webhookHandler *handler.WebhookHandler,
	sellerHandler *handler.SellerHandler,
	returnHandler *handler.ReturnHandler,
	adminHandler *handler.AdminHandler,
	authHandler *handler.AuthHandler,
	authCfg config.AuthConfig,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Gateway callbacks authenticate themselves: Cashfree by signature,
	// Gupshup by callback URL validation.
	mux.HandleFunc("POST /api/payment-webhook", webhookHandler.PaymentWebhook)
	mux.HandleFunc("GET /api/gupshup-reply", webhookHandler.GupshupReply)
	mux.HandleFunc("POST /api/gupshup-reply", webhookHandler.GupshupReply)

	// OTP login
	mux.HandleFunc("POST /api/auth/otp/send", authHandler.SendOTP)
	mux.HandleFunc("POST /api/auth/otp/verify", authHandler.VerifyOTP)

	// Customer return requests
	mux.HandleFunc("POST /api/returns", returnHandler.Create)

	// Seller dashboard, behind the session cookie
	sellerAuth := middleware.SellerAuth(authCfg.JWTSecret, logger)
	mux.Handle("GET /api/seller/orders", sellerAuth(http.HandlerFunc(sellerHandler.Orders)))
	mux.Handle("GET /api/seller/earnings/return-window", sellerAuth(http.HandlerFunc(sellerHandler.ReturnWindow)))
	mux.Handle("GET /api/seller/earnings/return-window-status", sellerAuth(http.HandlerFunc(sellerHandler.ReturnWindowStatus)))
	mux.Handle("GET /api/seller/withdrawals", sellerAuth(http.HandlerFunc(sellerHandler.Withdrawals)))
	mux.Handle("POST /api/seller/withdrawals", sellerAuth(http.HandlerFunc(sellerHandler.Withdrawals)))

	// Admin operations, behind the API key
	adminAuth := middleware.AdminAPIKey(authCfg.AdminAPIKey, logger)
	mux.Handle("POST /api/admin/orders/{id}/processing", adminAuth(http.HandlerFunc(adminHandler.MarkProcessing)))
	mux.Handle("POST /api/admin/orders/{id}/shipped", adminAuth(http.HandlerFunc(adminHandler.MarkShipped)))
	mux.Handle("POST /api/admin/orders/{id}/delivered", adminAuth(http.HandlerFunc(adminHandler.MarkDelivered)))
	mux.Handle("POST /api/admin/returns/{id}/approve", adminAuth(http.HandlerFunc(returnHandler.Approve)))
	mux.Handle("POST /api/admin/returns/{id}/reject", adminAuth(http.HandlerFunc(returnHandler.Reject)))

	// Apply middleware in order: Recovery -> Logging -> CORS
	var h http.Handler = mux
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
