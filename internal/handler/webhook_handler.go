package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"threadkart/internal/model"
	"threadkart/internal/payment"
	"threadkart/internal/service"

	"github.com/rs/zerolog"
)

// maxWebhookBody caps webhook request bodies.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment gateway and WhatsApp gateway callbacks.
type WebhookHandler struct {
	orderService  service.OrderService
	webhookSecret string
	logger        zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(orderService service.OrderService, webhookSecret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		orderService:  orderService,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("handler", "webhook").Logger(),
	}
}

type webhookOrder struct {
	OrderID     string  `json:"order_id"`
	OrderAmount float64 `json:"order_amount"`
}

type webhookPayment struct {
	PaymentStatus string `json:"payment_status"`
}

// paymentWebhook is the subset of the Cashfree payload the handler reads.
// Cashfree wraps order and payment in a "data" envelope, but some callbacks
// carry them at the top level, so both placements are accepted.
type paymentWebhook struct {
	Type    string         `json:"type"`
	Order   webhookOrder   `json:"order"`
	Payment webhookPayment `json:"payment"`
	Data    struct {
		Order   webhookOrder   `json:"order"`
		Payment webhookPayment `json:"payment"`
	} `json:"data"`
}

// order returns the order block wherever the gateway put it.
func (p *paymentWebhook) order() webhookOrder {
	if p.Data.Order.OrderID != "" {
		return p.Data.Order
	}
	return p.Order
}

// payment returns the payment block matching the order block's placement.
func (p *paymentWebhook) payment() webhookPayment {
	if p.Data.Order.OrderID != "" {
		return p.Data.Payment
	}
	return p.Payment
}

// PaymentWebhook handles POST /api/payment-webhook. The gateway retries on
// non-2xx, so anything the handler cannot act on deliberately (unknown
// status, replay) still returns 200.
func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", h.logger)
		return
	}

	signature := r.Header.Get("x-webhook-signature")
	timestamp := r.Header.Get("x-webhook-timestamp")
	if !payment.VerifyWebhookSignature(h.webhookSecret, timestamp, rawBody, signature) {
		h.logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("payment webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Error: model.ErrCodeInvalidSignature})
		return
	}

	var payload paymentWebhook
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
		return
	}
	orderNumber := payload.order().OrderID
	if orderNumber == "" {
		writeError(w, http.StatusBadRequest, "missing order_id", h.logger)
		return
	}

	if payload.payment().PaymentStatus != "SUCCESS" {
		h.logger.Info().
			Str("order_number", orderNumber).
			Str("payment_status", payload.payment().PaymentStatus).
			Msg("ignoring non-success payment webhook")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.orderService.HandlePaymentSuccess(r.Context(), orderNumber); err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeDomainError(w, err, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process payment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// gupshupReply is the subset of the Gupshup inbound message payload the
// handler reads. Button presses arrive as type "button_reply" with the
// button id nested one level down.
type gupshupReply struct {
	App    string `json:"app"`
	Type   string `json:"type"`
	Sender struct {
		Phone string `json:"phone"`
	} `json:"sender"`
	Payload struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Payload struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"payload"`
	} `json:"payload"`
}

// buttonID returns the pressed button's id wherever Gupshup put it.
func (g *gupshupReply) buttonID() string {
	if g.Payload.Payload.ID != "" {
		return g.Payload.Payload.ID
	}
	return g.Payload.ID
}

// GupshupReply handles /api/gupshup-reply. Gupshup validates the callback
// URL with a GET, which is acknowledged without a body.
func (h *WebhookHandler) GupshupReply(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload gupshupReply
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
		return
	}

	if payload.Type != "message" || payload.Payload.Type != "button_reply" {
		h.logger.Debug().Str("type", payload.Type).Msg("ignoring non-button gupshup callback")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	action, orderNumber, err := service.ParseButtonID(payload.buttonID())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	result, err := h.orderService.HandleSellerReply(r.Context(), action, orderNumber)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeDomainError(w, err, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process seller reply", h.logger)
		return
	}

	if !result.Applied {
		h.logger.Info().
			Str("order_number", orderNumber).
			Str("action", string(action)).
			Str("status", string(result.Status)).
			Msg("seller reply arrived after order left pending, ignoring")
	}
	writeJSON(w, http.StatusOK, result)
}
