package handler

import (
	"context"
	"net/http"

	"threadkart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminHandler serves the manual fulfilment endpoints.
type AdminHandler struct {
	orderService service.OrderService
	logger       zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(orderService service.OrderService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		orderService: orderService,
		logger:       logger.With().Str("handler", "admin").Logger(),
	}
}

// MarkProcessing handles POST /api/admin/orders/{id}/processing.
func (h *AdminHandler) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.orderService.MarkProcessing)
}

// MarkShipped handles POST /api/admin/orders/{id}/shipped.
func (h *AdminHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.orderService.MarkShipped)
}

// MarkDelivered handles POST /api/admin/orders/{id}/delivered.
func (h *AdminHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.orderService.MarkDelivered)
}

// advance parses the order id and applies one fulfilment step.
func (h *AdminHandler) advance(w http.ResponseWriter, r *http.Request, step func(ctx context.Context, orderID uuid.UUID) error) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", h.logger)
		return
	}

	if err := step(r.Context(), orderID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
