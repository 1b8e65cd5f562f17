package handler

import (
	"encoding/json"
	"net/http"

	"threadkart/internal/model"
	"threadkart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReturnHandler serves customer return requests and their admin resolution.
type ReturnHandler struct {
	returnService service.ReturnService
	logger        zerolog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(returnService service.ReturnService, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		returnService: returnService,
		logger:        logger.With().Str("handler", "return").Logger(),
	}
}

// createReturnRequest is the request payload for opening a return.
type createReturnRequest struct {
	UserID uuid.UUID `json:"userId"`
	model.ReturnRequestInput
}

// Create handles POST /api/returns.
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
		return
	}
	if req.UserID == uuid.Nil || req.OrderItemID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "userId and orderItemId are required", h.logger)
		return
	}

	request, err := h.returnService.Create(r.Context(), req.UserID, &req.ReturnRequestInput)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// Approve handles POST /api/admin/returns/{id}/approve.
func (h *ReturnHandler) Approve(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid return request id", h.logger)
		return
	}

	request, err := h.returnService.Approve(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// Reject handles POST /api/admin/returns/{id}/reject.
func (h *ReturnHandler) Reject(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid return request id", h.logger)
		return
	}

	request, err := h.returnService.Reject(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
