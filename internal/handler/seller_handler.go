package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"threadkart/internal/middleware"
	"threadkart/internal/model"
	"threadkart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SellerHandler serves the authenticated seller dashboard endpoints.
type SellerHandler struct {
	orderService      service.OrderService
	earningsService   service.EarningsService
	withdrawalService service.WithdrawalService
	logger            zerolog.Logger
}

// NewSellerHandler creates a new seller handler.
func NewSellerHandler(
	orderService service.OrderService,
	earningsService service.EarningsService,
	withdrawalService service.WithdrawalService,
	logger zerolog.Logger,
) *SellerHandler {
	return &SellerHandler{
		orderService:      orderService,
		earningsService:   earningsService,
		withdrawalService: withdrawalService,
		logger:            logger.With().Str("handler", "seller").Logger(),
	}
}

// Orders handles GET /api/seller/orders.
func (h *SellerHandler) Orders(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session", h.logger)
		return
	}

	var status *model.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := model.OrderStatus(s)
		status = &st
	}
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	resp, err := h.orderService.SellerOrders(r.Context(), sellerID, status, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReturnWindow handles GET /api/seller/earnings/return-window.
func (h *SellerHandler) ReturnWindow(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session", h.logger)
		return
	}

	query, err := parseReturnWindowQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	resp, err := h.earningsService.ReturnWindow(r.Context(), sellerID, query)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReturnWindowStatus handles GET /api/seller/earnings/return-window-status.
func (h *SellerHandler) ReturnWindowStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session", h.logger)
		return
	}

	query, err := parseReturnWindowQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	resp, err := h.earningsService.ReturnWindowStatus(r.Context(), sellerID, query)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// withdrawalListResponse is the payload for the withdrawal listing.
type withdrawalListResponse struct {
	Withdrawals []model.Withdrawal    `json:"withdrawals"`
	Balance     *model.BalanceSummary `json:"balance"`
}

// Withdrawals handles GET and POST /api/seller/withdrawals.
func (h *SellerHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.SellerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session", h.logger)
		return
	}

	if r.Method == http.MethodPost {
		var input model.WithdrawalInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload", h.logger)
			return
		}
		withdrawal, err := h.withdrawalService.Request(r.Context(), sellerID, &input)
		if err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusCreated, withdrawal)
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	withdrawals, balance, err := h.withdrawalService.List(r.Context(), sellerID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalListResponse{Withdrawals: withdrawals, Balance: balance})
}

// parseReturnWindowQuery reads the shared listing parameters.
func parseReturnWindowQuery(r *http.Request) (service.ReturnWindowQuery, error) {
	q := service.ReturnWindowQuery{
		Page:    queryInt(r, "page", 1),
		Limit:   queryInt(r, "limit", 10),
		SortBy:  r.URL.Query().Get("sortBy"),
		SortDir: r.URL.Query().Get("sortDir"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		st := model.ReturnWindowStatus(s)
		q.Status = &st
	}
	if o := r.URL.Query().Get("orderId"); o != "" {
		id, err := uuid.Parse(o)
		if err != nil {
			return q, err
		}
		q.OrderID = &id
	}
	return q, nil
}

// queryInt reads an integer query parameter, falling back on the default.
func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
