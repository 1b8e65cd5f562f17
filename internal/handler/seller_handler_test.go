package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"threadkart/internal/middleware"
	"threadkart/internal/model"
	"threadkart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEarningsService is a mock implementation of EarningsService.
type MockEarningsService struct {
	mock.Mock
}

func (m *MockEarningsService) ReturnWindow(ctx context.Context, sellerID uuid.UUID, query service.ReturnWindowQuery) (*model.ReturnWindowResponse, error) {
	args := m.Called(ctx, sellerID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnWindowResponse), args.Error(1)
}

func (m *MockEarningsService) ReturnWindowStatus(ctx context.Context, sellerID uuid.UUID, query service.ReturnWindowQuery) (*model.ReturnWindowStatusResponse, error) {
	args := m.Called(ctx, sellerID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnWindowStatusResponse), args.Error(1)
}

// MockWithdrawalService is a mock implementation of WithdrawalService.
type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) Request(ctx context.Context, sellerID uuid.UUID, input *model.WithdrawalInput) (*model.Withdrawal, error) {
	args := m.Called(ctx, sellerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) List(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.Withdrawal, *model.BalanceSummary, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]model.Withdrawal), args.Get(1).(*model.BalanceSummary), args.Error(2)
}

func newSellerHandler(orders *MockOrderService, earnings *MockEarningsService, withdrawals *MockWithdrawalService) *SellerHandler {
	return NewSellerHandler(orders, earnings, withdrawals, zerolog.Nop())
}

func authenticatedRequest(method, target string, body *bytes.Buffer, sellerID uuid.UUID) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	return req.WithContext(middleware.WithSellerID(req.Context(), sellerID))
}

func TestSellerOrders(t *testing.T) {
	orderService := new(MockOrderService)
	h := newSellerHandler(orderService, new(MockEarningsService), new(MockWithdrawalService))
	sellerID := uuid.New()

	pending := model.OrderStatusPending
	orderService.On("SellerOrders", mock.Anything, sellerID, &pending, 5, 10).
		Return(&model.SellerOrdersResponse{
			Orders: []model.Order{},
			Stats:  model.OrderStats{Total: 7, Pending: 2},
		}, nil)

	req := authenticatedRequest(http.MethodGet, "/api/seller/orders?status=PENDING&limit=5&offset=10", nil, sellerID)
	w := httptest.NewRecorder()
	h.Orders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":7`)
	orderService.AssertExpectations(t)
}

func TestSellerOrders_Unauthenticated(t *testing.T) {
	h := newSellerHandler(new(MockOrderService), new(MockEarningsService), new(MockWithdrawalService))

	req := httptest.NewRequest(http.MethodGet, "/api/seller/orders", nil)
	w := httptest.NewRecorder()
	h.Orders(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReturnWindow_DefaultsAndFilters(t *testing.T) {
	earningsService := new(MockEarningsService)
	h := newSellerHandler(new(MockOrderService), earningsService, new(MockWithdrawalService))
	sellerID := uuid.New()
	orderID := uuid.New()

	active := model.ReturnWindowActive
	earningsService.On("ReturnWindow", mock.Anything, sellerID, service.ReturnWindowQuery{
		Status:  &active,
		OrderID: &orderID,
		Page:    1,
		Limit:   10,
	}).Return(&model.ReturnWindowResponse{
		Items:      []model.ReturnWindowItem{},
		Pagination: model.Pagination{Page: 1, Limit: 10},
	}, nil)

	target := "/api/seller/earnings/return-window?status=ACTIVE&orderId=" + orderID.String()
	req := authenticatedRequest(http.MethodGet, target, nil, sellerID)
	w := httptest.NewRecorder()
	h.ReturnWindow(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	earningsService.AssertExpectations(t)
}

func TestReturnWindow_BadOrderID(t *testing.T) {
	earningsService := new(MockEarningsService)
	h := newSellerHandler(new(MockOrderService), earningsService, new(MockWithdrawalService))

	req := authenticatedRequest(http.MethodGet, "/api/seller/earnings/return-window?orderId=not-a-uuid", nil, uuid.New())
	w := httptest.NewRecorder()
	h.ReturnWindow(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	earningsService.AssertNotCalled(t, "ReturnWindow", mock.Anything, mock.Anything, mock.Anything)
}

func TestReturnWindowStatus(t *testing.T) {
	earningsService := new(MockEarningsService)
	h := newSellerHandler(new(MockOrderService), earningsService, new(MockWithdrawalService))
	sellerID := uuid.New()

	earningsService.On("ReturnWindowStatus", mock.Anything, sellerID, service.ReturnWindowQuery{
		Page:  2,
		Limit: 10,
	}).Return(&model.ReturnWindowStatusResponse{
		Groups:     []model.ReturnWindowDayGroup{},
		Pagination: model.Pagination{Page: 2, Limit: 10},
	}, nil)

	req := authenticatedRequest(http.MethodGet, "/api/seller/earnings/return-window-status?page=2", nil, sellerID)
	w := httptest.NewRecorder()
	h.ReturnWindowStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	earningsService.AssertExpectations(t)
}

func TestWithdrawals_Create(t *testing.T) {
	withdrawalService := new(MockWithdrawalService)
	h := newSellerHandler(new(MockOrderService), new(MockEarningsService), withdrawalService)
	sellerID := uuid.New()

	withdrawalService.On("Request", mock.Anything, sellerID, &model.WithdrawalInput{Amount: 2500}).
		Return(&model.Withdrawal{
			ID:       uuid.New(),
			SellerID: sellerID,
			Amount:   2500,
			Status:   model.WithdrawalPending,
		}, nil)

	body := bytes.NewBufferString(`{"amount":2500}`)
	req := authenticatedRequest(http.MethodPost, "/api/seller/withdrawals", body, sellerID)
	w := httptest.NewRecorder()
	h.Withdrawals(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
	withdrawalService.AssertExpectations(t)
}

func TestWithdrawals_CreateInsufficientFunds(t *testing.T) {
	withdrawalService := new(MockWithdrawalService)
	h := newSellerHandler(new(MockOrderService), new(MockEarningsService), withdrawalService)
	sellerID := uuid.New()

	withdrawalService.On("Request", mock.Anything, sellerID, mock.Anything).
		Return(nil, model.ErrInsufficientFunds)

	body := bytes.NewBufferString(`{"amount":99999}`)
	req := authenticatedRequest(http.MethodPost, "/api/seller/withdrawals", body, sellerID)
	w := httptest.NewRecorder()
	h.Withdrawals(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdrawals_List(t *testing.T) {
	withdrawalService := new(MockWithdrawalService)
	h := newSellerHandler(new(MockOrderService), new(MockEarningsService), withdrawalService)
	sellerID := uuid.New()

	withdrawalService.On("List", mock.Anything, sellerID, 20, 0).
		Return([]model.Withdrawal{}, &model.BalanceSummary{
			CreditedEarnings: 4000,
			Withdrawn:        1000,
			Available:        3000,
		}, nil)

	req := authenticatedRequest(http.MethodGet, "/api/seller/withdrawals", nil, sellerID)
	w := httptest.NewRecorder()
	h.Withdrawals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":3000`)
	withdrawalService.AssertExpectations(t)
}

func TestWithdrawals_Unauthenticated(t *testing.T) {
	h := newSellerHandler(new(MockOrderService), new(MockEarningsService), new(MockWithdrawalService))

	req := httptest.NewRequest(http.MethodGet, "/api/seller/withdrawals", nil)
	w := httptest.NewRecorder()
	h.Withdrawals(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
