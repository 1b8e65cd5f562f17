package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/model"
	"threadkart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) GetItem(ctx context.Context, id uuid.UUID) (*model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateOrderFrom(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) (bool, error) {
	args := m.Called(ctx, tx, order, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) BackfillItemSellers(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) SetReturnWindows(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, start, end time.Time) error {
	args := m.Called(ctx, tx, orderID, start, end)
	return args.Error(0)
}

func (m *MockOrderRepository) ClaimTimedOut(ctx context.Context, now time.Time, note string) ([]model.Order, error) {
	args := m.Called(ctx, now, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkRefunded(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) SetNotifiedFlag(ctx context.Context, orderID uuid.UUID, kind model.NotificationKind) error {
	args := m.Called(ctx, orderID, kind)
	return args.Error(0)
}

func (m *MockOrderRepository) InsertTransaction(ctx context.Context, txn *model.PaymentTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockOrderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *model.OrderStatus, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, sellerID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) StatsBySeller(ctx context.Context, sellerID uuid.UUID) (*model.OrderStats, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStats), args.Error(1)
}

// MockSellerRepository is a mock implementation of SellerRepository.
type MockSellerRepository struct {
	mock.Mock
}

func (m *MockSellerRepository) GetByPhone(ctx context.Context, phone string) (*model.Seller, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seller), args.Error(1)
}

func (m *MockSellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seller), args.Error(1)
}

func (m *MockSellerRepository) ContactsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.SellerContact, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SellerContact), args.Error(1)
}

// MockEarningRepository is a mock implementation of EarningRepository.
type MockEarningRepository struct {
	mock.Mock
}

func (m *MockEarningRepository) InsertEarning(ctx context.Context, tx pgx.Tx, earning *model.SellerEarning) error {
	args := m.Called(ctx, tx, earning)
	return args.Error(0)
}

func (m *MockEarningRepository) GetByOrderItem(ctx context.Context, itemID uuid.UUID, earningType model.EarningType) (*model.SellerEarning, error) {
	args := m.Called(ctx, itemID, earningType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SellerEarning), args.Error(1)
}

func (m *MockEarningRepository) ClaimExpiredReturnWindows(ctx context.Context, tx pgx.Tx, now time.Time) ([]model.OrderItem, error) {
	args := m.Called(ctx, tx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockEarningRepository) ListReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter repository.ReturnWindowFilter) ([]model.OrderItem, map[uuid.UUID]string, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]model.OrderItem), args.Get(1).(map[uuid.UUID]string), args.Error(2)
}

func (m *MockEarningRepository) CountReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter repository.ReturnWindowFilter) (int, error) {
	args := m.Called(ctx, sellerID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockEarningRepository) BalanceSummary(ctx context.Context, sellerID uuid.UUID) (*model.BalanceSummary, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BalanceSummary), args.Error(1)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error {
	args := m.Called(ctx, tx, msg)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxMessage, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxMessage), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Reschedule(ctx context.Context, id uuid.UUID, nextAttempt time.Time, sendErr string, park bool) error {
	args := m.Called(ctx, id, nextAttempt, sendErr, park)
	return args.Error(0)
}

// MockRefunder is a mock implementation of payment.Refunder.
type MockRefunder struct {
	mock.Mock
}

func (m *MockRefunder) Refund(ctx context.Context, orderNumber, reference string, amount float64, note string) error {
	args := m.Called(ctx, orderNumber, reference, amount, note)
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

func testLifecycleConfig() config.LifecycleConfig {
	return config.LifecycleConfig{
		SellerResponseWindow: 3 * time.Minute,
		ReturnWindow:         24 * time.Hour,
		CommissionRate:       0.10,
		AdminPhone:           "919999999999",
		OTPTTL:               5 * time.Minute,
	}
}

type orderServiceFixture struct {
	orderRepo   *MockOrderRepository
	sellerRepo  *MockSellerRepository
	earningRepo *MockEarningRepository
	outboxRepo  *MockOutboxRepository
	refunder    *MockRefunder
	service     OrderService
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()
	f := &orderServiceFixture{
		orderRepo:   new(MockOrderRepository),
		sellerRepo:  new(MockSellerRepository),
		earningRepo: new(MockEarningRepository),
		outboxRepo:  new(MockOutboxRepository),
		refunder:    new(MockRefunder),
	}
	f.service = NewOrderService(f.orderRepo, f.sellerRepo, f.earningRepo, f.outboxRepo, f.refunder, testLifecycleConfig(), zerolog.Nop())
	return f
}

func newTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	tx.On("Rollback", mock.Anything).Return(nil)
	return tx
}

func TestParseButtonID(t *testing.T) {
	tests := []struct {
		name        string
		buttonID    string
		wantAction  SellerReplyAction
		wantOrder   string
		expectError bool
	}{
		{name: "Accept", buttonID: "accept_TK-1001", wantAction: ActionAccept, wantOrder: "TK-1001"},
		{name: "Reject", buttonID: "reject_TK-1001", wantAction: ActionReject, wantOrder: "TK-1001"},
		{name: "Unknown action", buttonID: "maybe_TK-1001", expectError: true},
		{name: "No separator", buttonID: "accept", expectError: true},
		{name: "Empty order number", buttonID: "accept_", expectError: true},
		{name: "Empty string", buttonID: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, orderNumber, err := ParseButtonID(tt.buttonID)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantOrder, orderNumber)
		})
	}
}

func TestHandlePaymentSuccess_MovesOrderToPending(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	primarySeller := uuid.New()
	phonelessSeller := uuid.New()
	order := &model.Order{
		ID:              uuid.New(),
		OrderNumber:     "TK-1001",
		CustomerPhone:   "919876543210",
		ShippingAddress: "12 MG Road, Indiranagar",
		Status:          model.OrderStatusCreated,
		PaymentStatus:   model.PaymentStatusPending,
		TotalAmount:     2400,
	}
	contacts := []model.SellerContact{
		{SellerID: primarySeller, Name: "Asha", Phone: "918888888888", ItemCount: 2, Amount: 2000},
		{SellerID: phonelessSeller, Name: "Ravi", Phone: "", ItemCount: 1, Amount: 400},
	}
	items := []model.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, ProductName: "Linen Kurta", Quantity: 2},
		{ID: uuid.New(), OrderID: order.ID, ProductName: "Silk Scarf", Quantity: 1},
	}

	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("BackfillItemSellers", mock.Anything, tx, order.ID).Return(int64(1), nil)
	f.sellerRepo.On("ContactsForOrder", mock.Anything, tx, order.ID).Return(contacts, nil)
	f.orderRepo.On("GetItems", mock.Anything, order.ID).Return(items, nil)
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusPending &&
			o.PaymentStatus == model.PaymentStatusSuccessful &&
			o.SellerResponseDeadline != nil &&
			o.PrimarySellerID != nil && *o.PrimarySellerID == primarySeller
	}), model.OrderStatusCreated).Return(true, nil)
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifySellerNewOrder && msg.Destination == "918888888888"
	})).Return(nil).Once()
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyAdminNewOrder && msg.Destination == "919999999999"
	})).Return(nil).Once()
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyCustomerConfirmed && msg.Destination == "919876543210"
	})).Return(nil).Once()
	f.orderRepo.On("InsertTransaction", mock.Anything, mock.MatchedBy(func(txn *model.PaymentTransaction) bool {
		return txn.Kind == model.TransactionKindPayment && txn.Reference == "payment_TK-1001" && txn.Amount == 2400
	})).Return(nil)

	err := f.service.HandlePaymentSuccess(context.Background(), "TK-1001")

	require.NoError(t, err)
	// One row per seller with a phone, one admin row, one customer row. The
	// phoneless seller gets none.
	f.outboxRepo.AssertNumberOfCalls(t, "Enqueue", 3)
	f.orderRepo.AssertExpectations(t)
	f.outboxRepo.AssertExpectations(t)
}

func TestHandlePaymentSuccess_ConcurrentDeliveryIsNoOp(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		CustomerPhone: "919876543210",
		Status:        model.OrderStatusCreated,
		PaymentStatus: model.PaymentStatusPending,
		TotalAmount:   2400,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("BackfillItemSellers", mock.Anything, tx, order.ID).Return(int64(0), nil)
	f.sellerRepo.On("ContactsForOrder", mock.Anything, tx, order.ID).Return([]model.SellerContact{}, nil)
	f.orderRepo.On("GetItems", mock.Anything, order.ID).Return([]model.OrderItem{}, nil)
	// Another delivery of the same webhook committed first.
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.Anything, model.OrderStatusCreated).Return(false, nil)

	err := f.service.HandlePaymentSuccess(context.Background(), "TK-1001")

	require.NoError(t, err)
	f.outboxRepo.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, tx.rolledBack)
}

func TestHandlePaymentSuccess_ReplayIsNoOp(t *testing.T) {
	f := newOrderServiceFixture(t)

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusSuccessful,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)

	err := f.service.HandlePaymentSuccess(context.Background(), "TK-1001")

	require.NoError(t, err)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
	f.outboxRepo.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePaymentSuccess_UnknownOrder(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-9999").Return(nil, nil)

	err := f.service.HandlePaymentSuccess(context.Background(), "TK-9999")

	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestHandleSellerReply_Accept(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusSuccessful,
		TotalAmount:   2400,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusConfirmed && o.SellerNotified
	}), model.OrderStatusPending).Return(true, nil)
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyAdminSellerResponse && msg.Params[1] == "ACCEPTED"
	})).Return(nil)

	result, err := f.service.HandleSellerReply(context.Background(), ActionAccept, "TK-1001")

	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.OrderStatusConfirmed, result.Status)
	f.refunder.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSellerReply_AcceptRacingSweepNotApplied(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	pending := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusSuccessful,
		TotalAmount:   2400,
	}
	cancelled := &model.Order{
		ID:            pending.ID,
		OrderNumber:   "TK-1001",
		Status:        model.OrderStatusCancelled,
		PaymentStatus: model.PaymentStatusRefunded,
		TotalAmount:   2400,
	}
	// The read sees PENDING, but the timeout sweep cancels and refunds the
	// order before the accept is written.
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(pending, nil).Once()
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.Anything, model.OrderStatusPending).Return(false, nil)
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(cancelled, nil).Once()

	result, err := f.service.HandleSellerReply(context.Background(), ActionAccept, "TK-1001")

	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	assert.True(t, tx.rolledBack)
	f.outboxRepo.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	f.refunder.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSellerReply_RejectRefundsAndCancels(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		CustomerPhone: "919876543210",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusSuccessful,
		TotalAmount:   2400,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusCancelled && o.CancelledAt != nil
	}), model.OrderStatusPending).Return(true, nil)
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyCustomerCancelled && msg.Destination == "919876543210"
	})).Return(nil).Once()
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyAdminSellerResponse && msg.Params[1] == "REJECTED"
	})).Return(nil).Once()
	f.refunder.On("Refund", mock.Anything, "TK-1001", "refund_TK-1001", 2400.0, mock.Anything).Return(nil)
	f.orderRepo.On("MarkRefunded", mock.Anything, order.ID).Return(nil)
	f.orderRepo.On("InsertTransaction", mock.Anything, mock.MatchedBy(func(txn *model.PaymentTransaction) bool {
		return txn.Kind == model.TransactionKindRefund && txn.Reference == "refund_TK-1001"
	})).Return(nil)

	result, err := f.service.HandleSellerReply(context.Background(), ActionReject, "TK-1001")

	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	f.refunder.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestHandleSellerReply_RefundFailureLeavesPaymentStatus(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		CustomerPhone: "919876543210",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusSuccessful,
		TotalAmount:   2400,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("UpdateOrderFrom", mock.Anything, tx, mock.Anything, model.OrderStatusPending).Return(true, nil)
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.Anything).Return(nil)
	f.refunder.On("Refund", mock.Anything, "TK-1001", "refund_TK-1001", 2400.0, mock.Anything).
		Return(errors.New("gateway unavailable"))

	result, err := f.service.HandleSellerReply(context.Background(), ActionReject, "TK-1001")

	// The cancellation stands; the payment status stays SUCCESSFUL for
	// reconciliation to find.
	require.NoError(t, err)
	assert.True(t, result.Applied)
	f.orderRepo.AssertNotCalled(t, "MarkRefunded", mock.Anything, mock.Anything)
}

func TestHandleSellerReply_LatePressNotApplied(t *testing.T) {
	f := newOrderServiceFixture(t)

	order := &model.Order{
		ID:          uuid.New(),
		OrderNumber: "TK-1001",
		Status:      model.OrderStatusCancelled,
	}
	f.orderRepo.On("GetByOrderNumber", mock.Anything, "TK-1001").Return(order, nil)

	result, err := f.service.HandleSellerReply(context.Background(), ActionAccept, "TK-1001")

	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.OrderStatusCancelled, result.Status)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestFinalizeTimeoutCancellation(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	order := &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "TK-1001",
		CustomerPhone: "919876543210",
		Status:        model.OrderStatusCancelled,
		PaymentStatus: model.PaymentStatusSuccessful,
		TotalAmount:   1500,
	}
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyCustomerCancelled
	})).Return(nil).Once()
	f.outboxRepo.On("Enqueue", mock.Anything, tx, mock.MatchedBy(func(msg *model.OutboxMessage) bool {
		return msg.Kind == model.NotifyAdminSellerResponse && msg.Params[1] == "TIMED_OUT"
	})).Return(nil).Once()
	f.refunder.On("Refund", mock.Anything, "TK-1001", "refund_TK-1001", 1500.0, mock.Anything).Return(nil)
	f.orderRepo.On("MarkRefunded", mock.Anything, order.ID).Return(nil)
	f.orderRepo.On("InsertTransaction", mock.Anything, mock.Anything).Return(nil)

	err := f.service.FinalizeTimeoutCancellation(context.Background(), order)

	require.NoError(t, err)
	f.outboxRepo.AssertExpectations(t)
	f.refunder.AssertExpectations(t)
}

func TestMarkDelivered_OpensWindowsAndCreditsFinalSale(t *testing.T) {
	f := newOrderServiceFixture(t)
	tx := newTx()

	orderID := uuid.New()
	sellerID := uuid.New()
	order := &model.Order{ID: orderID, OrderNumber: "TK-1001", Status: model.OrderStatusShipped}
	items := []model.OrderItem{
		// Final-sale item, credited immediately.
		{ID: uuid.New(), OrderID: orderID, SellerID: &sellerID, Price: 800, Quantity: 1, ReturnWindowStatus: model.ReturnWindowNotApplicable},
		// Returnable item, held until the window closes.
		{ID: uuid.New(), OrderID: orderID, SellerID: &sellerID, Price: 1200, Quantity: 1, ReturnWindowStatus: model.ReturnWindowActive},
	}

	f.orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)
	f.orderRepo.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orderRepo.On("UpdateOrder", mock.Anything, tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusDelivered
	})).Return(nil)
	f.orderRepo.On("SetReturnWindows", mock.Anything, tx, orderID, mock.Anything, mock.Anything).Return(nil)
	f.orderRepo.On("GetItems", mock.Anything, orderID).Return(items, nil)
	f.earningRepo.On("InsertEarning", mock.Anything, tx, mock.MatchedBy(func(e *model.SellerEarning) bool {
		return e.Type == model.EarningTypeImmediate &&
			e.OrderItemID == items[0].ID &&
			e.Amount == 720 && // 800 minus 10% commission
			e.Commission == 80 &&
			e.CreditedToBalance
	})).Return(nil).Once()

	err := f.service.MarkDelivered(context.Background(), orderID)

	require.NoError(t, err)
	f.earningRepo.AssertNumberOfCalls(t, "InsertEarning", 1)
	f.orderRepo.AssertExpectations(t)
}

func TestMarkProcessing_IllegalFromCreated(t *testing.T) {
	f := newOrderServiceFixture(t)

	orderID := uuid.New()
	order := &model.Order{ID: orderID, OrderNumber: "TK-1001", Status: model.OrderStatusCreated}
	f.orderRepo.On("GetByID", mock.Anything, orderID).Return(order, nil)

	err := f.service.MarkProcessing(context.Background(), orderID)

	assert.Error(t, err)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestSellerOrders_ClampsLimit(t *testing.T) {
	f := newOrderServiceFixture(t)
	sellerID := uuid.New()

	f.orderRepo.On("ListBySeller", mock.Anything, sellerID, (*model.OrderStatus)(nil), 20, 0).Return([]model.Order{}, nil)
	f.orderRepo.On("StatsBySeller", mock.Anything, sellerID).Return(&model.OrderStats{Total: 0}, nil)

	resp, err := f.service.SellerOrders(context.Background(), sellerID, nil, 500, -3)

	require.NoError(t, err)
	assert.NotNil(t, resp.Orders)
	f.orderRepo.AssertExpectations(t)
}
