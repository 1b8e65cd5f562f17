package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/lifecycle"
	"threadkart/internal/model"
	"threadkart/internal/payment"
	"threadkart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	sellerRepo  repository.SellerRepository
	earningRepo repository.EarningRepository
	outboxRepo  repository.OutboxRepository
	refunder    payment.Refunder
	cfg         config.LifecycleConfig
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	sellerRepo repository.SellerRepository,
	earningRepo repository.EarningRepository,
	outboxRepo repository.OutboxRepository,
	refunder payment.Refunder,
	cfg config.LifecycleConfig,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		sellerRepo:  sellerRepo,
		earningRepo: earningRepo,
		outboxRepo:  outboxRepo,
		refunder:    refunder,
		cfg:         cfg,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// ParseButtonID extracts the action and order number from a WhatsApp button
// id of the form "accept_FF1001" or "reject_FF1001".
func ParseButtonID(buttonID string) (SellerReplyAction, string, error) {
	action, orderNumber, found := strings.Cut(buttonID, "_")
	if !found || orderNumber == "" {
		return "", "", fmt.Errorf("button id %q does not encode an order", buttonID)
	}

	switch SellerReplyAction(action) {
	case ActionAccept, ActionReject:
		return SellerReplyAction(action), orderNumber, nil
	default:
		return "", "", fmt.Errorf("unknown button action %q", action)
	}
}

// HandlePaymentSuccess processes a successful-payment webhook.
func (s *orderService) HandlePaymentSuccess(ctx context.Context, orderNumber string) error {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	next, err := lifecycle.Next(order.Status, lifecycle.EventPaymentSucceeded)
	if err != nil {
		// Gateway retries and duplicate webhooks land here. The first
		// delivery already moved the order on, so there is nothing to do
		// and no notifications to repeat.
		s.logger.Info().
			Str("order_number", orderNumber).
			Str("status", string(order.Status)).
			Msg("payment webhook replayed for already-processed order, ignoring")
		return nil
	}

	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return err
	}

	// Seller-id repair, the status change and the notification fan-out all
	// commit together: a failure part-way leaves the order untouched.
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if _, err = s.orderRepo.BackfillItemSellers(ctx, tx, order.ID); err != nil {
		return err
	}
	contacts, err := s.sellerRepo.ContactsForOrder(ctx, tx, order.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	deadline := now.Add(s.cfg.SellerResponseWindow)

	order.Status = next
	order.PaymentStatus = model.PaymentStatusSuccessful
	order.SellerResponseDeadline = &deadline
	if len(contacts) > 0 {
		// ContactsForOrder orders by per-seller amount, so the first entry
		// is the primary seller.
		primary := contacts[0]
		order.PrimarySellerID = &primary.SellerID
		order.SellerPhone = &primary.Phone
	}
	order.Notes += fmt.Sprintf("[%s] Payment received, awaiting seller response\n", now.Format(time.RFC3339))

	applied, err := s.orderRepo.UpdateOrderFrom(ctx, tx, order, model.OrderStatusCreated)
	if err != nil {
		return err
	}
	if !applied {
		// A concurrent delivery of the same webhook won the race. Its
		// notifications are committed, so this one has nothing to add.
		_ = tx.Rollback(ctx)
		s.logger.Info().Str("order_number", orderNumber).Msg("payment webhook raced a concurrent delivery, ignoring")
		return nil
	}

	itemSummary := summarizeItems(items)
	for _, contact := range contacts {
		if contact.Phone == "" {
			s.logger.Warn().
				Str("order_number", orderNumber).
				Str("seller_id", contact.SellerID.String()).
				Msg("seller has no phone on file, skipping notification")
			continue
		}
		msg := newOutboxMessage(order.ID, model.NotifySellerNewOrder, contact.Phone,
			orderNumber, itemSummary, order.ShippingAddress)
		if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
			return err
		}
	}

	if s.cfg.AdminPhone != "" {
		msg := newOutboxMessage(order.ID, model.NotifyAdminNewOrder, s.cfg.AdminPhone,
			orderNumber, fmt.Sprintf("%.2f", order.TotalAmount))
		if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
			return err
		}
	}

	if order.CustomerPhone != "" {
		msg := newOutboxMessage(order.ID, model.NotifyCustomerConfirmed, order.CustomerPhone,
			orderNumber, fmt.Sprintf("%.2f", order.TotalAmount))
		if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payment intake: %w", err)
	}

	if txnErr := s.orderRepo.InsertTransaction(ctx, &model.PaymentTransaction{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Kind:        model.TransactionKindPayment,
		Reference:   fmt.Sprintf("payment_%s", orderNumber),
		Amount:      order.TotalAmount,
		GatewayName: "cashfree",
		CreatedAt:   now,
	}); txnErr != nil {
		s.logger.Error().Err(txnErr).Str("order_number", orderNumber).Msg("failed to record payment ledger row")
	}

	s.logger.Info().
		Str("order_number", orderNumber).
		Int("sellers", len(contacts)).
		Time("deadline", deadline).
		Msg("order moved to pending, sellers queued for notification")

	return nil
}

// HandleSellerReply processes a parsed WhatsApp button press.
func (s *orderService) HandleSellerReply(ctx context.Context, action SellerReplyAction, orderNumber string) (*SellerReplyResult, error) {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	event := lifecycle.EventSellerAccepted
	if action == ActionReject {
		event = lifecycle.EventSellerRejected
	}

	next, err := lifecycle.Next(order.Status, event)
	if err != nil {
		// Replayed button press, or a press racing the timeout sweep. The
		// transition has already happened, so acknowledge without
		// re-applying side effects.
		s.logger.Info().
			Str("order_number", orderNumber).
			Str("action", string(action)).
			Str("status", string(order.Status)).
			Msg("seller reply ignored, order already resolved")
		return &SellerReplyResult{
			OrderNumber: orderNumber,
			Action:      action,
			Applied:     false,
			Status:      order.Status,
		}, nil
	}

	var applied bool
	if action == ActionAccept {
		applied, err = s.applySellerAccept(ctx, order, next)
	} else {
		applied, err = s.applySellerReject(ctx, order, next)
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		// The timeout sweep (or another press) moved the order between the
		// read and the write. The conditional update dropped this reply, so
		// report the state the winner left behind.
		current, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
		if err != nil {
			return nil, err
		}
		status := model.OrderStatusCancelled
		if current != nil {
			status = current.Status
		}
		s.logger.Info().
			Str("order_number", orderNumber).
			Str("action", string(action)).
			Str("status", string(status)).
			Msg("seller reply lost the race to another transition, ignoring")
		return &SellerReplyResult{
			OrderNumber: orderNumber,
			Action:      action,
			Applied:     false,
			Status:      status,
		}, nil
	}

	return &SellerReplyResult{
		OrderNumber: orderNumber,
		Action:      action,
		Applied:     true,
		Status:      next,
	}, nil
}

func (s *orderService) applySellerAccept(ctx context.Context, order *model.Order, next model.OrderStatus) (applied bool, err error) {
	now := time.Now()
	from := order.Status
	order.Status = next
	order.SellerNotified = true
	order.Notes += fmt.Sprintf("[%s] Seller accepted via WhatsApp\n", now.Format(time.RFC3339))

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback(ctx)
		}
	}()

	// Conditional on the status the reply was computed from, so an accept
	// racing the timeout sweep cannot resurrect a cancelled order.
	applied, err = s.orderRepo.UpdateOrderFrom(ctx, tx, order, from)
	if err != nil || !applied {
		return false, err
	}
	if s.cfg.AdminPhone != "" {
		msg := newOutboxMessage(order.ID, model.NotifyAdminSellerResponse, s.cfg.AdminPhone,
			order.OrderNumber, "ACCEPTED")
		if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seller accept: %w", err)
	}

	s.logger.Info().Str("order_number", order.OrderNumber).Msg("order confirmed by seller")
	return true, nil
}

func (s *orderService) applySellerReject(ctx context.Context, order *model.Order, next model.OrderStatus) (applied bool, err error) {
	now := time.Now()
	from := order.Status
	order.Status = next
	order.CancelledAt = &now
	order.SellerNotified = true
	order.Notes += fmt.Sprintf("[%s] Seller rejected via WhatsApp, refund initiated\n", now.Format(time.RFC3339))

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback(ctx)
		}
	}()

	applied, err = s.orderRepo.UpdateOrderFrom(ctx, tx, order, from)
	if err != nil || !applied {
		return false, err
	}

	msg := newOutboxMessage(order.ID, model.NotifyCustomerCancelled, order.CustomerPhone,
		order.OrderNumber, fmt.Sprintf("%.2f", order.TotalAmount))
	if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
		return false, err
	}
	if s.cfg.AdminPhone != "" {
		adminMsg := newOutboxMessage(order.ID, model.NotifyAdminSellerResponse, s.cfg.AdminPhone,
			order.OrderNumber, "REJECTED")
		if err = s.outboxRepo.Enqueue(ctx, tx, adminMsg); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seller reject: %w", err)
	}

	s.refundOrder(ctx, order, "seller rejected order")
	return true, nil
}

// FinalizeTimeoutCancellation refunds and queues notifications for an order
// the sweeper has already cancelled via the atomic claim.
func (s *orderService) FinalizeTimeoutCancellation(ctx context.Context, order *model.Order) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	msg := newOutboxMessage(order.ID, model.NotifyCustomerCancelled, order.CustomerPhone,
		order.OrderNumber, fmt.Sprintf("%.2f", order.TotalAmount))
	if err = s.outboxRepo.Enqueue(ctx, tx, msg); err != nil {
		return err
	}
	if s.cfg.AdminPhone != "" {
		adminMsg := newOutboxMessage(order.ID, model.NotifyAdminSellerResponse, s.cfg.AdminPhone,
			order.OrderNumber, "TIMED_OUT")
		if err = s.outboxRepo.Enqueue(ctx, tx, adminMsg); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to queue timeout notifications: %w", err)
	}

	s.refundOrder(ctx, order, "seller response timed out")
	return nil
}

// refundOrder initiates the refund and records the outcome. The payment
// status only becomes REFUNDED after the gateway confirms; a failed refund
// leaves the order CANCELLED with its payment status untouched so
// reconciliation can find it.
func (s *orderService) refundOrder(ctx context.Context, order *model.Order, note string) {
	// Derived from the order number so gateway-side idempotency holds
	// across retried sweeps.
	reference := fmt.Sprintf("refund_%s", order.OrderNumber)

	if err := s.refunder.Refund(ctx, order.OrderNumber, reference, order.TotalAmount, note); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Str("reference", reference).
			Msg("refund failed, order needs reconciliation")
		return
	}

	if err := s.orderRepo.MarkRefunded(ctx, order.ID); err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("refund succeeded but status update failed")
		return
	}

	if err := s.orderRepo.InsertTransaction(ctx, &model.PaymentTransaction{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Kind:        model.TransactionKindRefund,
		Reference:   reference,
		Amount:      order.TotalAmount,
		GatewayName: "cashfree",
		CreatedAt:   time.Now(),
	}); err != nil {
		s.logger.Error().Err(err).Str("reference", reference).Msg("failed to record refund ledger row")
	}
}

// MarkProcessing advances a confirmed order into fulfilment.
func (s *orderService) MarkProcessing(ctx context.Context, orderID uuid.UUID) error {
	return s.advance(ctx, orderID, lifecycle.EventProcessingStart, "Order moved to processing")
}

// MarkShipped records shipment.
func (s *orderService) MarkShipped(ctx context.Context, orderID uuid.UUID) error {
	return s.advance(ctx, orderID, lifecycle.EventShipped, "Order shipped")
}

// MarkDelivered records delivery, opens return windows on returnable items
// and credits immediate earnings for final-sale items.
func (s *orderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (err error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	next, err := lifecycle.Next(order.Status, lifecycle.EventDelivered)
	if err != nil {
		return err
	}

	now := time.Now()
	order.Status = next
	order.Notes += fmt.Sprintf("[%s] Order delivered\n", now.Format(time.RFC3339))

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = s.orderRepo.UpdateOrder(ctx, tx, order); err != nil {
		return err
	}
	if err = s.orderRepo.SetReturnWindows(ctx, tx, orderID, now, now.Add(s.cfg.ReturnWindow)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delivery: %w", err)
	}

	return s.creditImmediateEarnings(ctx, orderID, now)
}

// creditImmediateEarnings pays out final-sale items, which never enter a
// return window, as soon as the order is delivered.
func (s *orderService) creditImmediateEarnings(ctx context.Context, orderID uuid.UUID, now time.Time) (err error) {
	items, err := s.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return err
	}

	var finalSale []model.OrderItem
	for _, item := range items {
		if item.ReturnWindowStatus == model.ReturnWindowNotApplicable && item.SellerID != nil {
			finalSale = append(finalSale, item)
		}
	}
	if len(finalSale) == 0 {
		return nil
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, item := range finalSale {
		gross := item.Amount()
		commission := gross * s.cfg.CommissionRate
		earning := &model.SellerEarning{
			ID:                uuid.New(),
			SellerID:          *item.SellerID,
			OrderItemID:       item.ID,
			Type:              model.EarningTypeImmediate,
			Amount:            gross - commission,
			Commission:        commission,
			CreditedToBalance: true,
			CreditedAt:        &now,
			CreatedAt:         now,
		}
		if err = s.earningRepo.InsertEarning(ctx, tx, earning); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit immediate earnings: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int("items", len(finalSale)).
		Msg("immediate earnings credited")

	return nil
}

// advance applies a simple fulfilment transition with a note.
func (s *orderService) advance(ctx context.Context, orderID uuid.UUID, event lifecycle.Event, note string) (err error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	next, err := lifecycle.Next(order.Status, event)
	if err != nil {
		return err
	}

	order.Status = next
	order.Notes += fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), note)

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = s.orderRepo.UpdateOrder(ctx, tx, order); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

// SellerOrders lists a seller's orders with per-status stats.
func (s *orderService) SellerOrders(ctx context.Context, sellerID uuid.UUID, status *model.OrderStatus, limit, offset int) (*model.SellerOrdersResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.orderRepo.ListBySeller(ctx, sellerID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	stats, err := s.orderRepo.StatsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	if orders == nil {
		orders = []model.Order{}
	}
	return &model.SellerOrdersResponse{Orders: orders, Stats: *stats}, nil
}

// summarizeItems renders an order's lines for a WhatsApp template parameter.
func summarizeItems(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// newOutboxMessage builds a pending notification due immediately.
func newOutboxMessage(orderID uuid.UUID, kind model.NotificationKind, destination string, params ...string) *model.OutboxMessage {
	now := time.Now()
	return &model.OutboxMessage{
		ID:          uuid.New(),
		OrderID:     orderID,
		Kind:        kind,
		Destination: destination,
		Params:      params,
		Status:      model.OutboxPending,
		NextAttempt: now,
		CreatedAt:   now,
	}
}
