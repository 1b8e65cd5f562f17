package service

import (
	"context"
	"fmt"
	"time"

	"threadkart/internal/lifecycle"
	"threadkart/internal/model"
	"threadkart/internal/payment"
	"threadkart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// returnService implements ReturnService.
type returnService struct {
	returnRepo repository.ReturnRepository
	orderRepo  repository.OrderRepository
	refunder   payment.Refunder
	logger     zerolog.Logger
}

// NewReturnService creates a new return service.
func NewReturnService(
	returnRepo repository.ReturnRepository,
	orderRepo repository.OrderRepository,
	refunder payment.Refunder,
	logger zerolog.Logger,
) ReturnService {
	return &returnService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		refunder:   refunder,
		logger:     logger.With().Str("service", "return").Logger(),
	}
}

// Create opens a return request for an item whose window is still ACTIVE.
func (s *returnService) Create(ctx context.Context, userID uuid.UUID, input *model.ReturnRequestInput) (*model.ReturnRequest, error) {
	item, err := s.orderRepo.GetItem(ctx, input.OrderItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.ErrItemNotFound
	}
	if item.ReturnWindowStatus != model.ReturnWindowActive {
		return nil, model.ErrWindowClosed
	}

	order, err := s.orderRepo.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusDelivered {
		return nil, model.ErrWindowClosed
	}

	req := &model.ReturnRequest{
		ID:          uuid.New(),
		UserID:      userID,
		OrderID:     item.OrderID,
		OrderItemID: item.ID,
		Reason:      input.Reason,
		Status:      model.ReturnRequestPending,
		CreatedAt:   time.Now(),
	}
	if err := s.returnRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("return_id", req.ID.String()).
		Str("order_id", item.OrderID.String()).
		Msg("return request created")

	return req, nil
}

// Approve flips the item to RETURNED and the order to RETURNED in one
// transaction, then initiates the item refund. The request only reaches
// COMPLETED once the refund is confirmed.
func (s *returnService) Approve(ctx context.Context, requestID uuid.UUID) (_ *model.ReturnRequest, err error) {
	req, err := s.returnRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrReturnNotFound
	}
	if req.Status != model.ReturnRequestPending {
		return nil, model.NewDomainError(model.ErrCodeReturnNotFound,
			fmt.Sprintf("return request already %s", req.Status))
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	next, err := lifecycle.Next(order.Status, lifecycle.EventReturnApproved)
	if err != nil {
		return nil, err
	}

	item, err := s.orderRepo.GetItem(ctx, req.OrderItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.ErrItemNotFound
	}

	now := time.Now()

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	flipped, err := s.returnRepo.MarkItemReturned(ctx, tx, req.OrderItemID, now)
	if err != nil {
		return nil, err
	}
	if !flipped {
		err = model.ErrWindowClosed
		return nil, err
	}

	order.Status = next
	order.Notes += fmt.Sprintf("[%s] Return approved for item %s\n", now.Format(time.RFC3339), req.OrderItemID)
	if err = s.orderRepo.UpdateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err = s.returnRepo.UpdateStatus(ctx, tx, req.ID, model.ReturnRequestApproved, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return approval: %w", err)
	}

	req.Status = model.ReturnRequestApproved
	req.ResolvedAt = &now

	// Refund just the returned line. A failed refund leaves the request
	// APPROVED for reconciliation; the item stays RETURNED either way.
	reference := fmt.Sprintf("refund_return_%s", req.ID)
	if refundErr := s.refunder.Refund(ctx, order.OrderNumber, reference, item.Amount(), "return approved"); refundErr != nil {
		s.logger.Error().
			Err(refundErr).
			Str("return_id", req.ID.String()).
			Msg("return refund failed, request left APPROVED for reconciliation")
		return req, nil
	}

	if err := s.orderRepo.InsertTransaction(ctx, &model.PaymentTransaction{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Kind:        model.TransactionKindRefund,
		Reference:   reference,
		Amount:      item.Amount(),
		GatewayName: "cashfree",
		CreatedAt:   time.Now(),
	}); err != nil {
		s.logger.Error().Err(err).Str("reference", reference).Msg("failed to record return refund ledger row")
	}

	// The refund went through, so a failure here leaves the request APPROVED
	// with the money already out. Log it loudly for reconciliation.
	tx2, txErr := s.orderRepo.BeginTx(ctx)
	if txErr != nil {
		s.logger.Error().Err(txErr).Str("return_id", req.ID.String()).
			Msg("refund sent but completion transaction could not start, request left APPROVED")
		return req, nil
	}
	if updErr := s.returnRepo.UpdateStatus(ctx, tx2, req.ID, model.ReturnRequestCompleted, time.Now()); updErr != nil {
		_ = tx2.Rollback(ctx)
		s.logger.Error().Err(updErr).Str("return_id", req.ID.String()).
			Msg("refund sent but completion update failed, request left APPROVED")
		return req, nil
	}
	if commitErr := tx2.Commit(ctx); commitErr != nil {
		s.logger.Error().Err(commitErr).Str("return_id", req.ID.String()).
			Msg("refund sent but completion commit failed, request left APPROVED")
		return req, nil
	}

	req.Status = model.ReturnRequestCompleted
	return req, nil
}

// Reject closes the request without touching the item.
func (s *returnService) Reject(ctx context.Context, requestID uuid.UUID) (_ *model.ReturnRequest, err error) {
	req, err := s.returnRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrReturnNotFound
	}
	if req.Status != model.ReturnRequestPending {
		return nil, model.NewDomainError(model.ErrCodeReturnNotFound,
			fmt.Sprintf("return request already %s", req.Status))
	}

	now := time.Now()

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	if err = s.returnRepo.UpdateStatus(ctx, tx, req.ID, model.ReturnRequestRejected, now); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return rejection: %w", err)
	}

	req.Status = model.ReturnRequestRejected
	req.ResolvedAt = &now

	s.logger.Info().Str("return_id", req.ID.String()).Msg("return request rejected")
	return req, nil
}
