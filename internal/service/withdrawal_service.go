package service

import (
	"context"
	"time"

	"threadkart/internal/model"
	"threadkart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// withdrawalService implements WithdrawalService.
type withdrawalService struct {
	withdrawalRepo repository.WithdrawalRepository
	earningRepo    repository.EarningRepository
	logger         zerolog.Logger
}

// NewWithdrawalService creates a new withdrawal service.
func NewWithdrawalService(
	withdrawalRepo repository.WithdrawalRepository,
	earningRepo repository.EarningRepository,
	logger zerolog.Logger,
) WithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		earningRepo:    earningRepo,
		logger:         logger.With().Str("service", "withdrawal").Logger(),
	}
}

// Request creates a PENDING withdrawal after checking the available balance.
// Transfer execution against the gateway happens out of band.
func (s *withdrawalService) Request(ctx context.Context, sellerID uuid.UUID, input *model.WithdrawalInput) (*model.Withdrawal, error) {
	if input.Amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	balance, err := s.earningRepo.BalanceSummary(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if input.Amount > balance.Available {
		s.logger.Warn().
			Str("seller_id", sellerID.String()).
			Float64("requested", input.Amount).
			Float64("available", balance.Available).
			Msg("withdrawal request exceeds balance")
		return nil, model.ErrInsufficientFunds
	}

	now := time.Now()
	w := &model.Withdrawal{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Amount:    input.Amount,
		Status:    model.WithdrawalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// List returns a seller's withdrawals and current balance.
func (s *withdrawalService) List(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.Withdrawal, *model.BalanceSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	withdrawals, err := s.withdrawalRepo.ListBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	balance, err := s.earningRepo.BalanceSummary(ctx, sellerID)
	if err != nil {
		return nil, nil, err
	}

	if withdrawals == nil {
		withdrawals = []model.Withdrawal{}
	}
	return withdrawals, balance, nil
}
