package repository

import (
	"context"
	"fmt"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// withdrawalRepository implements the WithdrawalRepository interface using PostgreSQL.
type withdrawalRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL-backed withdrawal repository.
func NewWithdrawalRepository(pool *pgxpool.Pool, logger zerolog.Logger) WithdrawalRepository {
	return &withdrawalRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "withdrawal").Logger(),
	}
}

// Create inserts a new withdrawal request.
func (r *withdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, seller_id, amount, status, transfer_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.SellerID, w.Amount, w.Status, w.TransferRef, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", w.SellerID.String()).Msg("failed to create withdrawal")
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	r.logger.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("seller_id", w.SellerID.String()).
		Float64("amount", w.Amount).
		Msg("withdrawal request created")

	return nil
}

// ListBySeller lists a seller's withdrawal requests, newest first.
func (r *withdrawalRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]model.Withdrawal, error) {
	query := `
		SELECT id, seller_id, amount, status, transfer_ref, created_at, updated_at
		FROM withdrawals
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []model.Withdrawal
	for rows.Next() {
		var w model.Withdrawal
		err := rows.Scan(&w.ID, &w.SellerID, &w.Amount, &w.Status, &w.TransferRef, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
