package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// returnRepository implements the ReturnRepository interface using PostgreSQL.
type returnRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReturnRepository creates a new PostgreSQL-backed return repository.
func NewReturnRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReturnRepository {
	return &returnRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "return").Logger(),
	}
}

// Create inserts a new return request.
func (r *returnRepository) Create(ctx context.Context, req *model.ReturnRequest) error {
	query := `
		INSERT INTO return_requests (id, user_id, order_id, order_item_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID, req.UserID, req.OrderID, req.OrderItemID, req.Reason, req.Status, req.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("failed to create return request")
		return fmt.Errorf("failed to create return request: %w", err)
	}
	return nil
}

// GetByID retrieves a return request.
func (r *returnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	query := `
		SELECT id, user_id, order_id, order_item_id, reason, status, resolved_at, created_at
		FROM return_requests
		WHERE id = $1
	`

	var req model.ReturnRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.UserID, &req.OrderID, &req.OrderItemID,
		&req.Reason, &req.Status, &req.ResolvedAt, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	return &req, nil
}

// UpdateStatus persists a status change within the provided transaction.
func (r *returnRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.ReturnRequestStatus, resolvedAt time.Time) error {
	query := `UPDATE return_requests SET status = $2, resolved_at = $3 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, status, resolvedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to update return request")
		return fmt.Errorf("failed to update return request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("return request %s not found for update", id)
	}
	return nil
}

// MarkItemReturned flips an ACTIVE item to RETURNED. The conditional update
// guarantees the ACTIVE -> RETURNED transition happens at most once.
func (r *returnRepository) MarkItemReturned(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, returnedAt time.Time) (bool, error) {
	query := `
		UPDATE order_items
		SET return_window_status = $2, returned_at = $3
		WHERE id = $1 AND return_window_status = $4
	`

	tag, err := tx.Exec(ctx, query, itemID, model.ReturnWindowReturned, returnedAt, model.ReturnWindowActive)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to mark item returned")
		return false, fmt.Errorf("failed to mark item returned: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
