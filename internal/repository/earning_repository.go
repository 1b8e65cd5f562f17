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

// earningRepository implements the EarningRepository interface using PostgreSQL.
type earningRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewEarningRepository creates a new PostgreSQL-backed earning repository.
func NewEarningRepository(pool *pgxpool.Pool, logger zerolog.Logger) EarningRepository {
	return &earningRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "earning").Logger(),
	}
}

// sortColumns is the allow-list for ORDER BY in the return-window listing.
// Anything else falls back to return_window_end.
var sortColumns = map[string]string{
	"returnWindowEnd":   "oi.return_window_end",
	"returnWindowStart": "oi.return_window_start",
	"price":             "oi.price",
	"orderNumber":       "o.order_number",
}

// InsertEarning appends a ledger row within the provided transaction.
func (r *earningRepository) InsertEarning(ctx context.Context, tx pgx.Tx, earning *model.SellerEarning) error {
	query := `
		INSERT INTO seller_earnings
			(id, seller_id, order_item_id, type, amount, commission,
			 credited_to_balance, credited_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		earning.ID, earning.SellerID, earning.OrderItemID, earning.Type,
		earning.Amount, earning.Commission, earning.CreditedToBalance,
		earning.CreditedAt, earning.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_item_id", earning.OrderItemID.String()).
			Str("type", string(earning.Type)).
			Msg("failed to insert seller earning")
		return fmt.Errorf("failed to insert seller earning: %w", err)
	}
	return nil
}

// GetByOrderItem retrieves the earning of the given type for an item.
func (r *earningRepository) GetByOrderItem(ctx context.Context, itemID uuid.UUID, earningType model.EarningType) (*model.SellerEarning, error) {
	query := `
		SELECT id, seller_id, order_item_id, type, amount, commission,
		       credited_to_balance, credited_at, created_at
		FROM seller_earnings
		WHERE order_item_id = $1 AND type = $2
	`

	var e model.SellerEarning
	err := r.pool.QueryRow(ctx, query, itemID, earningType).Scan(
		&e.ID, &e.SellerID, &e.OrderItemID, &e.Type, &e.Amount, &e.Commission,
		&e.CreditedToBalance, &e.CreditedAt, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get seller earning: %w", err)
	}
	return &e, nil
}

// ClaimExpiredReturnWindows atomically completes all ACTIVE items whose
// window has elapsed. The conditional update doubles as the claim so racing
// sweeps credit each item exactly once.
func (r *earningRepository) ClaimExpiredReturnWindows(ctx context.Context, tx pgx.Tx, now time.Time) ([]model.OrderItem, error) {
	query := `
		UPDATE order_items SET
			return_window_status = $1,
			earnings_credited_at = $2
		WHERE return_window_status = $3
		  AND return_window_end < $2
		RETURNING ` + itemColumns

	rows, err := tx.Query(ctx, query, model.ReturnWindowCompleted, now, model.ReturnWindowActive)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to claim expired return windows")
		return nil, fmt.Errorf("failed to claim expired return windows: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListReturnWindowItems lists a seller's items with their order numbers.
func (r *earningRepository) ListReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter ReturnWindowFilter) ([]model.OrderItem, map[uuid.UUID]string, error) {
	query := `
		SELECT ` + qualified(itemColumns, "oi") + `, o.order_number
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.seller_id = $1
		  AND oi.return_window_status <> $2
	`
	args := []any{sellerID, model.ReturnWindowNotApplicable}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND oi.return_window_status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	if filter.OrderID != nil {
		query += fmt.Sprintf(" AND oi.order_id = $%d", len(args)+1)
		args = append(args, *filter.OrderID)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "oi.return_window_end"
	}
	direction := "ASC"
	if filter.SortDir == "desc" {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", column, direction, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", sellerID.String()).Msg("failed to list return-window items")
		return nil, nil, fmt.Errorf("failed to list return-window items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	orderNumbers := make(map[uuid.UUID]string)
	for rows.Next() {
		var it model.OrderItem
		var orderNumber string
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.SellerID,
			&it.Price, &it.Quantity, &it.ReturnWindowStatus, &it.ReturnWindowStart,
			&it.ReturnWindowEnd, &it.ReturnedAt, &it.EarningsCreditedAt,
			&orderNumber,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan return-window item: %w", err)
		}
		items = append(items, it)
		orderNumbers[it.OrderID] = orderNumber
	}
	return items, orderNumbers, rows.Err()
}

// CountReturnWindowItems counts the rows the filter would match.
func (r *earningRepository) CountReturnWindowItems(ctx context.Context, sellerID uuid.UUID, filter ReturnWindowFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM order_items oi
		WHERE oi.seller_id = $1
		  AND oi.return_window_status <> $2
	`
	args := []any{sellerID, model.ReturnWindowNotApplicable}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND oi.return_window_status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	if filter.OrderID != nil {
		query += fmt.Sprintf(" AND oi.order_id = $%d", len(args)+1)
		args = append(args, *filter.OrderID)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count return-window items: %w", err)
	}
	return count, nil
}

// BalanceSummary totals credited earnings and withdrawals for a seller.
// CANCELLED and FAILED withdrawals do not reduce the balance.
func (r *earningRepository) BalanceSummary(ctx context.Context, sellerID uuid.UUID) (*model.BalanceSummary, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(amount) FROM seller_earnings
			          WHERE seller_id = $1 AND credited_to_balance), 0),
			COALESCE((SELECT SUM(amount) FROM withdrawals
			          WHERE seller_id = $1 AND status NOT IN ($2, $3)), 0)
	`

	var summary model.BalanceSummary
	err := r.pool.QueryRow(ctx, query, sellerID, model.WithdrawalCancelled, model.WithdrawalFailed).
		Scan(&summary.CreditedEarnings, &summary.Withdrawn)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", sellerID.String()).Msg("failed to compute balance summary")
		return nil, fmt.Errorf("failed to compute balance summary: %w", err)
	}
	summary.Available = summary.CreditedEarnings - summary.Withdrawn
	return &summary, nil
}
