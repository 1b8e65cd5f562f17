package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, order_number, user_id, customer_phone, shipping_address, status,
	payment_status, total_amount, primary_seller_id, seller_response_deadline,
	seller_phone, seller_notified, admin_notified, customer_notified,
	cancelled_at, notes, created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerPhone, &o.ShippingAddress,
		&o.Status, &o.PaymentStatus, &o.TotalAmount, &o.PrimarySellerID,
		&o.SellerResponseDeadline, &o.SellerPhone, &o.SellerNotified,
		&o.AdminNotified, &o.CustomerNotified, &o.CancelledAt, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetByOrderNumber retrieves an order by its external-facing number.
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_number", orderNumber).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order by its internal id.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

const itemColumns = `
	id, order_id, product_id, product_name, seller_id, price, quantity,
	return_window_status, return_window_start, return_window_end,
	returned_at, earnings_credited_at
`

func scanItem(row pgx.Row) (*model.OrderItem, error) {
	var it model.OrderItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.SellerID,
		&it.Price, &it.Quantity, &it.ReturnWindowStatus, &it.ReturnWindowStart,
		&it.ReturnWindowEnd, &it.ReturnedAt, &it.EarningsCreditedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItems retrieves all items of an order.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY product_id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order items")
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem retrieves a single order item.
func (r *orderRepository) GetItem(ctx context.Context, id uuid.UUID) (*model.OrderItem, error) {
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE id = $1`

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order item: %w", err)
	}
	return item, nil
}

// UpdateOrder persists the mutable fields of an order.
func (r *orderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders SET
			status = $2,
			payment_status = $3,
			primary_seller_id = $4,
			seller_response_deadline = $5,
			seller_phone = $6,
			seller_notified = $7,
			admin_notified = $8,
			customer_notified = $9,
			cancelled_at = $10,
			notes = $11,
			updated_at = $12
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.Status, order.PaymentStatus, order.PrimarySellerID,
		order.SellerResponseDeadline, order.SellerPhone, order.SellerNotified,
		order.AdminNotified, order.CustomerNotified, order.CancelledAt,
		order.Notes, time.Now(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found for update", order.ID)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("order updated")

	return nil
}

// UpdateOrderFrom persists the order only while its stored status still
// matches from. Returns false when another writer moved the order first, so
// callers can drop a stale transition instead of overwriting it.
func (r *orderRepository) UpdateOrderFrom(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders SET
			status = $2,
			payment_status = $3,
			primary_seller_id = $4,
			seller_response_deadline = $5,
			seller_phone = $6,
			seller_notified = $7,
			admin_notified = $8,
			customer_notified = $9,
			cancelled_at = $10,
			notes = $11,
			updated_at = $12
		WHERE id = $1 AND status = $13
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.Status, order.PaymentStatus, order.PrimarySellerID,
		order.SellerResponseDeadline, order.SellerPhone, order.SellerNotified,
		order.AdminNotified, order.CustomerNotified, order.CancelledAt,
		order.Notes, time.Now(), from,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return false, fmt.Errorf("failed to update order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// BackfillItemSellers fills missing order_items.seller_id values from the
// product catalogue. Some historical rows were written without a seller.
func (r *orderRepository) BackfillItemSellers(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	query := `
		UPDATE order_items oi
		SET seller_id = p.seller_id
		FROM products p
		WHERE oi.product_id = p.id
		  AND oi.order_id = $1
		  AND oi.seller_id IS NULL
	`

	tag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to backfill item sellers")
		return 0, fmt.Errorf("failed to backfill item sellers: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.logger.Warn().
			Str("order_id", orderID.String()).
			Int64("repaired", tag.RowsAffected()).
			Msg("backfilled missing seller ids on order items")
	}

	return tag.RowsAffected(), nil
}

// SetReturnWindows opens the return window on a delivered order's items.
// Final-sale products stay NOT_APPLICABLE and are paid out immediately.
func (r *orderRepository) SetReturnWindows(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, start, end time.Time) error {
	query := `
		UPDATE order_items oi
		SET return_window_status = $2, return_window_start = $3, return_window_end = $4
		FROM products p
		WHERE oi.product_id = p.id
		  AND oi.order_id = $1
		  AND oi.return_window_status = $5
		  AND p.returnable
	`

	_, err := tx.Exec(ctx, query, orderID, model.ReturnWindowActive, start, end, model.ReturnWindowNotApplicable)
	if err != nil {
		return fmt.Errorf("failed to open return windows: %w", err)
	}
	return nil
}

// ClaimTimedOut atomically cancels all orders past their seller-response
// deadline. The conditional update is the claim: a racing sweeper run sees
// zero rows for orders another run already cancelled.
func (r *orderRepository) ClaimTimedOut(ctx context.Context, now time.Time, note string) ([]model.Order, error) {
	query := `
		UPDATE orders SET
			status = $1,
			cancelled_at = $2,
			notes = notes || $3,
			updated_at = $2
		WHERE status = $4
		  AND payment_status = $5
		  AND seller_response_deadline < $2
		RETURNING ` + orderColumns

	rows, err := r.pool.Query(ctx, query,
		model.OrderStatusCancelled, now, note,
		model.OrderStatusPending, model.PaymentStatusSuccessful,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to claim timed-out orders")
		return nil, fmt.Errorf("failed to claim timed-out orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// MarkRefunded flips the payment status to REFUNDED. Callers must only do
// this after the gateway has confirmed the refund.
func (r *orderRepository) MarkRefunded(ctx context.Context, orderID uuid.UUID) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, orderID, model.PaymentStatusRefunded, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to mark order refunded")
		return fmt.Errorf("failed to mark order refunded: %w", err)
	}
	return nil
}

// SetNotifiedFlag records successful delivery of a notification kind.
func (r *orderRepository) SetNotifiedFlag(ctx context.Context, orderID uuid.UUID, kind model.NotificationKind) error {
	var column string
	switch kind {
	case model.NotifySellerNewOrder:
		column = "seller_notified"
	case model.NotifyAdminNewOrder, model.NotifyAdminSellerResponse:
		column = "admin_notified"
	case model.NotifyCustomerConfirmed, model.NotifyCustomerCancelled:
		column = "customer_notified"
	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	query := fmt.Sprintf(`UPDATE orders SET %s = TRUE, updated_at = $2 WHERE id = $1`, column)
	_, err := r.pool.Exec(ctx, query, orderID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

// InsertTransaction appends a payment ledger row.
func (r *orderRepository) InsertTransaction(ctx context.Context, txn *model.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (id, order_id, kind, reference, amount, gateway_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		txn.ID, txn.OrderID, txn.Kind, txn.Reference, txn.Amount, txn.GatewayName, txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("reference", txn.Reference).Msg("failed to insert payment transaction")
		return fmt.Errorf("failed to insert payment transaction: %w", err)
	}
	return nil
}

// ListBySeller lists a seller's orders, optionally filtered by status. An
// order belongs to a seller when any of its items does.
func (r *orderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *model.OrderStatus, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT DISTINCT ` + qualified(orderColumns, "o") + `
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.seller_id = $1
	`
	args := []any{sellerID}

	if status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", len(args)+1)
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", sellerID.String()).Msg("failed to list seller orders")
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// StatsBySeller counts a seller's orders per status.
func (r *orderRepository) StatsBySeller(ctx context.Context, sellerID uuid.UUID) (*model.OrderStats, error) {
	query := `
		SELECT o.status, COUNT(DISTINCT o.id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.seller_id = $1
		GROUP BY o.status
	`

	rows, err := r.pool.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count seller orders: %w", err)
	}
	defer rows.Close()

	stats := &model.OrderStats{}
	for rows.Next() {
		var status model.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order stats: %w", err)
		}
		stats.Total += count
		switch status {
		case model.OrderStatusPending:
			stats.Pending = count
		case model.OrderStatusConfirmed, model.OrderStatusProcessing:
			stats.Confirmed += count
		case model.OrderStatusShipped:
			stats.Shipped = count
		case model.OrderStatusDelivered:
			stats.Delivered = count
		case model.OrderStatusCancelled:
			stats.Cancelled = count
		case model.OrderStatusReturned:
			stats.Returned = count
		}
	}
	return stats, rows.Err()
}

// qualified prefixes every column in a comma-separated list with a table
// alias so the shared column list can be reused in joins.
func qualified(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
