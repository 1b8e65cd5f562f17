package repository

import (
	"context"
	"errors"
	"fmt"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SellerRepository defines seller account data access.
type SellerRepository interface {
	// GetByPhone retrieves a seller by phone number. Returns nil without
	// error when no seller matches.
	GetByPhone(ctx context.Context, phone string) (*model.Seller, error)

	// GetByID retrieves a seller by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Seller, error)

	// ContactsForOrder aggregates the sellers behind an order's items with
	// their phone numbers and per-seller totals, within the provided
	// transaction so it sees uncommitted seller-id repairs. Items with no
	// seller are excluded.
	ContactsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.SellerContact, error)
}

// sellerRepository implements the SellerRepository interface using PostgreSQL.
type sellerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSellerRepository creates a new PostgreSQL-backed seller repository.
func NewSellerRepository(pool *pgxpool.Pool, logger zerolog.Logger) SellerRepository {
	return &sellerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "seller").Logger(),
	}
}

// GetByPhone retrieves a seller by phone number.
func (r *sellerRepository) GetByPhone(ctx context.Context, phone string) (*model.Seller, error) {
	query := `SELECT id, name, phone, email, created_at FROM sellers WHERE phone = $1`

	var s model.Seller
	err := r.pool.QueryRow(ctx, query, phone).Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get seller by phone: %w", err)
	}
	return &s, nil
}

// GetByID retrieves a seller by id.
func (r *sellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	query := `SELECT id, name, phone, email, created_at FROM sellers WHERE id = $1`

	var s model.Seller
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return &s, nil
}

// ContactsForOrder aggregates the sellers behind an order's items.
func (r *sellerRepository) ContactsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.SellerContact, error) {
	query := `
		SELECT s.id, s.name, s.phone, COUNT(oi.id), SUM(oi.price * oi.quantity)
		FROM order_items oi
		JOIN sellers s ON s.id = oi.seller_id
		WHERE oi.order_id = $1
		GROUP BY s.id, s.name, s.phone
		ORDER BY SUM(oi.price * oi.quantity) DESC
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to load seller contacts")
		return nil, fmt.Errorf("failed to load seller contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.SellerContact
	for rows.Next() {
		var c model.SellerContact
		if err := rows.Scan(&c.SellerID, &c.Name, &c.Phone, &c.ItemCount, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan seller contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
