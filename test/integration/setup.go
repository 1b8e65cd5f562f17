package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/database"
	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		URL:             connStr,
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPool(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS sellers (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(20),
			email VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			seller_id UUID REFERENCES sellers(id),
			returnable BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_number VARCHAR(50) NOT NULL UNIQUE,
			user_id UUID NOT NULL,
			customer_phone VARCHAR(20) NOT NULL DEFAULT '',
			shipping_address TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			total_amount DECIMAL(10, 2) NOT NULL,
			primary_seller_id UUID,
			seller_response_deadline TIMESTAMPTZ,
			seller_phone VARCHAR(20),
			seller_notified BOOLEAN NOT NULL DEFAULT FALSE,
			admin_notified BOOLEAN NOT NULL DEFAULT FALSE,
			customer_notified BOOLEAN NOT NULL DEFAULT FALSE,
			cancelled_at TIMESTAMPTZ,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id),
			product_name VARCHAR(255) NOT NULL DEFAULT '',
			seller_id UUID,
			price DECIMAL(10, 2) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			return_window_status VARCHAR(20) NOT NULL DEFAULT 'NOT_APPLICABLE',
			return_window_start TIMESTAMPTZ,
			return_window_end TIMESTAMPTZ,
			returned_at TIMESTAMPTZ,
			earnings_credited_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS seller_earnings (
			id UUID PRIMARY KEY,
			seller_id UUID NOT NULL,
			order_item_id UUID NOT NULL REFERENCES order_items(id),
			type VARCHAR(30) NOT NULL,
			amount DECIMAL(10, 2) NOT NULL,
			commission DECIMAL(10, 2) NOT NULL,
			credited_to_balance BOOLEAN NOT NULL DEFAULT FALSE,
			credited_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS return_requests (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			order_id UUID NOT NULL REFERENCES orders(id),
			order_item_id UUID NOT NULL REFERENCES order_items(id),
			reason TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS withdrawals (
			id UUID PRIMARY KEY,
			seller_id UUID NOT NULL,
			amount DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			transfer_ref VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS whatsapp_otps (
			id UUID PRIMARY KEY,
			phone_number VARCHAR(20) NOT NULL,
			otp_code VARCHAR(10) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS payment_transactions (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			kind VARCHAR(20) NOT NULL,
			reference VARCHAR(100) NOT NULL,
			amount DECIMAL(10, 2) NOT NULL,
			gateway_name VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS notification_outbox (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL,
			kind VARCHAR(30) NOT NULL,
			destination VARCHAR(20) NOT NULL,
			params TEXT[] NOT NULL DEFAULT '{}',
			image_url TEXT,
			status VARCHAR(20) NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			next_attempt TIMESTAMPTZ NOT NULL,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
		CREATE INDEX IF NOT EXISTS idx_order_items_seller_id ON order_items(seller_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status_deadline ON orders(status, seller_response_deadline);
		CREATE INDEX IF NOT EXISTS idx_outbox_status_next ON notification_outbox(status, next_attempt);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedSeller inserts a seller with one returnable product and returns the
// seller id.
func SeedSeller(t *testing.T, pool *pgxpool.Pool, phone string) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	sellerID := uuid.New()

	_, err := pool.Exec(ctx,
		"INSERT INTO sellers (id, name, phone, email) VALUES ($1, $2, $3, $4)",
		sellerID, "Test Seller", phone, "seller@example.com",
	)
	if err != nil {
		t.Fatalf("failed to seed seller: %v", err)
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO products (id, name, price, seller_id, returnable) VALUES ($1, $2, $3, $4, $5)",
		"P-"+sellerID.String()[:8], "Linen Kurta", 1200.00, sellerID, true,
	)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	return sellerID
}

// SeedOrder inserts an order with a single item belonging to the seller's
// product and returns the order and item ids.
func SeedOrder(t *testing.T, pool *pgxpool.Pool, sellerID uuid.UUID, orderNumber string, status model.OrderStatus, paymentStatus model.PaymentStatus) (uuid.UUID, uuid.UUID) {
	t.Helper()

	ctx := context.Background()
	orderID := uuid.New()
	itemID := uuid.New()
	productID := "P-" + sellerID.String()[:8]

	_, err := pool.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, customer_phone, status, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		orderID, orderNumber, uuid.New(), "919876543210", status, paymentStatus, 2400.00,
	)
	if err != nil {
		t.Fatalf("failed to seed order %s: %v", orderNumber, err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, product_name, seller_id, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		itemID, orderID, productID, "Linen Kurta", sellerID, 1200.00, 2,
	)
	if err != nil {
		t.Fatalf("failed to seed order item: %v", err)
	}

	return orderID, itemID
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"notification_outbox", "payment_transactions", "whatsapp_otps",
		"withdrawals", "return_requests", "seller_earnings", "order_items",
		"orders", "products", "sellers",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
