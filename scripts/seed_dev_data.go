package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// seedDevData inserts a seller, a small catalogue and one paid order so the
// webhook and dashboard endpoints can be exercised locally.
// Run with: go run scripts/seed_dev_data.go
func main() {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		connString = "postgres://postgres@localhost:5432/threadkart?sslmode=disable"
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	sellerID := uuid.New()
	_, err = conn.Exec(ctx,
		"INSERT INTO sellers (id, name, phone, email) VALUES ($1, $2, $3, $4)",
		sellerID, "Dev Seller", "918888888888", "dev-seller@example.com",
	)
	if err != nil {
		log.Fatalf("Failed to insert seller: %v", err)
	}

	products := []struct {
		id         string
		name       string
		price      float64
		returnable bool
	}{
		{"DEV-KURTA", "Linen Kurta", 1200.00, true},
		{"DEV-SAREE", "Silk Saree", 3400.00, true},
		{"DEV-CLEAR", "Clearance Dupatta", 300.00, false},
	}
	for _, p := range products {
		_, err = conn.Exec(ctx,
			"INSERT INTO products (id, name, price, seller_id, returnable) VALUES ($1, $2, $3, $4, $5)",
			p.id, p.name, p.price, sellerID, p.returnable,
		)
		if err != nil {
			log.Fatalf("Failed to insert product %s: %v", p.id, err)
		}
	}

	orderID := uuid.New()
	orderNumber := fmt.Sprintf("TK-%d", time.Now().Unix()%100000)
	_, err = conn.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, customer_phone, shipping_address, status, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5, 'CREATED', 'PENDING', $6)`,
		orderID, orderNumber, uuid.New(), "919876543210", "42 MG Road, Bengaluru", 2400.00,
	)
	if err != nil {
		log.Fatalf("Failed to insert order: %v", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, product_name, seller_id, price, quantity)
		VALUES ($1, $2, 'DEV-KURTA', 'Linen Kurta', $3, 1200.00, 2)`,
		uuid.New(), orderID, sellerID,
	)
	if err != nil {
		log.Fatalf("Failed to insert order item: %v", err)
	}

	fmt.Printf("Seeded seller %s with order %s (%s)\n", sellerID, orderID, orderNumber)
	fmt.Println("Trigger the payment webhook for this order number to move it to PENDING.")
}
