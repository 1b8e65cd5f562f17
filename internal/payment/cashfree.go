// Package payment wraps the Cashfree payment gateway: refund initiation and
// webhook signature verification.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"threadkart/internal/config"

	"github.com/rs/zerolog"
)

// Refunder initiates refunds against the payment gateway.
type Refunder interface {
	// Refund requests a refund of amount against the order. The reference
	// must be stable across retries so the gateway can de-duplicate.
	Refund(ctx context.Context, orderNumber, reference string, amount float64, note string) error
}

// Client is an HTTP client for the Cashfree payments API.
type Client struct {
	cfg        config.CashfreeConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Cashfree client.
func NewClient(cfg config.CashfreeConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("client", "cashfree").Logger(),
	}
}

// refundRequest is the gateway's refund creation payload.
type refundRequest struct {
	RefundID     string  `json:"refund_id"`
	RefundAmount float64 `json:"refund_amount"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

// Refund requests a refund against the order. Any 2xx response is success.
func (c *Client) Refund(ctx context.Context, orderNumber, reference string, amount float64, note string) error {
	body, err := json.Marshal(refundRequest{
		RefundID:     reference,
		RefundAmount: amount,
		RefundNote:   note,
	})
	if err != nil {
		return fmt.Errorf("failed to encode refund request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/orders/%s/refunds", strings.TrimRight(c.cfg.APIURL, "/"), orderNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refund request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("refund rejected with status %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info().
		Str("order_number", orderNumber).
		Str("reference", reference).
		Float64("amount", amount).
		Msg("refund initiated")

	return nil
}
