// Package whatsapp wraps the Gupshup WhatsApp template-send API. The client
// performs a single HTTP attempt per call; delivery retries are the outbox
// drainer's responsibility.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/model"

	"github.com/rs/zerolog"
)

// templateIDs maps each notification kind to its approved Gupshup template.
var templateIDs = map[model.NotificationKind]string{
	model.NotifySellerNewOrder:      "seller_new_order_v2",
	model.NotifyAdminNewOrder:       "admin_new_order",
	model.NotifyAdminSellerResponse: "admin_seller_response",
	model.NotifyCustomerConfirmed:   "customer_order_confirmed",
	model.NotifyCustomerCancelled:   "customer_order_cancelled",
	model.NotifyOTP:                 "otp_login",
}

// Sender sends WhatsApp template notifications.
type Sender interface {
	// Send delivers one queued notification. A non-nil error means the send
	// did not reach the gateway or was rejected by it.
	Send(ctx context.Context, msg *model.OutboxMessage) error
}

// Client is an HTTP client for the Gupshup template-send API.
type Client struct {
	cfg        config.GupshupConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Gupshup client.
func NewClient(cfg config.GupshupConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("client", "gupshup").Logger(),
	}
}

// Send delivers one queued notification. Messages carrying an image URL are
// attempted with the image-header template variant first, falling back to
// the plain text template when the gateway rejects the image variant.
func (c *Client) Send(ctx context.Context, msg *model.OutboxMessage) error {
	templateID, ok := templateIDs[msg.Kind]
	if !ok {
		return fmt.Errorf("no template registered for notification kind %q", msg.Kind)
	}

	destination := NormalizePhone(msg.Destination)
	if destination == "" {
		return fmt.Errorf("notification %s has no usable destination phone", msg.ID)
	}

	if msg.ImageURL != nil && *msg.ImageURL != "" {
		if err := c.sendTemplate(ctx, templateID, destination, msg.Params, *msg.ImageURL); err == nil {
			return nil
		} else {
			c.logger.Warn().
				Err(err).
				Str("template", templateID).
				Msg("image template send failed, falling back to text template")
		}
	}

	return c.sendTemplate(ctx, templateID, destination, msg.Params, "")
}

// sendTemplate issues one template-send call. Any 2xx response is success.
func (c *Client) sendTemplate(ctx context.Context, templateID, destination string, params []string, imageURL string) error {
	template, err := json.Marshal(map[string]any{
		"id":     templateID,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode template payload: %w", err)
	}

	form := url.Values{}
	form.Set("channel", "whatsapp")
	form.Set("source", c.cfg.SourceNumber)
	form.Set("src.name", c.cfg.SrcName)
	form.Set("destination", destination)
	form.Set("template", string(template))
	if imageURL != "" {
		message, err := json.Marshal(map[string]any{
			"type":  "image",
			"image": map[string]string{"link": imageURL},
		})
		if err != nil {
			return fmt.Errorf("failed to encode image header: %w", err)
		}
		form.Set("message", string(message))
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/template/msg"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build gupshup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gupshup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gupshup returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug().
		Str("template", templateID).
		Str("destination", destination).
		Msg("whatsapp template sent")

	return nil
}

// NormalizePhone reduces a phone number to the bare-digit E.164-without-plus
// form the gateway expects. Ten-digit national numbers get the default
// country code prefixed.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	normalized := digits.String()
	if len(normalized) == 10 {
		normalized = "91" + normalized
	}
	if len(normalized) < 10 {
		return ""
	}
	return normalized
}
