package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/processor"
)

// Config holds the processor connection settings.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the card processor's REST API. Requests are form-encoded,
// responses are JSON, and charges carry an Idempotency-Key header so retried
// attempts do not double-charge.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     core.Logger
}

// NewClient creates a processor client.
func NewClient(cfg Config, logger core.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type chargeResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Captured bool   `json:"captured"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Charge string `json:"charge"`
	Amount int64  `json:"amount"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Charge creates a charge. With Capture false the charge is an authorization
// that must be captured or refunded later.
func (c *Client) Charge(ctx context.Context, req processor.ChargeRequest) (*processor.ChargeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("capture", strconv.FormatBool(req.Capture))
	if req.Source != "" {
		form.Set("source", req.Source)
	}
	if req.CustomerID != "" {
		form.Set("customer", req.CustomerID)
	}

	var resp chargeResponse
	if err := c.post(ctx, "/v1/charges", form, req.IdempotencyKey, &resp, "charge", ""); err != nil {
		return nil, err
	}

	c.logger.Info("processor charge created", map[string]any{
		"charge_id": resp.ID,
		"amount":    resp.Amount,
		"captured":  resp.Captured,
	})
	return &processor.ChargeResult{
		ChargeID: resp.ID,
		Amount:   resp.Amount,
		Captured: resp.Captured,
	}, nil
}

// Capture settles a previously authorized charge.
func (c *Client) Capture(ctx context.Context, chargeID string, amount int64) (*processor.CaptureResult, error) {
	form := url.Values{}
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}

	var resp chargeResponse
	path := fmt.Sprintf("/v1/charges/%s/capture", url.PathEscape(chargeID))
	if err := c.post(ctx, path, form, "", &resp, "capture", chargeID); err != nil {
		return nil, err
	}

	c.logger.Info("processor charge captured", map[string]any{
		"charge_id": resp.ID,
		"amount":    resp.Amount,
	})
	return &processor.CaptureResult{
		ChargeID: resp.ID,
		Amount:   resp.Amount,
	}, nil
}

// Refund reverses a charge in full. Refunding an uncaptured charge releases
// the authorization.
func (c *Client) Refund(ctx context.Context, chargeID, reason string) (*processor.RefundResult, error) {
	form := url.Values{}
	form.Set("charge", chargeID)
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var resp refundResponse
	if err := c.post(ctx, "/v1/refunds", form, "", &resp, "refund", chargeID); err != nil {
		return nil, err
	}

	c.logger.Info("processor charge refunded", map[string]any{
		"charge_id": resp.Charge,
		"refund_id": resp.ID,
		"amount":    resp.Amount,
	})
	return &processor.RefundResult{
		RefundID: resp.ID,
		ChargeID: resp.Charge,
		Amount:   resp.Amount,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any, operation, chargeID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &errs.ProcessorError{Operation: operation, ChargeID: chargeID, Detail: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errs.ProcessorError{Operation: operation, ChargeID: chargeID, Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		detail := fmt.Sprintf("status %d", resp.StatusCode)
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			detail = fmt.Sprintf("status %d: %s (%s)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Code)
		}
		c.logger.Error("processor call rejected", map[string]any{
			"operation": operation,
			"charge_id": chargeID,
			"detail":    detail,
		})
		return &errs.ProcessorError{Operation: operation, ChargeID: chargeID, Detail: detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.ProcessorError{Operation: operation, ChargeID: chargeID, Detail: "decoding response", Err: err}
	}
	return nil
}
