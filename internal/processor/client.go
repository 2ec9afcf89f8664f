package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
)

// Client talks to the payment processor's REST API. Idempotency keys ride in
// the Idempotency-Key header so a re-sent request dedupes server-side.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.ProcessorConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type captureRequest struct {
	Amount       int64  `json:"amount"`
	PayerAccount string `json:"payer_account"`
}

type transferRequest struct {
	Amount             int64  `json:"amount"`
	DestinationAccount string `json:"destination_account"`
}

func (c *Client) Capture(ctx context.Context, amount int64, payerAccount, idempotencyKey string) (*Capture, error) {
	body, status, err := c.post(ctx, "/v1/captures", idempotencyKey, captureRequest{
		Amount:       amount,
		PayerAccount: payerAccount,
	})
	if err != nil {
		c.logger.Warn("capture request failed",
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := classify(status); err != nil {
		return nil, err
	}

	var capture Capture
	if err := json.Unmarshal(body, &capture); err != nil {
		return nil, fmt.Errorf("decoding capture response: %w", err)
	}
	return &capture, nil
}

func (c *Client) Transfer(ctx context.Context, amount int64, destinationAccount, idempotencyKey string) (*Transfer, error) {
	body, status, err := c.post(ctx, "/v1/transfers", idempotencyKey, transferRequest{
		Amount:             amount,
		DestinationAccount: destinationAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := classify(status); err != nil {
		return nil, err
	}

	var transfer Transfer
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, fmt.Errorf("decoding transfer response: %w", err)
	}
	return &transfer, nil
}

func (c *Client) GetCapture(ctx context.Context, idempotencyKey string) (*Capture, error) {
	endpoint := c.baseURL + "/v1/captures?idempotency_key=" + url.QueryEscape(idempotencyKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lookup returned %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var capture Capture
	if err := json.Unmarshal(body, &capture); err != nil {
		return nil, fmt.Errorf("decoding capture lookup: %w", err)
	}
	return &capture, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, payload interface{}) ([]byte, int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	c.logger.Debug("processor call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return body, resp.StatusCode, nil
}

// classify maps HTTP status to the two processor failure classes: 4xx is a
// decline, 5xx means the outcome is unknown.
func classify(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: status %d", ErrDeclined, status)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
}
