package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"spruce/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second

	// maxAttempts bounds automatic retries on transient provider failures.
	// User-triggered retry-payment is the only retry path beyond this.
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Client is the HTTP implementation of PaymentGateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		log: logger.New("gateway"),
	}
}

type createHoldRequest struct {
	AmountCents int64  `json:"amountCents"`
	CustomerRef string `json:"customerRef"`
}

func (c *Client) CreateHold(
	ctx context.Context,
	amountCents int64,
	customerRef string,
) (*Hold, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("invalid hold amount: %d", amountCents)
	}

	var hold Hold
	url := fmt.Sprintf("%s/v1/holds", c.baseURL)
	err := c.do(ctx, http.MethodPost, url, createHoldRequest{
		AmountCents: amountCents,
		CustomerRef: customerRef,
	}, &hold)
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *Client) CaptureHold(ctx context.Context, holdID string) (*Hold, error) {
	var hold Hold
	url := fmt.Sprintf("%s/v1/holds/%s/capture", c.baseURL, holdID)
	if err := c.do(ctx, http.MethodPost, url, nil, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *Client) CancelHold(ctx context.Context, holdID string) (*Hold, error) {
	var hold Hold
	url := fmt.Sprintf("%s/v1/holds/%s/cancel", c.baseURL, holdID)
	if err := c.do(ctx, http.MethodPost, url, nil, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *Client) Refund(ctx context.Context, holdID string) (*Hold, error) {
	var hold Hold
	url := fmt.Sprintf("%s/v1/holds/%s/refund", c.baseURL, holdID)
	if err := c.do(ctx, http.MethodPost, url, nil, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *Client) RetrieveHold(ctx context.Context, holdID string) (*Hold, error) {
	var hold Hold
	url := fmt.Sprintf("%s/v1/holds/%s", c.baseURL, holdID)
	if err := c.do(ctx, http.MethodGet, url, nil, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, target any) error {
	log := c.log.Function("do")

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s", ErrUnavailable, ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		retryable, err := c.doOnce(ctx, method, url, payload, target)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable {
			return err
		}
		log.Warn("retrying gateway call", "method", method, "url", url, "attempt", attempt, "error", err)
	}

	return lastErr
}

// doOnce performs a single request. The bool result reports whether the error
// is transient and worth another attempt.
func (c *Client) doOnce(
	ctx context.Context,
	method, url string,
	payload []byte,
	target any,
) (bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build gateway request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if target == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return false, fmt.Errorf("failed to decode gateway response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return false, ErrDeclined
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrHoldNotFound
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}
}
