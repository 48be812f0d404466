// Package bank dispatches fiat payout requests to the banking provider.
// Settlement never comes back on this path; the provider reports it later
// through the signed webhook.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// Options configures the banking client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a facade over the banking payout API. Without an API key every
// dispatch is accepted locally, so offline environments drive settlement
// purely through test webhooks.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type dispatchRequest struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New constructs a client with sane defaults and injected dependencies.
func New(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.bankrail.example.com/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Dispatch submits one payout request keyed by transferRef. The provider
// answers 409 when the reference was already accepted; that is a success
// here, since redelivering the same reference must not move funds twice.
func (c *Client) Dispatch(ctx context.Context, transferRef, destination string, amount int64, currency string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.HasCredentials() {
		c.logger.Debug().
			Str("ref", transferRef).
			Int64("amount", amount).
			Str("currency", currency).
			Msg("bank: synthetic dispatch accepted")
		return nil
	}

	payload := dispatchRequest{
		Reference:   transferRef,
		Destination: destination,
		Amount:      amount,
		Currency:    currency,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bank: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bank: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bank: http request: %v: %w", err, domain.ErrProvider)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		c.logger.Info().Str("ref", transferRef).Msg("bank: dispatch already accepted")
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return fmt.Errorf("bank: %s (%s): %w", detail.Message, detail.Code, domain.ErrProvider)
		}
		return fmt.Errorf("bank: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProvider)
	}

	c.logger.Debug().
		Str("ref", transferRef).
		Int64("amount", amount).
		Str("currency", currency).
		Msg("bank: dispatch accepted")
	return nil
}
