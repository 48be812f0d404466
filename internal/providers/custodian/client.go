// Package custodian talks to the crypto custody service holding pool and
// project wallets.
package custodian

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// Options configures the custody client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a facade over the custody API. Without an API key every call is
// served by a deterministic in-process simulation: balances are effectively
// unbounded unless the wallet id carries a "poor-" prefix, and transaction
// hashes derive from the idempotency ref, so retried calls return the same
// hash. With a key configured, calls go over HTTP and failures surface as
// provider errors.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type payoutRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination,omitempty"`
	Reference   string `json:"reference"`
}

type payoutResponse struct {
	TxHash string `json:"tx_hash"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// syntheticRichBalance backs every simulated wallet without a "poor-"
// prefix. Large enough that offline runs never trip the balance check.
const syntheticRichBalance = int64(1) << 40

const syntheticPoorBalance = int64(2_500)

// New constructs a client with sane defaults and injected dependencies.
func New(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.custody.example.com/v1"
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

// Balance returns the spendable amount held in walletID.
func (c *Client) Balance(ctx context.Context, walletID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !c.HasCredentials() {
		if strings.HasPrefix(walletID, "poor-") {
			return syntheticPoorBalance, nil
		}
		return syntheticRichBalance, nil
	}

	var decoded balanceResponse
	path := fmt.Sprintf("/wallets/%s/balance", url.PathEscape(walletID))
	if err := c.invoke(ctx, http.MethodGet, path, nil, &decoded); err != nil {
		return 0, err
	}
	return decoded.Balance, nil
}

// PayOut moves amount from custody into walletID. ref is the idempotency
// key: repeating a ref must not move funds twice.
func (c *Client) PayOut(ctx context.Context, walletID string, amount int64, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !c.HasCredentials() {
		return c.syntheticTx("payout", walletID, ref), nil
	}

	var decoded payoutResponse
	path := fmt.Sprintf("/wallets/%s/payouts", url.PathEscape(walletID))
	if err := c.invoke(ctx, http.MethodPost, path, payoutRequest{Amount: amount, Reference: ref}, &decoded); err != nil {
		return "", err
	}
	return decoded.TxHash, nil
}

// Withdraw moves amount out of walletID to an external destination address.
// ref is the idempotency key.
func (c *Client) Withdraw(ctx context.Context, walletID, destination string, amount int64, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !c.HasCredentials() {
		return c.syntheticTx("withdraw", walletID, ref), nil
	}

	var decoded payoutResponse
	path := fmt.Sprintf("/wallets/%s/withdrawals", url.PathEscape(walletID))
	req := payoutRequest{Amount: amount, Destination: destination, Reference: ref}
	if err := c.invoke(ctx, http.MethodPost, path, req, &decoded); err != nil {
		return "", err
	}
	return decoded.TxHash, nil
}

func (c *Client) syntheticTx(kind, walletID, ref string) string {
	h := sha256.New()
	h.Write([]byte("custody-tx|" + kind + "|" + ref))
	hash := "0x" + hex.EncodeToString(h.Sum(nil))[:40]
	c.logger.Debug().
		Str("wallet_id", walletID).
		Str("ref", ref).
		Str("tx_hash", hash).
		Msgf("custodian: synthetic %s", kind)
	return hash
}

func (c *Client) invoke(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("custodian: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("custodian: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("custodian: http request: %v: %w", err, domain.ErrProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("custodian: read response: %v: %w", err, domain.ErrProvider)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return fmt.Errorf("custodian: %s (%s): %w", detail.Message, detail.Code, domain.ErrProvider)
		}
		return fmt.Errorf("custodian: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProvider)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("custodian: decode response: %v: %w", err, domain.ErrProvider)
	}
	return nil
}
