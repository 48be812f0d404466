// Package aiverify calls the external evidence verification service that
// scores withdrawal proposals.
package aiverify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
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

// Options configures the verification client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a facade over the verification API. Without an API key it
// produces deterministic synthetic scores so local and CI environments run
// fully offline; with a key configured, remote failures surface as provider
// errors and are never papered over with a synthetic score.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Request carries the evidence under review.
type Request struct {
	ProposalID     string
	EvidenceRef    string
	MilestoneTitle string
	Amount         int64
}

// Result is the verification outcome.
type Result struct {
	Score int
	Notes string
}

type evaluateRequest struct {
	EvidenceRef    string `json:"evidence_ref"`
	MilestoneTitle string `json:"milestone_title"`
	Amount         int64  `json:"amount"`
	Model          string `json:"model,omitempty"`
}

type evaluateResponse struct {
	Score int    `json:"score"`
	Notes string `json:"notes"`
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
		baseURL = "https://api.verify.example.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "evidence-review-1"
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
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Evaluate scores the evidence behind one proposal, 0 to 100.
func (c *Client) Evaluate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.EvidenceRef) == "" {
		return nil, fmt.Errorf("aiverify: evidence ref is required: %w", domain.ErrValidation)
	}
	if !c.HasCredentials() {
		return c.synthetic(req), nil
	}
	return c.remote(ctx, req)
}

func (c *Client) synthetic(req Request) *Result {
	seed := sha256.Sum256([]byte(req.ProposalID + "|" + req.EvidenceRef + "|" + req.MilestoneTitle))
	score := int(seed[0]) % 101

	notes := fmt.Sprintf("synthetic review %s: evidence %s assessed offline against milestone %q",
		hex.EncodeToString(seed[:6]), req.EvidenceRef, req.MilestoneTitle)
	c.logger.Debug().
		Str("proposal_id", req.ProposalID).
		Int("score", score).
		Msg("aiverify: synthetic evaluation")
	return &Result{Score: score, Notes: notes}
}

func (c *Client) remote(ctx context.Context, req Request) (*Result, error) {
	payload := evaluateRequest{
		EvidenceRef:    req.EvidenceRef,
		MilestoneTitle: req.MilestoneTitle,
		Amount:         req.Amount,
		Model:          c.model,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("aiverify: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("aiverify: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("aiverify: http request: %v: %w", err, domain.ErrProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("aiverify: read response: %v: %w", err, domain.ErrProvider)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("aiverify: %s (%s): %w", detail.Message, detail.Code, domain.ErrProvider)
		}
		return nil, fmt.Errorf("aiverify: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProvider)
	}

	var decoded evaluateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("aiverify: decode response: %v: %w", err, domain.ErrProvider)
	}
	if decoded.Score < 0 || decoded.Score > 100 {
		return nil, fmt.Errorf("aiverify: score %d outside 0..100: %w", decoded.Score, domain.ErrProvider)
	}

	c.logger.Debug().
		Str("proposal_id", req.ProposalID).
		Int("score", decoded.Score).
		Msg("aiverify: remote evaluation")
	return &Result{Score: decoded.Score, Notes: decoded.Notes}, nil
}
