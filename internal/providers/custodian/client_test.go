package custodian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

type stubTransport struct {
	status   int
	body     string
	lastReq  *http.Request
	lastBody []byte
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		s.lastBody = body
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func TestSyntheticBalances(t *testing.T) {
	client, err := New(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	rich, err := client.Balance(context.Background(), "wallet-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if rich != syntheticRichBalance {
		t.Fatalf("balance = %d, want %d", rich, syntheticRichBalance)
	}

	poor, err := client.Balance(context.Background(), "poor-wallet-1")
	if err != nil {
		t.Fatalf("poor balance: %v", err)
	}
	if poor != syntheticPoorBalance {
		t.Fatalf("poor balance = %d, want %d", poor, syntheticPoorBalance)
	}
}

func TestSyntheticTxHashStableByRef(t *testing.T) {
	client, _ := New(Options{})

	first, err := client.Withdraw(context.Background(), "wallet-1", "dest", 500, "ref-1")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	second, err := client.Withdraw(context.Background(), "wallet-1", "dest", 500, "ref-1")
	if err != nil {
		t.Fatalf("withdraw again: %v", err)
	}
	if first != second {
		t.Fatalf("retried withdraw changed hash: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "0x") || len(first) != 42 {
		t.Fatalf("hash = %q, want 0x-prefixed 20-byte hex", first)
	}

	payout, err := client.PayOut(context.Background(), "wallet-1", 500, "ref-1")
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if payout == first {
		t.Fatal("payout and withdraw share a hash for the same ref")
	}

	other, _ := client.Withdraw(context.Background(), "wallet-1", "dest", 500, "ref-2")
	if other == first {
		t.Fatal("distinct refs produced the same hash")
	}
}

func TestRemoteBalance(t *testing.T) {
	transport := &stubTransport{status: http.StatusOK, body: `{"balance": 12345}`}
	client, _ := New(Options{
		APIKey:     "test-key",
		BaseURL:    "https://custody.test/v1",
		HTTPClient: &http.Client{Transport: transport},
	})

	balance, err := client.Balance(context.Background(), "wallet-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 12345 {
		t.Fatalf("balance = %d, want 12345", balance)
	}
	if got := transport.lastReq.URL.String(); got != "https://custody.test/v1/wallets/wallet-1/balance" {
		t.Fatalf("url = %q", got)
	}
	if got := transport.lastReq.Method; got != http.MethodGet {
		t.Fatalf("method = %s, want GET", got)
	}
	if got := transport.lastReq.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestRemoteWithdraw(t *testing.T) {
	transport := &stubTransport{status: http.StatusOK, body: `{"tx_hash": "0xfeed"}`}
	client, _ := New(Options{
		APIKey:     "test-key",
		BaseURL:    "https://custody.test/v1",
		HTTPClient: &http.Client{Transport: transport},
	})

	hash, err := client.Withdraw(context.Background(), "wallet-1", "0xdest", 750, "ref-9")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if hash != "0xfeed" {
		t.Fatalf("hash = %q", hash)
	}
	if got := transport.lastReq.URL.Path; got != "/v1/wallets/wallet-1/withdrawals" {
		t.Fatalf("path = %q", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["amount"] != float64(750) || payload["destination"] != "0xdest" || payload["reference"] != "ref-9" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestRemoteFailureIsProviderError(t *testing.T) {
	transport := &stubTransport{status: http.StatusBadGateway, body: `{"code":"hsm_offline","message":"signer unavailable"}`}
	client, _ := New(Options{APIKey: "test-key", HTTPClient: &http.Client{Transport: transport}})

	_, err := client.Withdraw(context.Background(), "wallet-1", "dest", 10, "ref-1")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "signer unavailable") {
		t.Fatalf("err = %v, want provider message surfaced", err)
	}
}
