package bank

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
	calls    int
	lastReq  *http.Request
	lastBody []byte
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
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

func TestSyntheticDispatchAccepts(t *testing.T) {
	transport := &stubTransport{status: http.StatusOK}
	client, err := New(Options{HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.Dispatch(context.Background(), "ref-1", "PL61109010140000071219812874", 5_000, "USD"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if transport.calls != 0 {
		t.Fatalf("synthetic dispatch made %d http calls", transport.calls)
	}
}

func TestRemoteDispatch(t *testing.T) {
	transport := &stubTransport{status: http.StatusAccepted, body: `{"status":"accepted"}`}
	client, _ := New(Options{
		APIKey:     "test-key",
		BaseURL:    "https://bank.test/v1",
		HTTPClient: &http.Client{Transport: transport},
	})

	if err := client.Dispatch(context.Background(), "ref-1", "PL61109010140000071219812874", 5_000, "EUR"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := transport.lastReq.URL.String(); got != "https://bank.test/v1/payouts" {
		t.Fatalf("url = %q", got)
	}
	if got := transport.lastReq.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Fatalf("authorization = %q", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["reference"] != "ref-1" || payload["currency"] != "EUR" || payload["amount"] != float64(5_000) {
		t.Fatalf("payload = %v", payload)
	}
}

func TestDuplicateDispatchConflictIsSuccess(t *testing.T) {
	transport := &stubTransport{status: http.StatusConflict, body: `{"code":"duplicate_reference","message":"already accepted"}`}
	client, _ := New(Options{APIKey: "test-key", HTTPClient: &http.Client{Transport: transport}})

	if err := client.Dispatch(context.Background(), "ref-1", "dest", 100, "USD"); err != nil {
		t.Fatalf("conflict dispatch: %v", err)
	}
}

func TestRemoteFailureIsProviderError(t *testing.T) {
	transport := &stubTransport{status: http.StatusInternalServerError, body: `{"code":"rail_down","message":"sepa unavailable"}`}
	client, _ := New(Options{APIKey: "test-key", HTTPClient: &http.Client{Transport: transport}})

	err := client.Dispatch(context.Background(), "ref-1", "dest", 100, "USD")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "sepa unavailable") {
		t.Fatalf("err = %v, want provider message surfaced", err)
	}
}
