package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/transfer"
)

const webhookSecret = "whsec-test"

func webhookApp(store *fakeTransferStore) *App {
	app := newTestApp(&stubSQL{})
	app.Transfers = transfer.NewExecutor(store, &fakeCustodyClient{}, &fakeBankClient{}, webhookSecret, "USD", zerolog.Nop())
	return app
}

// dispatchedBankState is the post-dispatch snapshot: proposal executing,
// transfer pending, settlement still owed by the provider.
func dispatchedBankState() *fakeTransferStore {
	p := pendingProposal("prop-1")
	p.Status = domain.ProposalExecuting
	p.TransferType = domain.TransferBank
	store := newFakeTransferStore(p)
	store.transfers["01JBANKREF00000000000000"] = &domain.Transfer{
		ID:          "tr-1",
		ProposalID:  "prop-1",
		ProviderRef: "01JBANKREF00000000000000",
		Status:      domain.TransferPending,
		Amount:      3000,
		Currency:    "USD",
	}
	return store
}

func postWebhook(app *App, signature string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/webhooks/bank", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	return serve("POST", "/api/v1/webhooks/bank", app.BankWebhook, req)
}

func TestBankWebhookBadSignature(t *testing.T) {
	store := dispatchedBankState()
	app := webhookApp(store)

	body, _ := json.Marshal(map[string]any{"provider_ref": "01JBANKREF00000000000000", "status": "succeeded"})
	rr := postWebhook(app, "sha256=deadbeef", body)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body=%s", rr.Code, rr.Body.String())
	}
	if env := decodeErr(t, rr); env.Error.Code != "integrity_error" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if store.transfers["01JBANKREF00000000000000"].Status != domain.TransferPending {
		t.Fatal("rejected payload must not touch transfer state")
	}
	if store.proposals["prop-1"].Status != domain.ProposalExecuting {
		t.Fatal("rejected payload must not touch proposal state")
	}
}

func TestBankWebhookSettlesSucceeded(t *testing.T) {
	store := dispatchedBankState()
	app := webhookApp(store)

	body, _ := json.Marshal(map[string]any{
		"provider_ref": "01JBANKREF00000000000000",
		"event_type":   "transfer.settled",
		"status":       "succeeded",
	})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	if store.transfers["01JBANKREF00000000000000"].Status != domain.TransferSucceeded {
		t.Fatal("transfer not settled")
	}
	p := store.proposals["prop-1"]
	if p.Status != domain.ProposalExecuted {
		t.Fatalf("proposal status = %s, want executed", p.Status)
	}
	if p.TxRef == nil || *p.TxRef != "01JBANKREF00000000000000" {
		t.Fatalf("tx_ref = %v, want provider ref", p.TxRef)
	}
}

func TestBankWebhookFailureMarksProposalFailed(t *testing.T) {
	store := dispatchedBankState()
	app := webhookApp(store)

	body, _ := json.Marshal(map[string]any{"provider_ref": "01JBANKREF00000000000000", "status": "failed"})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	p := store.proposals["prop-1"]
	if p.Status != domain.ProposalFailed {
		t.Fatalf("proposal status = %s, want failed", p.Status)
	}
	if p.FailureReason == nil || *p.FailureReason != "bank transfer failed" {
		t.Fatalf("failure_reason = %v, want default reason", p.FailureReason)
	}
}

func TestBankWebhookRedelivery(t *testing.T) {
	store := dispatchedBankState()
	store.transfers["01JBANKREF00000000000000"].Status = domain.TransferSucceeded
	store.proposals["prop-1"].Status = domain.ProposalExecuted
	app := webhookApp(store)

	body, _ := json.Marshal(map[string]any{"provider_ref": "01JBANKREF00000000000000", "status": "failed"})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	if store.proposals["prop-1"].Status != domain.ProposalExecuted {
		t.Fatal("redelivery must not change a settled proposal")
	}
	if store.transfers["01JBANKREF00000000000000"].Status != domain.TransferSucceeded {
		t.Fatal("redelivery must not change a settled transfer")
	}
}

func TestBankWebhookUnknownRef(t *testing.T) {
	app := webhookApp(newFakeTransferStore())

	body, _ := json.Marshal(map[string]any{"provider_ref": "01JNOSUCHREF000000000000", "status": "succeeded"})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body=%s", rr.Code, rr.Body.String())
	}
}

func TestBankWebhookUnknownStatus(t *testing.T) {
	store := dispatchedBankState()
	app := webhookApp(store)

	body, _ := json.Marshal(map[string]any{"provider_ref": "01JBANKREF00000000000000", "status": "reversed"})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rr.Code, rr.Body.String())
	}
	if env := decodeErr(t, rr); env.Error.Code != "validation_error" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if store.transfers["01JBANKREF00000000000000"].Status != domain.TransferPending {
		t.Fatal("unsettleable status must not touch state")
	}
}

func TestBankWebhookMissingProviderRef(t *testing.T) {
	app := webhookApp(newFakeTransferStore())

	body, _ := json.Marshal(map[string]any{"status": "succeeded"})
	rr := postWebhook(app, transfer.SignWebhookBody(webhookSecret, body), body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rr.Code, rr.Body.String())
	}
}
