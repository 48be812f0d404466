package handlers

import (
	"errors"
	"io"
	"net/http"

	"server/internal/transfer"
)

// BankWebhook receives signed settlement events from the banking provider.
// Signature failures answer 401 without touching state; redelivery of a
// settled transfer answers 200 so the provider stops retrying.
func (a *App) BankWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "unreadable body")
		return
	}
	sig := r.Header.Get("X-Webhook-Signature")
	if err := a.Transfers.HandleBankWebhook(r.Context(), sig, body); err != nil {
		if errors.Is(err, transfer.ErrBadSignature) {
			a.error(w, http.StatusUnauthorized, "integrity_error", "invalid signature")
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "accepted"})
}
