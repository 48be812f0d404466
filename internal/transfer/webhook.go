package transfer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/metrics"
)

// ErrBadSignature rejects webhook payloads that fail HMAC verification. It
// matches domain.ErrIntegrity under errors.Is; the HTTP edge answers it
// with 401.
var ErrBadSignature = fmt.Errorf("webhook signature mismatch: %w", domain.ErrIntegrity)

// BankEvent is the settlement payload the banking provider posts back.
// Status carries the terminal outcome; EventType is informational.
type BankEvent struct {
	ProviderRef   string `json:"provider_ref"`
	EventType     string `json:"event_type"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

// HandleBankWebhook settles a dispatched bank transfer from a signed
// provider callback. Deliveries are at-least-once: a payload for an already
// settled transfer is acknowledged without touching state.
func (e *Executor) HandleBankWebhook(ctx context.Context, signature string, body []byte) error {
	if !e.verifySignature(signature, body) {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		e.logger.Warn().Msg("bank webhook rejected: signature mismatch")
		return ErrBadSignature
	}

	var ev BankEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("decode webhook payload: %v: %w", err, domain.ErrValidation)
	}
	if ev.ProviderRef == "" {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("webhook payload missing provider_ref: %w", domain.ErrValidation)
	}

	var target domain.TransferStatus
	switch ev.Status {
	case string(domain.TransferSucceeded):
		target = domain.TransferSucceeded
	case string(domain.TransferFailed):
		target = domain.TransferFailed
	default:
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("webhook status %q is not a settlement: %w", ev.Status, domain.ErrValidation)
	}

	reason := strings.TrimSpace(ev.FailureReason)
	if target == domain.TransferFailed && reason == "" {
		reason = "bank transfer failed"
	}

	duplicate := false
	err := e.store.Tx(ctx, func(tx Tx) error {
		t, err := tx.TransferByProviderRef(ctx, ev.ProviderRef)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.WebhookEvents.WithLabelValues("unknown_ref").Inc()
			}
			return fmt.Errorf("transfer %s: %w", ev.ProviderRef, err)
		}
		if t.Status.Terminal() {
			duplicate = true
			return nil
		}

		ok, err := tx.SettleTransfer(ctx, t.ID, target, reason)
		if err != nil {
			return fmt.Errorf("settle transfer: %w", err)
		}
		if !ok {
			return fmt.Errorf("transfer %s not pending: %w", t.ID, domain.ErrState)
		}

		switch target {
		case domain.TransferSucceeded:
			ok, err = tx.MarkExecuted(ctx, t.ProposalID, t.ProviderRef)
		case domain.TransferFailed:
			ok, err = tx.MarkFailed(ctx, t.ProposalID, reason)
		}
		if err != nil {
			return fmt.Errorf("settle proposal %s: %w", t.ProposalID, err)
		}
		if !ok {
			return fmt.Errorf("proposal %s not executing for settled transfer %s: %w", t.ProposalID, t.ID, domain.ErrIntegrity)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if duplicate {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		e.logger.Info().Str("provider_ref", ev.ProviderRef).Msg("bank webhook redelivery ignored")
		return nil
	}

	metrics.WebhookEvents.WithLabelValues("settled").Inc()
	outcome := "executed"
	if target == domain.TransferFailed {
		outcome = "failed"
	}
	metrics.ProposalsSettled.WithLabelValues(outcome).Inc()
	e.logger.Info().
		Str("provider_ref", ev.ProviderRef).
		Str("event_type", ev.EventType).
		Str("outcome", outcome).
		Msg("bank transfer settled")
	return nil
}

// verifySignature checks the hex HMAC-SHA256 of body against signature.
// An unset secret fails closed.
func (e *Executor) verifySignature(signature string, body []byte) bool {
	if len(e.secret) == 0 {
		return false
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, e.secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// SignWebhookBody computes the signature header value the provider attaches
// to a settlement payload. Exposed for tests and the synthetic provider.
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
