package domain

import "time"

// TransferStatus tracks asynchronous bank settlement. Terminal states are
// final: webhook redelivery for a settled transfer is a no-op.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferSucceeded TransferStatus = "succeeded"
	TransferFailed    TransferStatus = "failed"
)

// Terminal reports whether s is a settled state.
func (s TransferStatus) Terminal() bool {
	return s == TransferSucceeded || s == TransferFailed
}

// Transfer is a dispatched bank payout awaiting settlement. ProviderRef is
// the idempotency key shared with the banking provider; webhooks address the
// transfer by it.
type Transfer struct {
	ID            string
	ProposalID    string
	ProviderRef   string
	Status        TransferStatus
	Amount        int64
	Currency      string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
