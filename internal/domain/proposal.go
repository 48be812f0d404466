package domain

import "time"

// ProposalStatus enumerates the withdrawal proposal lifecycle.
//
// pending -> scored -> approved -> executing -> executed
//                   \> rejected            \> failed
//
// The operator may also decide a still-pending proposal; the AI score is
// advisory input and never a gate.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalScored    ProposalStatus = "scored"
	ProposalApproved  ProposalStatus = "approved"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalExecuting ProposalStatus = "executing"
	ProposalExecuted  ProposalStatus = "executed"
	ProposalFailed    ProposalStatus = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalRejected || s == ProposalExecuted || s == ProposalFailed
}

// Decidable reports whether an operator decision is accepted from s.
func (s ProposalStatus) Decidable() bool {
	return s == ProposalPending || s == ProposalScored
}

// TransferType selects the payout rail.
type TransferType string

const (
	TransferCrypto TransferType = "crypto"
	TransferBank   TransferType = "bank"
)

// Valid reports whether t is a known payout rail.
func (t TransferType) Valid() bool {
	return t == TransferCrypto || t == TransferBank
}

// Proposal is a withdrawal request against one milestone. Votes are advisory
// tallies; RequiredApprovals stays zero and the operator decision is the only
// path to approved or rejected.
type Proposal struct {
	ID                string
	ProjectID         string
	MilestoneID       string
	Amount            int64
	EvidenceRef       string
	TransferType      TransferType
	DestinationRef    string
	Status            ProposalStatus
	AIScore           *int
	AINotes           *string
	AIStartedAt       *time.Time
	Approvals         int
	Rejections        int
	RequiredApprovals int
	DecidedBy         *string
	DecisionNote      *string
	FailureReason     *string
	TxRef             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExecutedAt        *time.Time
}

// Votable reports whether votes are still accepted.
func (p Proposal) Votable() bool {
	return p.Status.Decidable()
}

// Vote is one user's advisory stance on a proposal. Re-voting replaces the
// stance; it never triggers a status transition.
type Vote struct {
	ProposalID string
	VoterID    string
	Approve    bool
	Comment    string
	CreatedAt  time.Time
}

// ProposalDetail is the read-only proposal projection, joined with the bank
// transfer state when one exists.
type ProposalDetail struct {
	Proposal
	TransferStatus *TransferStatus
	TransferRef    *string
}
