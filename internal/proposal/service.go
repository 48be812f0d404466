// Package proposal drives the milestone withdrawal lifecycle:
//
//	pending -> scored -> approved | rejected
//
// Votes are advisory tallies the operator can consult; they never transition
// a proposal. Execution of approved proposals lives in the transfer package.
package proposal

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/metrics"
)

// Tx is the transactional surface for proposal writes.
type Tx interface {
	Project(ctx context.Context, id string) (*domain.Project, error)
	Milestone(ctx context.Context, id string) (*domain.Milestone, error)
	MilestoneExecutedTotal(ctx context.Context, milestoneID string) (int64, error)
	OpenProposalExists(ctx context.Context, milestoneID string) (bool, error)
	InsertProposal(ctx context.Context, p *domain.Proposal) error
	ProposalForUpdate(ctx context.Context, id string) (*domain.Proposal, error)
	UpsertVote(ctx context.Context, v domain.Vote) error
	RecountVotes(ctx context.Context, proposalID string) (approvals, rejections int, err error)
	Decide(ctx context.Context, proposalID string, status domain.ProposalStatus, deciderID, note string) (bool, error)
}

// Store opens proposal transactions. ScoreProposal is a single guarded
// statement: it only lands on a still-pending row.
type Store interface {
	Tx(ctx context.Context, fn func(tx Tx) error) error
	ScoreProposal(ctx context.Context, id string, score int, notes string) (bool, error)
}

// CreateInput carries a new withdrawal request.
type CreateInput struct {
	ProjectID      string
	MilestoneID    string
	Amount         int64
	EvidenceRef    string
	TransferType   domain.TransferType
	DestinationRef string
}

// Service is the proposal lifecycle.
type Service struct {
	store  Store
	logger infra.Logger
}

func NewService(store Store, logger infra.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "proposal").Logger(),
	}
}

// Create opens a withdrawal proposal against a milestone. The amount must
// fit the milestone's remaining allocation: its percentage slice of the
// funding goal minus everything already executed for it. One open proposal
// per milestone at a time.
func (s *Service) Create(ctx context.Context, actor domain.User, in CreateInput) (*domain.Proposal, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("proposal amount %d must be positive: %w", in.Amount, domain.ErrValidation)
	}
	if strings.TrimSpace(in.EvidenceRef) == "" {
		return nil, fmt.Errorf("evidence reference is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(in.DestinationRef) == "" {
		return nil, fmt.Errorf("destination reference is required: %w", domain.ErrValidation)
	}
	if !in.TransferType.Valid() {
		return nil, fmt.Errorf("unknown transfer type %q: %w", in.TransferType, domain.ErrValidation)
	}

	var out *domain.Proposal
	err := s.store.Tx(ctx, func(tx Tx) error {
		project, err := tx.Project(ctx, in.ProjectID)
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}
		if !domain.CanProposeFor(actor, *project) {
			return fmt.Errorf("propose for project %s: %w", project.ID, domain.ErrUnauthorized)
		}

		milestone, err := tx.Milestone(ctx, in.MilestoneID)
		if err != nil {
			return fmt.Errorf("load milestone: %w", err)
		}
		if milestone.ProjectID != project.ID {
			return fmt.Errorf("milestone %s does not belong to project %s: %w", milestone.ID, project.ID, domain.ErrValidation)
		}

		open, err := tx.OpenProposalExists(ctx, milestone.ID)
		if err != nil {
			return fmt.Errorf("check open proposals: %w", err)
		}
		if open {
			return fmt.Errorf("milestone %s: %w", milestone.ID, domain.ErrDuplicateProposal)
		}

		executed, err := tx.MilestoneExecutedTotal(ctx, milestone.ID)
		if err != nil {
			return fmt.Errorf("load executed total: %w", err)
		}
		remaining := milestone.Budget(project.FundingGoal) - executed
		if in.Amount > remaining {
			return fmt.Errorf("amount %d exceeds milestone remainder %d: %w", in.Amount, remaining, domain.ErrIntegrity)
		}

		p := &domain.Proposal{
			ProjectID:      project.ID,
			MilestoneID:    milestone.ID,
			Amount:         in.Amount,
			EvidenceRef:    strings.TrimSpace(in.EvidenceRef),
			TransferType:   in.TransferType,
			DestinationRef: strings.TrimSpace(in.DestinationRef),
			Status:         domain.ProposalPending,
		}
		if err := tx.InsertProposal(ctx, p); err != nil {
			return fmt.Errorf("insert proposal: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("proposal_id", out.ID).
		Str("milestone_id", out.MilestoneID).
		Int64("amount", out.Amount).
		Msg("proposal created")
	return out, nil
}

// Vote records or replaces the actor's advisory stance. Tallies update;
// status never does.
func (s *Service) Vote(ctx context.Context, actor domain.User, proposalID string, approve bool, comment string) (approvals, rejections int, err error) {
	err = s.store.Tx(ctx, func(tx Tx) error {
		p, err := tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("load proposal: %w", err)
		}
		project, err := tx.Project(ctx, p.ProjectID)
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}
		if !domain.CanVoteOn(actor, *p, project.AdminUserID) {
			return fmt.Errorf("vote on proposal %s: %w", p.ID, domain.ErrUnauthorized)
		}
		if !p.Votable() {
			return fmt.Errorf("proposal %s is %s: %w", p.ID, p.Status, domain.ErrState)
		}
		if err := tx.UpsertVote(ctx, domain.Vote{
			ProposalID: p.ID,
			VoterID:    actor.ID,
			Approve:    approve,
			Comment:    strings.TrimSpace(comment),
		}); err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}
		approvals, rejections, err = tx.RecountVotes(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("recount votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return approvals, rejections, nil
}

// Decide is the operator's approval or rejection. Valid from pending or
// scored; the AI score is advisory input, not a prerequisite. Rejection is
// terminal.
func (s *Service) Decide(ctx context.Context, actor domain.User, proposalID string, approve bool, note string) (*domain.Proposal, error) {
	if !domain.CanDecide(actor) {
		return nil, fmt.Errorf("decide proposal: %w", domain.ErrUnauthorized)
	}

	target := domain.ProposalRejected
	if approve {
		target = domain.ProposalApproved
	}

	var out *domain.Proposal
	err := s.store.Tx(ctx, func(tx Tx) error {
		p, err := tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("load proposal: %w", err)
		}
		if !p.Status.Decidable() {
			return fmt.Errorf("proposal %s is %s: %w", p.ID, p.Status, domain.ErrState)
		}
		ok, err := tx.Decide(ctx, p.ID, target, actor.ID, strings.TrimSpace(note))
		if err != nil {
			return fmt.Errorf("decide: %w", err)
		}
		if !ok {
			return fmt.Errorf("proposal %s changed underneath: %w", p.ID, domain.ErrState)
		}
		p.Status = target
		p.DecidedBy = &actor.ID
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "rejected"
	if approve {
		outcome = "approved"
	}
	metrics.ProposalsDecided.WithLabelValues(outcome).Inc()
	s.logger.Info().
		Str("proposal_id", out.ID).
		Str("outcome", outcome).
		Str("decided_by", actor.ID).
		Msg("proposal decided")
	return out, nil
}

// Score lands the AI verification result on a still-pending proposal and
// moves it to scored. Scoring an already decided or already scored proposal
// is reported as a state error; the worker treats that as a benign race.
func (s *Service) Score(ctx context.Context, proposalID string, score int, notes string) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score %d outside 0..100: %w", score, domain.ErrValidation)
	}
	ok, err := s.store.ScoreProposal(ctx, proposalID, score, notes)
	if err != nil {
		return fmt.Errorf("score proposal: %w", err)
	}
	if !ok {
		return fmt.Errorf("proposal %s no longer pending: %w", proposalID, domain.ErrState)
	}
	s.logger.Info().Str("proposal_id", proposalID).Int("score", score).Msg("proposal scored")
	return nil
}
