package proposal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type fakeStore struct {
	projects  map[string]*domain.Project
	milestone map[string]*domain.Milestone
	proposals map[string]*domain.Proposal
	votes     map[string]domain.Vote
	executed  map[string]int64
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:  map[string]*domain.Project{},
		milestone: map[string]*domain.Milestone{},
		proposals: map[string]*domain.Proposal{},
		votes:     map[string]domain.Vote{},
		executed:  map[string]int64{},
	}
}

func (s *fakeStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&fakeTx{store: s})
}

func (s *fakeStore) ScoreProposal(ctx context.Context, id string, score int, notes string) (bool, error) {
	p, ok := s.proposals[id]
	if !ok || p.Status != domain.ProposalPending {
		return false, nil
	}
	p.Status = domain.ProposalScored
	p.AIScore = &score
	p.AINotes = &notes
	return true, nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Project(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := t.store.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *fakeTx) Milestone(ctx context.Context, id string) (*domain.Milestone, error) {
	m, ok := t.store.milestone[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (t *fakeTx) MilestoneExecutedTotal(ctx context.Context, milestoneID string) (int64, error) {
	return t.store.executed[milestoneID], nil
}

func (t *fakeTx) OpenProposalExists(ctx context.Context, milestoneID string) (bool, error) {
	for _, p := range t.store.proposals {
		if p.MilestoneID == milestoneID && !p.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) InsertProposal(ctx context.Context, p *domain.Proposal) error {
	t.store.nextID++
	p.ID = fmt.Sprintf("prop-%d", t.store.nextID)
	cp := *p
	t.store.proposals[p.ID] = &cp
	return nil
}

func (t *fakeTx) ProposalForUpdate(ctx context.Context, id string) (*domain.Proposal, error) {
	p, ok := t.store.proposals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *fakeTx) UpsertVote(ctx context.Context, v domain.Vote) error {
	t.store.votes[v.ProposalID+"|"+v.VoterID] = v
	return nil
}

func (t *fakeTx) RecountVotes(ctx context.Context, proposalID string) (int, int, error) {
	approvals, rejections := 0, 0
	for _, v := range t.store.votes {
		if v.ProposalID != proposalID {
			continue
		}
		if v.Approve {
			approvals++
		} else {
			rejections++
		}
	}
	p := t.store.proposals[proposalID]
	p.Approvals = approvals
	p.Rejections = rejections
	return approvals, rejections, nil
}

func (t *fakeTx) Decide(ctx context.Context, proposalID string, status domain.ProposalStatus, deciderID, note string) (bool, error) {
	p, ok := t.store.proposals[proposalID]
	if !ok || !p.Status.Decidable() {
		return false, nil
	}
	p.Status = status
	p.DecidedBy = &deciderID
	if note != "" {
		p.DecisionNote = &note
	}
	return true, nil
}

func seedProject(s *fakeStore) (domain.Project, domain.Milestone) {
	project := domain.Project{
		ID:          "proj-1",
		Name:        "clean water",
		FundingGoal: 100_000,
		WalletID:    "wallet-1",
		AdminUserID: "admin-1",
	}
	milestone := domain.Milestone{
		ID:         "ms-1",
		ProjectID:  project.ID,
		Title:      "drill the first well",
		Percentage: 25,
		Position:   1,
	}
	s.projects[project.ID] = &project
	s.milestone[milestone.ID] = &milestone
	return project, milestone
}

func charityAdmin() domain.User {
	return domain.User{ID: "admin-1", Role: domain.RoleCharityAdmin, Verified: true}
}

func operator() domain.User {
	return domain.User{ID: "op-1", Role: domain.RolePlatform, Verified: true}
}

func newTestService(store Store) *Service {
	return NewService(store, zerolog.Nop())
}

func validInput() CreateInput {
	return CreateInput{
		ProjectID:      "proj-1",
		MilestoneID:    "ms-1",
		Amount:         10_000,
		EvidenceRef:    "ipfs://bafy-evidence",
		TransferType:   domain.TransferBank,
		DestinationRef: "PL61109010140000071219812874",
	}
}

func TestCreateHappyPath(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), charityAdmin(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != domain.ProposalPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if p.RequiredApprovals != 0 {
		t.Fatalf("required approvals = %d, want 0", p.RequiredApprovals)
	}
	if p.ID == "" {
		t.Fatal("proposal id not assigned")
	}
	if got := store.proposals[p.ID]; got == nil || got.Amount != 10_000 {
		t.Fatalf("stored proposal = %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"zero amount", func(in *CreateInput) { in.Amount = 0 }},
		{"negative amount", func(in *CreateInput) { in.Amount = -5 }},
		{"blank evidence", func(in *CreateInput) { in.EvidenceRef = "   " }},
		{"blank destination", func(in *CreateInput) { in.DestinationRef = "" }},
		{"unknown transfer type", func(in *CreateInput) { in.TransferType = "paypal" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Create(context.Background(), charityAdmin(), in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreateUnauthorized(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)

	actors := []domain.User{
		{ID: "admin-2", Role: domain.RoleCharityAdmin, Verified: true},
		{ID: "donor-1", Role: domain.RoleDonor, Verified: true},
		{ID: "op-1", Role: domain.RolePlatform, Verified: true},
	}
	for _, actor := range actors {
		if _, err := svc.Create(context.Background(), actor, validInput()); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("actor %s: err = %v, want unauthorized", actor.ID, err)
		}
	}
}

func TestCreateMilestoneFromOtherProject(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	store.projects["proj-2"] = &domain.Project{ID: "proj-2", FundingGoal: 50_000, AdminUserID: "admin-1"}
	store.milestone["ms-other"] = &domain.Milestone{ID: "ms-other", ProjectID: "proj-2", Percentage: 50, Position: 1}
	svc := newTestService(store)

	in := validInput()
	in.MilestoneID = "ms-other"
	if _, err := svc.Create(context.Background(), charityAdmin(), in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateSecondOpenProposalRejected(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)

	if _, err := svc.Create(context.Background(), charityAdmin(), validInput()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), charityAdmin(), validInput())
	if !errors.Is(err, domain.ErrDuplicateProposal) {
		t.Fatalf("err = %v, want duplicate proposal", err)
	}
	if !errors.Is(err, domain.ErrState) {
		t.Fatalf("err = %v, want state error class", err)
	}
}

func TestCreateAfterTerminalProposalAllowed(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)

	first, err := svc.Create(context.Background(), charityAdmin(), validInput())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	store.proposals[first.ID].Status = domain.ProposalRejected

	if _, err := svc.Create(context.Background(), charityAdmin(), validInput()); err != nil {
		t.Fatalf("create after rejection: %v", err)
	}
}

func TestCreateCappedByMilestoneRemainder(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	store.executed["ms-1"] = 20_000
	svc := newTestService(store)

	in := validInput()
	in.Amount = 6_000
	_, err := svc.Create(context.Background(), charityAdmin(), in)
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("err = %v, want integrity error", err)
	}

	in.Amount = 5_000
	if _, err := svc.Create(context.Background(), charityAdmin(), in); err != nil {
		t.Fatalf("exact remainder rejected: %v", err)
	}
}

func seedPendingProposal(t *testing.T, store *fakeStore, svc *Service) *domain.Proposal {
	t.Helper()
	p, err := svc.Create(context.Background(), charityAdmin(), validInput())
	if err != nil {
		t.Fatalf("seed proposal: %v", err)
	}
	return p
}

func TestVoteTallyAndRevote(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	voter := domain.User{ID: "donor-1", Role: domain.RoleDonor, Verified: true}
	approvals, rejections, err := svc.Vote(context.Background(), voter, p.ID, true, "looks solid")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if approvals != 1 || rejections != 0 {
		t.Fatalf("tally = %d/%d, want 1/0", approvals, rejections)
	}

	approvals, rejections, err = svc.Vote(context.Background(), voter, p.ID, false, "changed my mind")
	if err != nil {
		t.Fatalf("revote: %v", err)
	}
	if approvals != 0 || rejections != 1 {
		t.Fatalf("tally after revote = %d/%d, want 0/1", approvals, rejections)
	}
}

func TestVoteProjectAdminExcluded(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	if _, _, err := svc.Vote(context.Background(), charityAdmin(), p.ID, true, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestVoteOnDecidedProposal(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)
	store.proposals[p.ID].Status = domain.ProposalApproved

	voter := domain.User{ID: "donor-1", Role: domain.RoleDonor}
	if _, _, err := svc.Vote(context.Background(), voter, p.ID, true, ""); !errors.Is(err, domain.ErrState) {
		t.Fatalf("err = %v, want state error", err)
	}
}

func TestVotesNeverTransitionStatus(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	for i := 0; i < 25; i++ {
		voter := domain.User{ID: fmt.Sprintf("donor-%d", i), Role: domain.RoleDonor}
		if _, _, err := svc.Vote(context.Background(), voter, p.ID, i%2 == 0, ""); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	if got := store.proposals[p.ID].Status; got != domain.ProposalPending {
		t.Fatalf("status after 25 votes = %s, want pending", got)
	}
}

func TestDecideApproveFromPendingAndScored(t *testing.T) {
	for _, start := range []domain.ProposalStatus{domain.ProposalPending, domain.ProposalScored} {
		t.Run(string(start), func(t *testing.T) {
			store := newFakeStore()
			seedProject(store)
			svc := newTestService(store)
			p := seedPendingProposal(t, store, svc)
			store.proposals[p.ID].Status = start

			decided, err := svc.Decide(context.Background(), operator(), p.ID, true, "evidence verified")
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if decided.Status != domain.ProposalApproved {
				t.Fatalf("status = %s, want approved", decided.Status)
			}
			stored := store.proposals[p.ID]
			if stored.DecidedBy == nil || *stored.DecidedBy != "op-1" {
				t.Fatalf("decided_by = %v, want op-1", stored.DecidedBy)
			}
			if stored.DecisionNote == nil || *stored.DecisionNote != "evidence verified" {
				t.Fatalf("decision note = %v", stored.DecisionNote)
			}
		})
	}
}

func TestDecideReject(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	decided, err := svc.Decide(context.Background(), operator(), p.ID, false, "insufficient evidence")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != domain.ProposalRejected {
		t.Fatalf("status = %s, want rejected", decided.Status)
	}
	if !store.proposals[p.ID].Status.Terminal() {
		t.Fatal("rejected proposal should be terminal")
	}
}

func TestDecideUnauthorized(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	for _, actor := range []domain.User{charityAdmin(), {ID: "donor-1", Role: domain.RoleDonor}} {
		if _, err := svc.Decide(context.Background(), actor, p.ID, true, ""); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("actor %s: err = %v, want unauthorized", actor.ID, err)
		}
	}
}

func TestDecideOnSettledProposal(t *testing.T) {
	for _, status := range []domain.ProposalStatus{
		domain.ProposalApproved,
		domain.ProposalRejected,
		domain.ProposalExecuting,
		domain.ProposalExecuted,
		domain.ProposalFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeStore()
			seedProject(store)
			svc := newTestService(store)
			p := seedPendingProposal(t, store, svc)
			store.proposals[p.ID].Status = status

			if _, err := svc.Decide(context.Background(), operator(), p.ID, true, ""); !errors.Is(err, domain.ErrState) {
				t.Fatalf("err = %v, want state error", err)
			}
		})
	}
}

func TestScore(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	if err := svc.Score(context.Background(), p.ID, 87, "receipts consistent with evidence"); err != nil {
		t.Fatalf("score: %v", err)
	}
	stored := store.proposals[p.ID]
	if stored.Status != domain.ProposalScored {
		t.Fatalf("status = %s, want scored", stored.Status)
	}
	if stored.AIScore == nil || *stored.AIScore != 87 {
		t.Fatalf("ai score = %v, want 87", stored.AIScore)
	}
}

func TestScoreOutOfRange(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)

	for _, score := range []int{-1, 101} {
		if err := svc.Score(context.Background(), p.ID, score, ""); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("score %d: err = %v, want validation error", score, err)
		}
	}
}

func TestScoreAfterDecision(t *testing.T) {
	store := newFakeStore()
	seedProject(store)
	svc := newTestService(store)
	p := seedPendingProposal(t, store, svc)
	store.proposals[p.ID].Status = domain.ProposalApproved

	if err := svc.Score(context.Background(), p.ID, 50, ""); !errors.Is(err, domain.ErrState) {
		t.Fatalf("err = %v, want state error", err)
	}
	if got := store.proposals[p.ID].Status; got != domain.ProposalApproved {
		t.Fatalf("status = %s, want approved untouched", got)
	}
}
