package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/proposal"
	"server/internal/sqlinline"
)

type proposalCreateRequest struct {
	ProjectID      string `json:"project_id" validate:"required,uuid"`
	MilestoneID    string `json:"milestone_id" validate:"required,uuid"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	EvidenceRef    string `json:"evidence_ref" validate:"required"`
	TransferType   string `json:"transfer_type" validate:"required,oneof=crypto bank"`
	DestinationRef string `json:"destination_ref" validate:"required"`
}

func (a *App) ProposalsCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	var req proposalCreateRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	p, err := a.Proposals.Create(r.Context(), actor, proposal.CreateInput{
		ProjectID:      req.ProjectID,
		MilestoneID:    req.MilestoneID,
		Amount:         req.Amount,
		EvidenceRef:    req.EvidenceRef,
		TransferType:   domain.TransferType(req.TransferType),
		DestinationRef: req.DestinationRef,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"id":           p.ID,
		"project_id":   p.ProjectID,
		"milestone_id": p.MilestoneID,
		"amount":       p.Amount,
		"status":       p.Status,
		"created_at":   p.CreatedAt,
	})
}

func (a *App) ProposalsGet(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposal_id")
	d, err := scanProposalDetail(a.SQL.QueryRow(r.Context(), sqlinline.QGetProposalDetail, proposalID))
	if err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "proposal not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load proposal")
		return
	}
	resp := a.proposalDetailJSON(middleware.LocaleFromContext(r.Context()), d)
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListVotes, proposalID)
	if err == nil {
		defer rows.Close()
		var votes []map[string]any
		for rows.Next() {
			var v domain.Vote
			if err := rows.Scan(&v.ProposalID, &v.VoterID, &v.Approve, &v.Comment, &v.CreatedAt); err != nil {
				continue
			}
			votes = append(votes, map[string]any{
				"voter_id":   v.VoterID,
				"approve":    v.Approve,
				"comment":    v.Comment,
				"created_at": v.CreatedAt,
			})
		}
		resp["votes"] = votes
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) ProposalsList(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "validation_error", "project_id required")
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && !knownProposalStatus(status) {
		a.error(w, http.StatusBadRequest, "validation_error", "unknown status filter")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListProposalsByProject, projectID, status, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load proposals")
		return
	}
	defer rows.Close()
	locale := middleware.LocaleFromContext(r.Context())
	var items []map[string]any
	for rows.Next() {
		d, err := scanProposalDetail(rows)
		if err != nil {
			continue
		}
		items = append(items, a.proposalDetailJSON(locale, d))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

type voteRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

func (a *App) ProposalsVote(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	proposalID := chi.URLParam(r, "proposal_id")
	var req voteRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	approvals, rejections, err := a.Proposals.Vote(r.Context(), actor, proposalID, req.Approve, req.Comment)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"proposal_id": proposalID,
		"approvals":   approvals,
		"rejections":  rejections,
	})
}

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (a *App) ProposalsDecide(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	proposalID := chi.URLParam(r, "proposal_id")
	var req decisionRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	p, err := a.Proposals.Decide(r.Context(), actor, proposalID, req.Approve, req.Note)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":         p.ID,
		"status":     p.Status,
		"decided_by": p.DecidedBy,
	})
}

func (a *App) ProposalsExecute(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	proposalID := chi.URLParam(r, "proposal_id")
	p, err := a.Transfers.Execute(r.Context(), actor, proposalID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":          p.ID,
		"status":      p.Status,
		"tx_ref":      p.TxRef,
		"executed_at": p.ExecutedAt,
	})
}

func knownProposalStatus(s string) bool {
	switch domain.ProposalStatus(s) {
	case domain.ProposalPending, domain.ProposalScored, domain.ProposalApproved,
		domain.ProposalRejected, domain.ProposalExecuting, domain.ProposalExecuted, domain.ProposalFailed:
		return true
	}
	return false
}

func scanProposalDetail(row pgx.Row) (*domain.ProposalDetail, error) {
	var d domain.ProposalDetail
	err := row.Scan(&d.ID, &d.ProjectID, &d.MilestoneID, &d.Amount, &d.EvidenceRef, &d.TransferType, &d.DestinationRef, &d.Status,
		&d.AIScore, &d.AINotes, &d.AIStartedAt, &d.Approvals, &d.Rejections, &d.RequiredApprovals,
		&d.DecidedBy, &d.DecisionNote, &d.FailureReason, &d.TxRef, &d.CreatedAt, &d.UpdatedAt, &d.ExecutedAt,
		&d.TransferStatus, &d.TransferRef)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (a *App) proposalDetailJSON(locale string, d *domain.ProposalDetail) map[string]any {
	return map[string]any{
		"id":                 d.ID,
		"project_id":         d.ProjectID,
		"milestone_id":       d.MilestoneID,
		"amount":             d.Amount,
		"amount_display":     a.displayAmount(locale, d.Amount),
		"evidence_ref":       d.EvidenceRef,
		"transfer_type":      d.TransferType,
		"destination_ref":    d.DestinationRef,
		"status":             d.Status,
		"ai_score":           d.AIScore,
		"ai_notes":           d.AINotes,
		"approvals":          d.Approvals,
		"rejections":         d.Rejections,
		"required_approvals": d.RequiredApprovals,
		"decided_by":         d.DecidedBy,
		"decision_note":      d.DecisionNote,
		"failure_reason":     d.FailureReason,
		"tx_ref":             d.TxRef,
		"transfer_status":    d.TransferStatus,
		"transfer_ref":       d.TransferRef,
		"created_at":         d.CreatedAt,
		"updated_at":         d.UpdatedAt,
		"executed_at":        d.ExecutedAt,
	}
}
