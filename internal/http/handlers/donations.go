package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/sqlinline"
)

type donationRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	donor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	poolID := chi.URLParam(r, "pool_id")
	var req donationRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	var country *string
	if c := middleware.CountryFromContext(r.Context()); c != "" {
		country = &c
	}
	d, err := a.Ledger.Record(r.Context(), donor, poolID, req.ProjectID, req.Amount, donor.EligibleDonor(), country)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"id":            d.ID,
		"pool_id":       d.PoolID,
		"project_id":    d.ProjectID,
		"amount":        d.Amount,
		"eligible":      d.Eligible,
		"donor_country": d.DonorCountry,
		"created_at":    d.CreatedAt,
	})
}

func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "pool_id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListPoolDonations, poolID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load donations")
		return
	}
	defer rows.Close()
	var items []map[string]any
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.PoolID, &d.ProjectID, &d.DonorID, &d.Amount, &d.Eligible, &d.DonorCountry, &d.CreatedAt); err != nil {
			continue
		}
		items = append(items, map[string]any{
			"id":            d.ID,
			"project_id":    d.ProjectID,
			"donor_id":      d.DonorID,
			"amount":        d.Amount,
			"eligible":      d.Eligible,
			"donor_country": d.DonorCountry,
			"created_at":    d.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
