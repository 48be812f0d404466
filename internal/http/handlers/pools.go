package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
)

type poolCreateRequest struct {
	Name       string    `json:"name" validate:"required"`
	TotalFunds int64     `json:"total_funds" validate:"min=0"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required"`
}

func (a *App) PoolsCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	var req poolCreateRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	p, err := a.Pools.Create(r.Context(), actor, req.Name, req.TotalFunds, req.StartTime, req.EndTime)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"sponsor_id":  p.SponsorID,
		"total_funds": p.TotalFunds,
		"start_time":  p.StartTime,
		"end_time":    p.EndTime,
		"created_at":  p.CreatedAt,
	})
}

type poolFundRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (a *App) PoolsFund(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	poolID := chi.URLParam(r, "pool_id")
	var req poolFundRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	total, err := a.Pools.Fund(r.Context(), actor, poolID, req.Amount)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"pool_id": poolID, "total_funds": total})
}

type poolRegisterRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
}

func (a *App) PoolsRegisterProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	poolID := chi.URLParam(r, "pool_id")
	var req poolRegisterRequest
	if err := a.decode(r, &req); err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Pools.RegisterProject(r.Context(), actor, poolID, req.ProjectID); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) PoolsEnd(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	poolID := chi.URLParam(r, "pool_id")
	if err := a.Pools.EndEarly(r.Context(), actor, poolID); err != nil {
		a.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) PoolsDistribute(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.currentUser(r)
	if !ok {
		a.unauthorized(w)
		return
	}
	poolID := chi.URLParam(r, "pool_id")
	res, err := a.Engine.Distribute(r.Context(), actor, poolID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"pool_id":         res.PoolID,
		"allocations":     res.Allocations,
		"remainder":       res.Remainder,
		"projects_funded": res.Funded,
	})
}

func (a *App) PoolsGet(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "pool_id")
	row := a.SQL.QueryRow(r.Context(), sqlinline.QPoolSummary, poolID)
	var p domain.Pool
	var projectCount, contributorCount int
	var rawTotal, eligibleTotal, allocatedTotal int64
	if err := row.Scan(&p.ID, &p.Name, &p.SponsorID, &p.TotalFunds, &p.StartTime, &p.EndTime, &p.EndedEarly, &p.Distributed,
		&projectCount, &contributorCount, &rawTotal, &eligibleTotal, &allocatedTotal); err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "pool not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load pool")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	resp := map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"sponsor_id":          p.SponsorID,
		"status":              p.StatusAt(time.Now().UTC()),
		"total_funds":         p.TotalFunds,
		"total_funds_display": a.displayAmount(locale, p.TotalFunds),
		"start_time":          p.StartTime,
		"end_time":            p.EndTime,
		"project_count":       projectCount,
		"contributor_count":   contributorCount,
		"raw_total":           rawTotal,
		"eligible_total":      eligibleTotal,
		"distributed":         p.Distributed,
	}
	if p.Distributed {
		resp["unallocated"] = p.TotalFunds - allocatedTotal
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QPoolCountryBreakdown, poolID)
	if err == nil {
		defer rows.Close()
		var countries []map[string]any
		for rows.Next() {
			var c domain.CountryDonations
			if err := rows.Scan(&c.Country, &c.Count, &c.Total); err != nil {
				continue
			}
			countries = append(countries, map[string]any{
				"country":   c.Country,
				"donations": c.Count,
				"total":     c.Total,
			})
		}
		resp["countries"] = countries
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) PoolsAllocations(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "pool_id")
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListAllocations, poolID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load allocations")
		return
	}
	defer rows.Close()
	locale := middleware.LocaleFromContext(r.Context())
	var items []map[string]any
	for rows.Next() {
		var al domain.Allocation
		if err := rows.Scan(&al.PoolID, &al.ProjectID, &al.Amount, &al.CreatedAt); err != nil {
			continue
		}
		items = append(items, map[string]any{
			"project_id":     al.ProjectID,
			"amount":         al.Amount,
			"amount_display": a.displayAmount(locale, al.Amount),
			"created_at":     al.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
