package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
	"server/pkg/zip"
)

// PoolsReport streams a zip with the pool summary plus full donation and
// allocation listings, for sponsor audits after a distribution.
func (a *App) PoolsReport(w http.ResponseWriter, r *http.Request) {
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

	summary := map[string]any{
		"id":                p.ID,
		"name":              p.Name,
		"sponsor_id":        p.SponsorID,
		"status":            p.StatusAt(time.Now().UTC()),
		"total_funds":       p.TotalFunds,
		"start_time":        p.StartTime,
		"end_time":          p.EndTime,
		"ended_early":       p.EndedEarly,
		"distributed":       p.Distributed,
		"project_count":     projectCount,
		"contributor_count": contributorCount,
		"raw_total":         rawTotal,
		"eligible_total":    eligibleTotal,
		"allocated_total":   allocatedTotal,
		"generated_at":      time.Now().UTC(),
	}
	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build report")
		return
	}

	donationsCSV, err := a.donationsCSV(r, poolID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build report")
		return
	}
	allocationsCSV, err := a.allocationsCSV(r, poolID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build report")
		return
	}

	archive := zip.Archive([]zip.Entry{
		{Name: "summary.json", Data: summaryJSON},
		{Name: "donations.csv", Data: donationsCSV},
		{Name: "allocations.csv", Data: allocationsCSV},
	})
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=pool-%s-report.zip", poolID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) donationsCSV(r *http.Request, poolID string) ([]byte, error) {
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListAllPoolDonations, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"id", "project_id", "donor_id", "amount", "eligible", "donor_country", "created_at"})
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.PoolID, &d.ProjectID, &d.DonorID, &d.Amount, &d.Eligible, &d.DonorCountry, &d.CreatedAt); err != nil {
			continue
		}
		country := ""
		if d.DonorCountry != nil {
			country = *d.DonorCountry
		}
		_ = cw.Write([]string{
			d.ID,
			d.ProjectID,
			d.DonorID,
			strconv.FormatInt(d.Amount, 10),
			strconv.FormatBool(d.Eligible),
			country,
			d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func (a *App) allocationsCSV(r *http.Request, poolID string) ([]byte, error) {
	rows, err := a.SQL.Query(r.Context(), sqlinline.QListAllocations, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"project_id", "amount", "created_at"})
	for rows.Next() {
		var al domain.Allocation
		if err := rows.Scan(&al.PoolID, &al.ProjectID, &al.Amount, &al.CreatedAt); err != nil {
			continue
		}
		_ = cw.Write([]string{
			al.ProjectID,
			strconv.FormatInt(al.Amount, 10),
			al.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}
