package handlers

import (
	"net/http"

	"server/internal/sqlinline"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QStatsSummary)
	var activePools, distributedPools, proposalsOpen, proposalsExecuted, proposalsFailed int64
	var donatedTotal, donatedLast24, allocatedTotal int64
	if err := row.Scan(&activePools, &distributedPools, &donatedTotal, &donatedLast24, &allocatedTotal,
		&proposalsOpen, &proposalsExecuted, &proposalsFailed); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"active_pools":       activePools,
		"distributed_pools":  distributedPools,
		"donated_total":      donatedTotal,
		"donated_last_24h":   donatedLast24,
		"allocated_total":    allocatedTotal,
		"proposals_open":     proposalsOpen,
		"proposals_executed": proposalsExecuted,
		"proposals_failed":   proposalsFailed,
	})
}
