package handlers

import (
	"context"
	"net/http"
	"time"

	"server/internal/sqlinline"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	var one int
	if err := a.SQL.QueryRow(ctx, sqlinline.QPing).Scan(&one); err != nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
