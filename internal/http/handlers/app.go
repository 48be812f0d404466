package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
	"server/internal/matching"
	"server/internal/middleware"
	"server/internal/pool"
	"server/internal/proposal"
	"server/internal/sqlinline"
	"server/internal/transfer"
)

// App is the handler container: component services drive the write paths,
// SQL backs the read projections directly.
type App struct {
	SQL       infra.SQLExecutor
	Logger    infra.Logger
	Config    *infra.Config
	Pools     *pool.Service
	Ledger    *ledger.Service
	Engine    *matching.Engine
	Proposals *proposal.Service
	Transfers *transfer.Executor
	Validate  *validator.Validate
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": errCode, "message": msg}})
}

var errorStatus = map[string]int{
	"not_found":              http.StatusNotFound,
	"validation_error":       http.StatusBadRequest,
	"authorization_error":    http.StatusForbidden,
	"external_service_error": http.StatusBadGateway,
	"integrity_error":        http.StatusConflict,
	"state_error":            http.StatusConflict,
}

// domainError translates a service error into the wire taxonomy.
func (a *App) domainError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status, ok := errorStatus[code]
	if !ok {
		a.Logger.Error().Err(err).Msg("unclassified error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.error(w, status, code, err.Error())
}

func (a *App) unauthorized(w http.ResponseWriter) {
	a.error(w, http.StatusUnauthorized, "authorization_error", "missing user context")
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// currentUser loads the caller's mirror row. The row, not the token claims,
// is the authorization source of truth.
func (a *App) currentUser(r *http.Request) (domain.User, bool) {
	id := a.currentUserID(r)
	if id == "" {
		return domain.User{}, false
	}
	var u domain.User
	err := a.SQL.QueryRow(r.Context(), sqlinline.QGetUser, id).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, false
	}
	return u, true
}

// decode parses and field-validates a JSON request body.
func (a *App) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid payload: %w", domain.ErrValidation)
	}
	if err := a.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("field %s fails %q: %w", f.Field(), f.Tag(), domain.ErrValidation)
		}
		return fmt.Errorf("invalid payload: %w", domain.ErrValidation)
	}
	return nil
}
