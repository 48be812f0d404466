package middleware

import (
	"net/http"
)

// RequireRoles rejects authenticated requests whose token role is not in
// the allow list. Routes still re-check the loaded user row; this guard
// only keeps obviously wrong traffic out of the handler.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allow[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allow[RoleFromContext(r.Context())]; !ok {
				forbidden(w, "role not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":{"code":"authorization_error","message":"` + msg + `"}}`))
}
