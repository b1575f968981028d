package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "kitties/pkg/platform/middleware/request"
)

// HeaderAdminToken carries the operator secret for admin routes.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken admits requests whose X-Admin-Token matches expectedToken.
// An empty expectedToken admits nobody.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
