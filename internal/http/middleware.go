package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/events"
)

const (
	HeaderSessionID     = "X-Session-Id"
	HeaderCorrelationID = "X-Correlation-Id"
)

type ctxKey string

const ctxSessionID ctxKey = "session_id"

// Session reads the cart session from X-Session-Id. A new one is issued when
// the header is missing and echoed back so the client can keep it.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(HeaderSessionID))
		if sid == "" {
			sid = uuid.NewString()
		}
		w.Header().Set(HeaderSessionID, sid)

		ctx := context.WithValue(r.Context(), ctxSessionID, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// CorrelationID carries X-Correlation-Id into published events.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)

		ctx := events.ContextWithCorrelationID(r.Context(), cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowOrigins) == 1 && allowOrigins[0] == "*"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			writeCORSHeaders(w, origin, allowOrigins, allowAll)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCORSHeaders(w http.ResponseWriter, origin string, allowOrigins []string, allowAll bool) {
	if origin == "" {
		return
	}
	if !allowAll && !originAllowed(origin, allowOrigins) {
		return
	}

	// Reflect the origin rather than "*" so credentials keep working.
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Correlation-Id, X-Session-Id, Idempotency-Key")
	w.Header().Set("Access-Control-Expose-Headers", "X-Session-Id, X-Correlation-Id")
}

func originAllowed(origin string, allow []string) bool {
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(origin)) {
			return true
		}
	}
	return false
}

// RequireAdmin guards the product write routes. With no verifier configured
// the routes are switched off.
func RequireAdmin(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				writeError(w, http.StatusServiceUnavailable, "ADMIN_DISABLED", "Product administration is not enabled", nil)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
				return
			}

			if _, err := verifier.ValidateAdmin(strings.TrimSpace(token)); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
					return
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
