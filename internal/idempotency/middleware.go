package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

// Middleware replays the first response recorded for a key. keyFunc builds the
// storage key from the request and the client key; requests without the header
// pass straight through. Server errors are not stored so the client can retry.
func Middleware(store Store, ttl time.Duration, keyFunc func(r *http.Request, clientKey string) string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFunc(r, clientKey)
			ctx := r.Context()

			if stored, ok, err := store.Get(ctx, key); err != nil {
				logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			} else if ok {
				replay(w, stored)
				return
			}

			locked, err := store.Lock(ctx, key)
			if err != nil {
				// Store unavailable: serve without dedupe.
				logger.Warn("idempotency lock failed", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !locked {
				writeConflict(w)
				return
			}
			defer func() {
				if err := store.Unlock(context.WithoutCancel(ctx), key); err != nil {
					logger.Warn("idempotency unlock failed", zap.String("key", key), zap.Error(err))
				}
			}()

			// The first request may have finished between our lookup and the lock.
			if stored, ok, err := store.Get(ctx, key); err != nil {
				logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			} else if ok {
				replay(w, stored)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				return
			}
			resp := Response{Status: rec.status, ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()}
			if err := store.Save(context.WithoutCancel(ctx), key, resp, ttl); err != nil {
				logger.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func replay(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeConflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "IDEMPOTENCY_CONFLICT",
			"message": "A request with this Idempotency-Key is already in progress",
		},
	})
}

// recorder tees the response so it can be stored after the handler returns.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
