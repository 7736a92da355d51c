package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kartly/storefront-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

const ctxRequestID contextKey = "request_id"

// Upstream ids are echoed into logs and headers, so only short opaque tokens
// are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID assigns every request an id, echoes it in X-Request-Id, and tags
// the request logger with it. A well-formed inbound id is kept so checkout
// calls can be traced across the storefront and the API.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := context.WithValue(r.Context(), ctxRequestID, reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the id RequestID assigned, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

// OrderScope tags the request logger with the caller and the {orderId} URL
// parameter. It must sit on the order route itself (chi's With) so the
// parameter is already resolved.
func OrderScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logg.WithUserID(ctx, userID)
			}
			if orderID, err := uuid.Parse(chi.URLParam(r, "orderId")); err == nil {
				ctx = logg.WithOrderID(ctx, orderID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
