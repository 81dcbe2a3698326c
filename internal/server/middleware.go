package server

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/routing"
	"github.com/hexacore/hexacore/pkg/ratelimit"
	"github.com/hexacore/hexacore/pkg/telemetry"
)

// telemetryMiddleware logs one line per request. Identity fields come
// from the sanitized telemetry helpers; nothing else about the caller
// is recorded.
func telemetryMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		}
		if c, ok := currentClaims(r.Context()); ok {
			fields = append(fields, telemetry.Identity(c.UserID, c.Role, c.OrganizationID)...)
		}
		log.Info("request", fields...)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// identityMiddleware attaches claims when the provider finds them. A
// request without identity still proceeds; the gateway turns that into
// a MissingAuthorization error where identity is required.
func identityMiddleware(provider identityProvider, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := provider.Identify(r); ok {
			r = r.WithContext(withClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware keys on the identity when present, falling back
// to the client address for anonymous traffic.
func rateLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if v := limiter.Allow(key); !v.Allowed {
			w.Header().Set("Retry-After", v.RetryAfter.Round(time.Second).String())
			routing.WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if c, ok := currentClaims(r.Context()); ok && c.UserID != "" {
		return c.OrganizationID + "|" + c.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
