package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/audit"
	"github.com/quesbackend/ques-core/internal/identity"
	"github.com/quesbackend/ques-core/internal/ratelimit"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlationId"
	currentUserKey   contextKey = "currentUser"
)

// CorrelationMiddleware reads or mints an X-Correlation-ID, echoes it on
// the response, and threads it into both the request context and the
// logger.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

func currentUser(ctx context.Context) (*identity.User, bool) {
	u, ok := ctx.Value(currentUserKey).(*identity.User)
	return u, ok
}

// securityHeaders sets the required security headers on every response.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ratelimit.WriteSecurityHeaders(w)
		next.ServeHTTP(w, r)
	})
}

// suspiciousActivityGuard rejects and trips a 30-minute block for any
// request whose path+query or user-agent matches the abuse heuristics,
// before any handler or rate-limit check runs.
func (s *Server) suspiciousActivityGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if blocked, _ := s.RateLimit.Blocklist.IsBlocked(ip, s.now()); blocked {
			writeAppErr(w, r, apperr.RateLimitedf(60))
			return
		}
		if ratelimit.IsSuspicious(r.URL.RequestURI(), r.UserAgent()) {
			s.RateLimit.TripSuspicious(ip, s.now())
			if s.Audit != nil {
				s.Audit.Record(r.Context(), audit.IPBlocked, nil, ip, r.URL.RequestURI())
			}
			writeAppErr(w, r, apperr.RateLimitedf(1800))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit enforces the named endpoint class in addition to the global
// class Check always applies, writing the rate-limit headers on every
// response regardless of outcome.
func (s *Server) rateLimit(class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			key := ip + ":" + r.URL.Path
			decision := s.RateLimit.Check(ip, key, class, s.now())
			ratelimit.WriteRateLimitHeaders(w, decision)
			if !decision.Allowed {
				writeAppErr(w, r, apperr.RateLimitedf(decision.RetryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth resolves the bearer access token, rejects if invalid, and
// touches the caller's session for presence tracking.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAppErr(w, r, apperr.New(apperr.Unauthorized, "missing bearer token"))
			return
		}

		user, err := s.Identity.CurrentUser(r.Context(), token)
		if err != nil {
			writeAppErr(w, r, err)
			return
		}

		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = GetCorrelationID(r.Context())
		}
		if err := s.Identity.TouchSession(r.Context(), user.UserID, sessionID, r.UserAgent(), clientIP(r)); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("failed to touch session")
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) now() time.Time {
	return s.Clock.Now()
}
