package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Limiter ties the sliding-window counters, the IP blocklist, and the
// suspicious-activity heuristics together into the single admission check
// httpapi's middleware calls per request.
type Limiter struct {
	Windows   *InMemoryWindows
	Blocklist *Blocklist
}

func NewLimiter() *Limiter {
	return &Limiter{
		Windows:   NewInMemoryWindows(),
		Blocklist: NewBlocklist(),
	}
}

// Check runs the global-IP class plus, when class is not ClassGlobal, the
// endpoint-specific class, and rolls any trip into an IP block. key is
// the endpoint-specific rate-limit key (often
// ip+path, or a user id, or a (provider, provider_id) pair); ip is always
// the caller's address, used for blocklist membership and the global class.
func (l *Limiter) Check(ip, key string, class Class, now time.Time) Decision {
	if blocked, _ := l.Blocklist.IsBlocked(ip, now); blocked {
		return Decision{Allowed: false, RetryAfter: 1, ResetEpoch: now.Unix(), Limit: 0, Remaining: 0}
	}

	globalPolicy := Policies[ClassGlobal]
	globalDecision := l.Windows.Allow("global:"+ip, globalPolicy.Limit, globalPolicy.Window, now)
	if !globalDecision.Allowed {
		l.Blocklist.Block(ip, BlockDuration(ClassGlobal), "global_rate_exceeded", now)
		return globalDecision
	}

	if class == ClassGlobal {
		return globalDecision
	}

	policy, ok := Policies[class]
	if !ok {
		return globalDecision
	}

	decision := l.Windows.Allow(string(class)+":"+key, policy.Limit, policy.Window, now)
	if !decision.Allowed {
		l.Blocklist.Block(ip, BlockDuration(class), "endpoint_rate_exceeded:"+string(class), now)
	}
	return decision
}

// TripSuspicious blocks ip for the suspicious-activity duration, fixed
// at 30 minutes.
func (l *Limiter) TripSuspicious(ip string, now time.Time) {
	l.Blocklist.Block(ip, SuspiciousActivityBlock, "suspicious_activity", now)
}

// WriteSecurityHeaders sets the security response headers required on
// every response.
func WriteSecurityHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// WriteRateLimitHeaders sets the three rate-limit headers from d. For a
// route with an endpoint class, Check returns that class's decision, so the
// headers then describe the endpoint class rather than the global class.
func WriteRateLimitHeaders(w http.ResponseWriter, d Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetEpoch, 10))
}
