package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/ratelimit"
)

func newTestServer(now time.Time) *Server {
	return &Server{
		RateLimit: ratelimit.NewLimiter(),
		Clock:     clock.NewFrozen(now),
	}
}

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestSecurityHeaders_SetOnEveryResponse(t *testing.T) {
	s := newTestServer(time.Now())
	handler := s.securityHeaders(http.HandlerFunc(ok))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "X-XSS-Protection", "Strict-Transport-Security", "Referrer-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("expected header %s to be set", h)
		}
	}
}

func TestSuspiciousActivityGuard_BlocksKnownScannerUserAgent(t *testing.T) {
	s := newTestServer(time.Now())
	handler := s.suspiciousActivityGuard(http.HandlerFunc(ok))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "sqlmap/1.0")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for scanner UA, got %d", w.Code)
	}
}

func TestSuspiciousActivityGuard_TrippedIPStaysBlockedOnSubsequentRequest(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	s := newTestServer(now)
	handler := s.suspiciousActivityGuard(http.HandlerFunc(ok))

	trip := httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil)
	trip.RemoteAddr = "5.5.5.5:1234"
	handler.ServeHTTP(httptest.NewRecorder(), trip)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.RemoteAddr = "5.5.5.5:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, again)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the tripped IP to remain blocked, got %d", w.Code)
	}
}

func TestSuspiciousActivityGuard_AllowsOrdinaryRequest(t *testing.T) {
	s := newTestServer(time.Now())
	handler := s.suspiciousActivityGuard(http.HandlerFunc(ok))

	r := httptest.NewRequest(http.MethodGet, "/chats", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected ordinary request through, got %d", w.Code)
	}
}

func TestRateLimit_DeniesAfterClassLimitExceeded(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	s := newTestServer(now)
	handler := s.rateLimit(ratelimit.ClassSendCodeByID)(http.HandlerFunc(ok))

	r := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/auth/send-code", nil)
		req.RemoteAddr = "7.7.7.7:1"
		return req
	}

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, r())
	if w1.Code != http.StatusOK {
		t.Fatalf("expected first send-code request admitted, got %d", w1.Code)
	}

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, r())
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second send-code request within the window denied, got %d", w2.Code)
	}
	if w2.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected rate-limit headers on denial")
	}
}

func TestBearerToken_ExtractsFromAuthorizationHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	if got := bearerToken(r); got != "abc.def.ghi" {
		t.Fatalf("expected token extracted, got %q", got)
	}
}

func TestBearerToken_EmptyWithoutHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := bearerToken(r); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
