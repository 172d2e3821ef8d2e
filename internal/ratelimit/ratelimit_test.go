package ratelimit

import (
	"testing"
	"time"
)

func TestInMemoryWindows_AdmitsUpToLimit(t *testing.T) {
	w := NewInMemoryWindows()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		d := w.Allow("k", 3, time.Minute, now)
		if !d.Allowed {
			t.Fatalf("expected admission %d to be allowed", i)
		}
	}

	d := w.Allow("k", 3, time.Minute, now)
	if d.Allowed {
		t.Fatal("expected 4th admission within the window to be denied")
	}
	if d.RetryAfter < 1 {
		t.Fatalf("expected positive retry-after, got %d", d.RetryAfter)
	}
}

func TestInMemoryWindows_AdmitsAgainAfterWindowElapses(t *testing.T) {
	w := NewInMemoryWindows()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	w.Allow("k", 1, time.Minute, now)
	if w.Allow("k", 1, time.Minute, now).Allowed {
		t.Fatal("expected second admission in same instant to be denied")
	}

	later := now.Add(time.Minute + time.Second)
	if !w.Allow("k", 1, time.Minute, later).Allowed {
		t.Fatal("expected admission after window elapses to be allowed")
	}
}

func TestInMemoryWindows_KeysAreIndependent(t *testing.T) {
	w := NewInMemoryWindows()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	w.Allow("a", 1, time.Minute, now)
	if !w.Allow("b", 1, time.Minute, now).Allowed {
		t.Fatal("expected a different key to have its own counter")
	}
}

func TestBlocklist_BlockAndExpire(t *testing.T) {
	b := NewBlocklist()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	b.Block("1.2.3.4", 10*time.Minute, "test", now)

	blocked, reason := b.IsBlocked("1.2.3.4", now.Add(time.Minute))
	if !blocked || reason != "test" {
		t.Fatalf("expected ip to be blocked with reason test, got blocked=%v reason=%q", blocked, reason)
	}

	blocked, _ = b.IsBlocked("1.2.3.4", now.Add(11*time.Minute))
	if blocked {
		t.Fatal("expected block to have expired")
	}
}

func TestBlocklist_DoesNotShortenExistingBlock(t *testing.T) {
	b := NewBlocklist()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	b.Block("1.2.3.4", 60*time.Minute, "global", now)
	b.Block("1.2.3.4", 15*time.Minute, "endpoint", now)

	blocked, reason := b.IsBlocked("1.2.3.4", now.Add(30*time.Minute))
	if !blocked || reason != "global" {
		t.Fatalf("expected the longer block to win, got blocked=%v reason=%q", blocked, reason)
	}
}

func TestIsSuspicious_AttackSubstring(t *testing.T) {
	if !IsSuspicious("/api/../../etc/passwd", "Mozilla/5.0") {
		t.Fatal("expected path traversal to trip the heuristic")
	}
}

func TestIsSuspicious_ScannerUserAgent(t *testing.T) {
	if !IsSuspicious("/api/users", "sqlmap/1.6") {
		t.Fatal("expected known scanner user-agent to trip the heuristic")
	}
}

func TestIsSuspicious_OverlongURL(t *testing.T) {
	long := make([]byte, 2049)
	for i := range long {
		long[i] = 'a'
	}
	if !IsSuspicious("/"+string(long), "Mozilla/5.0") {
		t.Fatal("expected overlong URL to trip the heuristic")
	}
}

func TestIsSuspicious_NormalRequestPasses(t *testing.T) {
	if IsSuspicious("/api/v1/chats?cursor=abc", "Mozilla/5.0 (Macintosh)") {
		t.Fatal("expected a normal request not to trip the heuristic")
	}
}

func TestLimiter_TripsBlockOnEndpointLimit(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < Policies[ClassLogin].Limit; i++ {
		d := l.Check("9.9.9.9", "9.9.9.9:/login", ClassLogin, now)
		if !d.Allowed {
			t.Fatalf("expected admission %d under the login limit to be allowed", i)
		}
	}

	d := l.Check("9.9.9.9", "9.9.9.9:/login", ClassLogin, now)
	if d.Allowed {
		t.Fatal("expected login limit to be exceeded")
	}

	blocked, _ := l.Blocklist.IsBlocked("9.9.9.9", now)
	if !blocked {
		t.Fatal("expected exceeding the login limit to block the IP")
	}
}
