// Package ratelimit implements component F: sliding-window counters per
// (key, endpoint-class), the IP blocklist, and the abuse heuristics. The
// in-memory implementation is grounded directly on a prior token-bucket
// rate limiter's per-key mutex-guarded map and background cleanup
// goroutine, but the admission algorithm itself is a lazy-truncating
// timestamp sequence (admitted iff the number of timestamps within
// [now-window, now] is strictly less than the limit), not a token
// bucket - a smoother token-bucket shape suits steady high-frequency
// traffic better than the bursty request pattern here.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetEpoch int64 // unix seconds when the oldest counted timestamp falls out of the window
	RetryAfter int   // seconds, only meaningful when !Allowed
}

// InMemoryWindows is a process-local sliding-window counter store, the
// memory-resident option for single-process deployments. It compacts old
// timestamps on every admission check and via a periodic sweeper.
type InMemoryWindows struct {
	mu   sync.Mutex
	logs map[string][]time.Time
}

func NewInMemoryWindows() *InMemoryWindows {
	w := &InMemoryWindows{logs: make(map[string][]time.Time)}
	go w.sweepLoop()
	return w
}

// Allow admits the request iff fewer than `limit` timestamps for key fall
// within [now-window, now]; on admission it records now as a new timestamp.
func (w *InMemoryWindows) Allow(key string, limit int, window time.Duration, now time.Time) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-window)
	kept := compact(w.logs[key], cutoff)

	resetEpoch := now.Add(window).Unix()
	if len(kept) > 0 {
		resetEpoch = kept[0].Add(window).Unix()
	}

	if len(kept) >= limit {
		retryAfter := int(kept[0].Add(window).Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.logs[key] = kept
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetEpoch: resetEpoch, RetryAfter: retryAfter}
	}

	kept = append(kept, now)
	w.logs[key] = kept
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(kept), ResetEpoch: resetEpoch}
}

func compact(timestamps []time.Time, cutoff time.Time) []time.Time {
	out := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}

// sweepLoop periodically drops timestamps older than the longest policy
// window (at least an hour), and keys left with none, capping memory use
// over a long-running process.
func (w *InMemoryWindows) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		w.mu.Lock()
		longest := time.Hour
		for _, p := range Policies {
			if p.Window > longest {
				longest = p.Window
			}
		}
		cutoff := now.Add(-longest)
		for key, timestamps := range w.logs {
			kept := compact(timestamps, cutoff)
			if len(kept) == 0 {
				delete(w.logs, key)
			} else {
				w.logs[key] = kept
			}
		}
		w.mu.Unlock()
	}
}
