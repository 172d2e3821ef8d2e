package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quesbackend/ques-core/internal/apperr"
)

func TestStatusForKind_MatchesErrorTable(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.InvalidArgument:   http.StatusBadRequest,
		apperr.Unauthorized:      http.StatusUnauthorized,
		apperr.Forbidden:         http.StatusForbidden,
		apperr.NotFound:          http.StatusNotFound,
		apperr.Conflict:          http.StatusConflict,
		apperr.QuotaDenied:       http.StatusTooManyRequests,
		apperr.RateLimited:       http.StatusTooManyRequests,
		apperr.UpstreamTimeout:   http.StatusBadGateway,
		apperr.PaymentVerifyFail: http.StatusBadRequest,
		apperr.Internal:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Errorf("statusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestWriteAppErr_WritesEnvelopeWithCodeAndMessage(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	writeAppErr(w, r, apperr.StateInvalid("chat is not active"))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var body envelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatal("expected success=false")
	}
	if body.Error.Code != apperr.CodeStateInvalid {
		t.Fatalf("expected code %q, got %q", apperr.CodeStateInvalid, body.Error.Code)
	}
	if body.Error.Message != "chat is not active" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
}

func TestWriteAppErr_UntypedErrorBecomesInternal(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	writeAppErr(w, r, errors.New("boom: connection refused at 10.0.0.1:5432"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body envelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "internal error" {
		t.Fatalf("expected internal error message not to leak details, got %q", body.Error.Message)
	}
}

func TestWriteAppErr_RateLimitedSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	writeAppErr(w, r, apperr.RateLimitedf(42))

	if got := w.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After=42, got %q", got)
	}
}
