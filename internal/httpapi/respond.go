package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quesbackend/ques-core/internal/apperr"
)

// envelope is the error response shape: {success:false,error:{code,message}}.
type envelope struct {
	Success bool           `json:"success"`
	Error   *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeOK(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeAppErr maps an apperr.Kind to its HTTP status and writes the error
// envelope. Unknown/untyped errors become 500 Internal without leaking
// details.
func writeAppErr(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		log.Ctx(r.Context()).Error().Err(err).Msg("unhandled internal error")
		writeOK(w, http.StatusInternalServerError, envelope{Error: &envelopeError{Code: "INTERNAL", Message: "internal error"}})
		return
	}

	status := statusForKind(ae.Kind)
	code := ae.Code
	if code == "" {
		code = string(ae.Kind)
	}
	if ae.Kind == apperr.Internal {
		log.Ctx(r.Context()).Error().Err(err).Msg("internal error")
	}

	if ae.Kind == apperr.RateLimited || ae.Kind == apperr.QuotaDenied {
		if ae.RetryAfter > 0 {
			w.Header().Set("Retry-After", itoa(ae.RetryAfter))
		}
	}

	writeOK(w, status, envelope{Error: &envelopeError{Code: code, Message: ae.Message}})
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.InvalidArgument:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.QuotaDenied, apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.UpstreamTimeout:
		return http.StatusBadGateway
	case apperr.PaymentVerifyFail:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
