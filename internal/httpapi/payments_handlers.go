package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/payments"
)

type createOrderRequest struct {
	Days     int    `json:"days" validate:"required,min=1"`
	Provider string `json:"provider" validate:"required,oneof=wechat alipay bank"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req createOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	order, err := s.Payments.CreateOrder(r.Context(), user.UserID, req.Days, payments.Provider(req.Provider))
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, order)
}

// handlePaymentWebhook dispatches a provider's notification to
// Payments.ConfirmPayment. A verification failure returns 400 to the
// provider with no automatic retry from this side.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeAppErr(w, r, apperr.New(apperr.InvalidArgument, "failed to read webhook body"))
		return
	}

	sig := r.Header.Get("X-Signature")
	if sig == "" {
		sig = r.Header.Get("Stripe-Signature")
	}

	if err := s.Payments.ConfirmPayment(r.Context(), payments.Provider(method), body, sig); err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]bool{"ok": true})
}
