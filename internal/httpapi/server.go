// Package httpapi wires every component into the HTTP surface: a Server
// holding every service dependency, a Routes() method building a chi
// router, and small per-domain handler files.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quesbackend/ques-core/internal/agent"
	"github.com/quesbackend/ques-core/internal/audit"
	"github.com/quesbackend/ques-core/internal/chat"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/identity"
	"github.com/quesbackend/ques-core/internal/membership"
	"github.com/quesbackend/ques-core/internal/payments"
	"github.com/quesbackend/ques-core/internal/quota"
	"github.com/quesbackend/ques-core/internal/ratelimit"
	"github.com/quesbackend/ques-core/internal/swipe"
)

// Server holds every component Routes() wires into handlers.
type Server struct {
	Identity   *identity.Service
	RateLimit  *ratelimit.Limiter
	Quota      *quota.Service
	Membership *membership.Service
	Payments   *payments.Service
	Swipe      *swipe.Service
	Chat       *chat.Service
	Agent      *agent.Dispatcher
	Audit      *audit.Log
	Clock      clock.Clock
	OAuth      *identity.OAuthBinder
}

func NewServer(
	identitySvc *identity.Service,
	rateLimit *ratelimit.Limiter,
	quotaSvc *quota.Service,
	membershipSvc *membership.Service,
	paymentsSvc *payments.Service,
	swipeSvc *swipe.Service,
	chatSvc *chat.Service,
	agentDispatcher *agent.Dispatcher,
	auditLog *audit.Log,
	clk clock.Clock,
	oauth *identity.OAuthBinder,
) *Server {
	return &Server{
		Identity:   identitySvc,
		RateLimit:  rateLimit,
		Quota:      quotaSvc,
		Membership: membershipSvc,
		Payments:   paymentsSvc,
		Swipe:      swipeSvc,
		Chat:       chatSvc,
		Agent:      agentDispatcher,
		Audit:      auditLog,
		Clock:      clk,
		OAuth:      oauth,
	}
}

// Routes builds the chi router, grouping endpoints by the auth/rate-limit
// class they require.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.securityHeaders)
	r.Use(s.suspiciousActivityGuard)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/auth", func(r chi.Router) {
		r.With(s.rateLimit(ratelimit.ClassRegister)).Post("/register", s.handleRegister)
		r.With(s.rateLimit(ratelimit.ClassLogin)).Post("/login", s.handleLogin)
		r.With(s.rateLimit(ratelimit.ClassSendCode)).Post("/send-code", s.handleSendCode)
		r.Post("/verify", s.handleVerifyCode)
		r.With(s.rateLimit(ratelimit.ClassLogin)).Post("/oauth", s.handleOAuthLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(s.requireAuth).Post("/logout", s.handleLogout)
	})

	r.With(s.requireAuth).Get("/me", s.handleMe)

	r.With(s.requireAuth, s.rateLimit(ratelimit.ClassSwipeFree)).Post("/swipes", s.handleSwipe)

	r.Route("/chats", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/greeting", s.handleSendGreeting)
		r.Post("/greeting/respond", s.handleRespondGreeting)
		r.Post("/message", s.handleSendMessage)
		r.Get("/", s.handleListChats)
		r.Get("/pending", s.handleListPending)
		r.Get("/{chatID}", s.handleGetMessages)
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(s.requireAuth).Post("/orders", s.handleCreateOrder)
		r.Post("/webhooks/{method}", s.handlePaymentWebhook)
	})

	r.With(s.requireAuth).Post("/agent/conversation", s.handleAgentConversation)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
}
