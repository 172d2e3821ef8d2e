package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/quota"
)

type sendGreetingRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

type respondGreetingRequest struct {
	ChatID string `json:"chat_id" validate:"required,uuid"`
	Accept bool   `json:"accept"`
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id" validate:"required,uuid"`
	Body   string `json:"body" validate:"required"`
}

func (s *Server) handleSendGreeting(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req sendGreetingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	chat, err := s.Chat.SendGreeting(r.Context(), user.UserID, req.RecipientID, req.Body)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, chat)
}

func (s *Server) handleRespondGreeting(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req respondGreetingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		writeAppErr(w, r, apperr.New(apperr.InvalidArgument, "invalid chat_id"))
		return
	}

	chat, err := s.Chat.RespondGreeting(r.Context(), user.UserID, chatID, req.Accept)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, chat)
}

// handleSendMessage consumes the message quota before appending, mirroring
// handleSwipe's "consume before acting" ordering.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req sendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		writeAppErr(w, r, apperr.New(apperr.InvalidArgument, "invalid chat_id"))
		return
	}

	if _, err := s.Quota.Consume(r.Context(), user.UserID, quota.ActionMessage, 1); err != nil {
		writeAppErr(w, r, err)
		return
	}

	msg, err := s.Chat.SendMessage(r.Context(), user.UserID, chatID, req.Body)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, msg)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	chats, err := s.Chat.ListChats(r.Context(), user.UserID)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, chats)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	chats, err := s.Chat.ListPending(r.Context(), user.UserID)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, chats)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		writeAppErr(w, r, apperr.New(apperr.InvalidArgument, "invalid chat id"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	msgs, next, err := s.Chat.GetMessages(r.Context(), user.UserID, chatID, cursor, limit)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"messages": msgs, "next_cursor": next})
}
