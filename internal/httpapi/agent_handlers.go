package httpapi

import (
	"net/http"
)

type agentConversationRequest struct {
	Utterance         string  `json:"utterance"`
	ReferencedUserIDs []int64 `json:"referenced_user_ids"`
}

func (s *Server) handleAgentConversation(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req agentConversationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	result, err := s.Agent.Dispatch(r.Context(), user.UserID, req.Utterance, req.ReferencedUserIDs)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, result)
}
