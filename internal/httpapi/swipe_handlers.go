package httpapi

import (
	"net/http"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/quota"
	"github.com/quesbackend/ques-core/internal/swipe"
)

type swipeRequest struct {
	TargetID  int64  `json:"target_id" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=like dislike super_like"`
}

// handleSwipe consumes the swipe quota before recording the swipe, so a
// denied quota never leaves a swipe row behind.
func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeAppErr(w, r, apperr.New(apperr.Unauthorized, "not authenticated"))
		return
	}

	var req swipeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	if _, err := s.Quota.Consume(r.Context(), user.UserID, quota.ActionSwipe, 1); err != nil {
		writeAppErr(w, r, err)
		return
	}

	if err := s.Swipe.Swipe(r.Context(), user.UserID, req.TargetID, swipe.Direction(req.Direction)); err != nil {
		writeAppErr(w, r, err)
		return
	}

	mutual, err := s.Swipe.MutualPairs(r.Context(), user.UserID)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	isMutual := false
	for _, id := range mutual {
		if id == req.TargetID {
			isMutual = true
			break
		}
	}

	writeOK(w, http.StatusOK, map[string]any{"mutual_match": isMutual})
}
