package dates

import (
	"encoding/json"
	"net/http"
	"time"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type acceptRequest struct {
	UserID       uint64 `json:"userId"`
	VerityDateID uint64 `json:"verityDateId"`
}

func (s *Service) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.VerityDateID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and verityDateId are required"))
		return
	}

	result, err := s.AcceptDate(r.Context(), req.VerityDateID, req.UserID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

type rescheduleRequest struct {
	UserID       uint64    `json:"userId"`
	VerityDateID uint64    `json:"verityDateId"`
	ScheduledAt  time.Time `json:"scheduledAt"`
}

func (s *Service) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.VerityDateID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and verityDateId are required"))
		return
	}
	if req.ScheduledAt.IsZero() {
		svcErr.WriteHTTP(w, svcErr.Validation("scheduledAt is required"))
		return
	}

	view, err := s.RescheduleDate(r.Context(), req.VerityDateID, req.UserID, req.ScheduledAt)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"date": view})
}

type requestDateRequest struct {
	UserID  uint64 `json:"userId"`
	MatchID uint64 `json:"matchId"`
}

func (s *Service) handleRequestNew(w http.ResponseWriter, r *http.Request) {
	var req requestDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.MatchID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and matchId are required"))
		return
	}

	view, err := s.RequestNewDate(r.Context(), req.MatchID, req.UserID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"date": view})
}

func (s *Service) handleActive(w http.ResponseWriter, r *http.Request) {
	var req requestDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.MatchID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and matchId are required"))
		return
	}

	view, err := s.ActiveDate(r.Context(), req.MatchID, req.UserID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"date": view})
}
