package profile

import (
	"encoding/json"
	"net/http"
	"time"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type heartbeatRequest struct {
	UserID uint64 `json:"userId"`
}

func (s *Service) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId is required"))
		return
	}

	if err := s.Heartbeat(r.Context(), req.UserID); err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type locationRequest struct {
	UserID uint64  `json:"userId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

func (s *Service) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId is required"))
		return
	}

	if err := s.UpdateLocation(r.Context(), req.UserID, req.Lat, req.Lng); err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) handleBoost(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId is required"))
		return
	}

	until, err := s.ActivateBoost(r.Context(), req.UserID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]time.Time{"boostedUntil": until})
}
