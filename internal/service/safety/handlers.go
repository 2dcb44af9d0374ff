package safety

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type blockRequest struct {
	BlockerID uint64 `json:"blockerId"`
	BlockedID uint64 `json:"blockedId"`
}

func (s *Service) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.BlockerID == 0 || req.BlockedID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("blockerId and blockedId are required"))
		return
	}

	if err := s.Block(r.Context(), req.BlockerID, req.BlockedID); err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"blocked": true})
}

func (s *Service) handleUnblock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.BlockerID == 0 || req.BlockedID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("blockerId and blockedId are required"))
		return
	}

	removed, err := s.Unblock(r.Context(), req.BlockerID, req.BlockedID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

type reportRequest struct {
	ReporterID uint64 `json:"reporterId"`
	ReportedID uint64 `json:"reportedId"`
	Reason     string `json:"reason"`
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.ReporterID == 0 || req.ReportedID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("reporterId and reportedId are required"))
		return
	}

	ref, err := s.Report(r.Context(), req.ReporterID, req.ReportedID, req.Reason)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"reference": ref})
}

type unmatchRequest struct {
	UserID  uint64 `json:"userId"`
	MatchID uint64 `json:"matchId"`
}

func (s *Service) handleUnmatch(w http.ResponseWriter, r *http.Request) {
	var req unmatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.MatchID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and matchId are required"))
		return
	}

	if err := s.Unmatch(r.Context(), req.MatchID, req.UserID); err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
