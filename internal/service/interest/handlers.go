package interest

import (
	"encoding/json"
	"net/http"
	"strconv"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type pairRequest struct {
	FromUserID uint64 `json:"fromUserId"`
	ToUserID   uint64 `json:"toUserId"`
}

func (s *Service) handleExpress(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.FromUserID == 0 || req.ToUserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("fromUserId and toUserId are required"))
		return
	}

	result, err := s.ExpressInterest(r.Context(), req.FromUserID, req.ToUserID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

func (s *Service) handlePass(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.FromUserID == 0 || req.ToUserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("fromUserId and toUserId are required"))
		return
	}

	if err := s.ExpressPass(r.Context(), req.FromUserID, req.ToUserID); err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

type undoRequest struct {
	UserID          uint64 `json:"userId"`
	PremiumEntitled bool   `json:"premiumEntitled"`
}

func (s *Service) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId is required"))
		return
	}

	result, err := s.UndoLastPass(r.Context(), req.UserID, req.PremiumEntitled)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

func (s *Service) handleAdmirers(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId query parameter is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var token *string
	if t := r.URL.Query().Get("paginationToken"); t != "" {
		token = &t
	}

	admirers, nextToken, err := s.ListAdmirers(r.Context(), userID, token, limit)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"admirers":        admirers,
		"paginationToken": nextToken,
	})
}

func (s *Service) handleAdmirerCount(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId query parameter is required"))
		return
	}

	count, err := s.CountAdmirers(r.Context(), userID)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}
