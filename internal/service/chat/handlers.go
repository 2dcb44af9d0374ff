package chat

import (
	"encoding/json"
	"net/http"
	"strconv"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type sendRequest struct {
	UserID  uint64 `json:"userId"`
	MatchID uint64 `json:"matchId"`
	Content string `json:"content"`
}

func (s *Service) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.MatchID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and matchId are required"))
		return
	}

	message, err := s.Send(r.Context(), req.MatchID, req.UserID, req.Content)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"message": message})
}

func (s *Service) handleMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId query parameter is required"))
		return
	}
	matchID, err := strconv.ParseUint(r.URL.Query().Get("matchId"), 10, 64)
	if err != nil || matchID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("matchId query parameter is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var token *string
	if t := r.URL.Query().Get("paginationToken"); t != "" {
		token = &t
	}

	messages, nextToken, err := s.List(r.Context(), matchID, userID, token, limit)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"messages":        messages,
		"paginationToken": nextToken,
	})
}
