package discovery

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/pagination"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type feedRequest struct {
	UserID          uint64  `json:"userId"`
	Prefs           Prefs   `json:"prefs"`
	Filters         Filters `json:"filters"`
	PageSize        int     `json:"pageSize"`
	PaginationToken *string `json:"paginationToken,omitempty"`
}

func (s *Service) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId is required"))
		return
	}

	offset := 0
	if req.PaginationToken != nil {
		cursor, err := pagination.Decode(*req.PaginationToken)
		if err != nil {
			svcErr.WriteHTTP(w, svcErr.Validation("invalid pagination token"))
			return
		}
		offset = cursor.Offset
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	candidates, err := s.BuildFeed(r.Context(), req.UserID, req.Prefs, req.Filters, pageSize, offset)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}

	var nextToken *string
	if len(candidates) == pageSize {
		token, _ := pagination.Encode(pagination.Cursor{Offset: offset + len(candidates)})
		nextToken = &token
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"candidates":      candidates,
		"paginationToken": nextToken,
	})
}
