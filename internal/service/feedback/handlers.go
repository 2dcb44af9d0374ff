package feedback

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/verityapp/verity-server/internal/errors"
	"github.com/verityapp/verity-server/internal/utils/respond"
)

type submitRequest struct {
	UserID       uint64 `json:"userId"`
	VerityDateID uint64 `json:"verityDateId"`
	Verdict      string `json:"verdict"`
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		svcErr.WriteHTTP(w, svcErr.Validation("invalid request body"))
		return
	}
	if req.UserID == 0 || req.VerityDateID == 0 {
		svcErr.WriteHTTP(w, svcErr.Validation("userId and verityDateId are required"))
		return
	}

	outcome, err := s.Submit(r.Context(), req.VerityDateID, req.UserID, req.Verdict)
	if err != nil {
		svcErr.WriteHTTP(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, outcome)
}
