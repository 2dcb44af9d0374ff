package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPStatus maps a classified error onto the HTTP status the API returns.
// Conflicts map to 200: an idempotent replay is success-with-no-op as far as
// the caller is concerned, distinguished by the "kind" field in the body.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindConflict:
		return http.StatusOK
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindInvariant:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// WriteHTTP writes the JSON error representation for err.
func WriteHTTP(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		// do not leak internals to clients
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     msg,
		Kind:      kind.String(),
		Retryable: kind == KindUnavailable,
	})
}
