package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/surface-survey/internal/sim"
)

// ErrNotFound is used when a route parameter names nothing.
var ErrNotFound = errors.New("not found")

// HTTPStatus maps simulator errors onto HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sim.ErrInstrumentNotFound),
		errors.Is(err, sim.ErrContainerNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, HTTPStatus(err), errorBody{
		Error:     err.Error(),
		RequestID: requestIDFrom(r),
	})
}
