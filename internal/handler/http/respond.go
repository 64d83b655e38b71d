package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/w-h-a/lio"
	"github.com/w-h-a/lio/extractor"
	"github.com/w-h-a/lio/generator"
	"github.com/w-h-a/lio/queue"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, lio.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, lio.ErrInvalidInput),
		errors.Is(err, generator.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
