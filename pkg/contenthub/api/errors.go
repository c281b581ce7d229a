package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-hub/pkg/contenthub"
)

const internalErrorMessage = "Internal server error"

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}

// writeServiceError maps repository errors to responses. notFound is the message used for
// ErrNotFound; everything the caller cannot act on is logged and reported generically.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, contenthub.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFound)
	case errors.Is(err, contenthub.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &maxBytesErr):
		writeError(w, r, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, contenthub.ErrConcurrentWrite):
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusConflict, "Content changed concurrently, please retry")
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, internalErrorMessage)
	}
}
