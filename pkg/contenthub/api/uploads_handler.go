package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-hub/pkg/contenthub"
)

// ImageUploadResponse is the response shape expected by the article editor's image tool
type ImageUploadResponse struct {
	Success int              `json:"success"`
	File    *UploadedFileRef `json:"file,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// UploadedFileRef points at a stored editor image
type UploadedFileRef struct {
	URL string `json:"url"`
}

func (h *Handler) uploadRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(h.admin()...).Post("/image", h.UploadImage)
	r.With(CacheMiddleware(immutableMaxAge)).Get("/{filename}", h.ServeUpload)
	return r
}

// UploadImage stores an editor image from the "image" form field. Rejections are reported
// with success 0 in the body, which is what the editor understands.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, message string) {
		render.Status(r, status)
		render.JSON(w, r, ImageUploadResponse{Success: 0, Error: message})
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			fail(http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		fail(http.StatusOK, "No image file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		fail(http.StatusOK, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to read editor image", "error", err)
		fail(http.StatusInternalServerError, internalErrorMessage)
		return
	}

	name, err := h.hub.Uploads.Save(r.Context(), data, header.Filename)
	var vErr *contenthub.ValidationError
	switch {
	case errors.As(err, &vErr):
		fail(http.StatusOK, "Invalid image: "+vErr.Reason)
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Failed to store editor image",
			"request_id", RequestIDFromContext(r.Context()), "error", err)
		fail(http.StatusInternalServerError, internalErrorMessage)
		return
	}

	render.JSON(w, r, ImageUploadResponse{
		Success: 1,
		File:    &UploadedFileRef{URL: "/api/uploads/" + name},
	})
}

// ServeUpload streams a stored editor image
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	headers := map[string]string{"Content-Type": contentTypeFor(filename)}
	h.serveFile(w, r, h.hub.Uploads.Files(), filename, headers, "File not found")
}
