package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-hub/pkg/contenthub"
)

const multipartMemory = 32 << 20

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// SuccessResponse acknowledges a delete
type SuccessResponse struct {
	Success bool `json:"success"`
}

// parseQuery reads search, tag, page and limit. Missing or non-numeric paging values
// fall back to the repository defaults.
func parseQuery(r *http.Request) contenthub.Query {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return contenthub.Query{
		Search: strings.TrimSpace(values.Get("search")),
		Tag:    strings.TrimSpace(values.Get("tag")),
		Page:   page,
		Limit:  limit,
	}
}

func (h *Handler) articleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListArticles)
	r.Get("/{slug}", h.GetArticle)
	return r
}

func (h *Handler) pdfRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListPdfs)
	r.Get("/{id}", h.ServePdf)
	r.Get("/{id}/metadata", h.GetPdfMetadata)
	r.With(h.admin()...).Post("/", h.UploadPdf)
	r.With(h.admin()...).Delete("/{id}", h.DeletePdf)
	return r
}

func (h *Handler) infographicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListInfographics)
	r.With(CacheMiddleware(immutableMaxAge)).Get("/{id}", h.ServeInfographic)
	r.Get("/{id}/metadata", h.GetInfographicMetadata)
	r.With(h.admin()...).Post("/", h.UploadInfographic)
	r.With(h.admin()...).Delete("/{id}", h.DeleteInfographic)
	return r
}

// ListArticles returns a page of article metadata
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	res, err := h.hub.Articles.List(r.Context(), parseQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err, "Article not found")
		return
	}
	render.JSON(w, r, res)
}

// GetArticle returns one article with its markdown content
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, found, err := h.hub.Articles.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err, "Article not found")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "Article not found")
		return
	}
	render.JSON(w, r, article)
}

// ListPdfs returns a page of pdf metadata
func (h *Handler) ListPdfs(w http.ResponseWriter, r *http.Request) {
	res, err := h.hub.Pdfs.List(r.Context(), parseQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err, "PDF not found")
		return
	}
	render.JSON(w, r, res)
}

// GetPdfMetadata returns a pdf's index record
func (h *Handler) GetPdfMetadata(w http.ResponseWriter, r *http.Request) {
	pdf, found, err := h.hub.Pdfs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "PDF not found")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "PDF not found")
		return
	}
	render.JSON(w, r, pdf)
}

// ServePdf streams the pdf bytes inline
func (h *Handler) ServePdf(w http.ResponseWriter, r *http.Request) {
	pdf, found, err := h.hub.Pdfs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "PDF not found")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "PDF not found")
		return
	}

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": pdf.Title + ".pdf"})
	if disposition == "" {
		disposition = "inline"
	}
	headers := map[string]string{
		"Content-Type":        "application/pdf",
		"Content-Disposition": disposition,
	}
	h.serveFile(w, r, h.hub.Pdfs.Repository().Files(), pdf.Filename, headers, "PDF file not found")
}

// UploadPdf stores a pdf from a multipart form (file, title, tags)
func (h *Handler) UploadPdf(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	pdf, err := h.hub.Pdfs.Upload(r.Context(), upload)
	if err != nil {
		h.writeServiceError(w, r, err, "PDF not found")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pdf)
}

// DeletePdf removes a pdf and its file
func (h *Handler) DeletePdf(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.hub.Pdfs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "PDF not found")
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "PDF not found")
		return
	}
	render.JSON(w, r, SuccessResponse{Success: true})
}

// ListInfographics returns a page of infographic metadata
func (h *Handler) ListInfographics(w http.ResponseWriter, r *http.Request) {
	res, err := h.hub.Infographics.List(r.Context(), parseQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err, "Infographic not found")
		return
	}
	render.JSON(w, r, res)
}

// GetInfographicMetadata returns an infographic's index record
func (h *Handler) GetInfographicMetadata(w http.ResponseWriter, r *http.Request) {
	info, found, err := h.hub.Infographics.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Infographic not found")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "Infographic not found")
		return
	}
	render.JSON(w, r, info)
}

// ServeInfographic streams the image bytes
func (h *Handler) ServeInfographic(w http.ResponseWriter, r *http.Request) {
	info, found, err := h.hub.Infographics.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Infographic not found")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "Infographic not found")
		return
	}
	headers := map[string]string{"Content-Type": contentTypeFor(info.Filename)}
	h.serveFile(w, r, h.hub.Infographics.Repository().Files(), info.Filename, headers, "Infographic file not found")
}

// UploadInfographic stores an image from a multipart form (file, title, description, tags)
func (h *Handler) UploadInfographic(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	info, err := h.hub.Infographics.Upload(r.Context(), upload)
	if err != nil {
		h.writeServiceError(w, r, err, "Infographic not found")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// DeleteInfographic removes an infographic and its file
func (h *Handler) DeleteInfographic(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.hub.Infographics.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err, "Infographic not found")
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "Infographic not found")
		return
	}
	render.JSON(w, r, SuccessResponse{Success: true})
}

// readUpload extracts file, title, description and tags from a multipart form. On failure
// the response has already been written.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (contenthub.Upload, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "File too large")
		} else {
			writeError(w, r, http.StatusBadRequest, "Invalid multipart form")
		}
		return contenthub.Upload{}, false
	}
	defer r.MultipartForm.RemoveAll()

	title := r.FormValue("title")
	file, header, err := r.FormFile("file")
	if err != nil || strings.TrimSpace(title) == "" {
		if file != nil {
			file.Close()
		}
		writeError(w, r, http.StatusBadRequest, "File and title are required")
		return contenthub.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return contenthub.Upload{}, false
	}

	return contenthub.Upload{
		Data:        data,
		Filename:    header.Filename,
		Title:       title,
		Description: r.FormValue("description"),
		Tags:        contenthub.ParseTags(r.FormValue("tags")),
	}, true
}

// serveFile writes a stored file with headers. Local stores go through http.ServeContent
// for range and conditional request support.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, files contenthub.FileStore, filename string, headers map[string]string, notFound string) {
	if resolver, ok := files.(contenthub.PathResolver); ok {
		path, err := resolver.ResolvePath(filename)
		if err != nil {
			writeError(w, r, http.StatusNotFound, notFound)
			return
		}
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, r, http.StatusNotFound, notFound)
			return
		} else if err != nil {
			h.writeServiceError(w, r, err, notFound)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			h.writeServiceError(w, r, err, notFound)
			return
		}
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		http.ServeContent(w, r, filename, info.ModTime(), f)
		return
	}

	rc, err := files.Open(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, r, err, notFound)
		return
	}
	defer rc.Close()
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to stream file", "filename", filename, "error", err)
	}
}

func contentTypeFor(filename string) string {
	if ct, ok := imageContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
