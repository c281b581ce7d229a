package contenthub

import (
	"context"
	"errors"
	"path/filepath"
)

// FileStoreFactory returns the file store for one content-type directory ("articles",
// "pdfs", "infographics", "uploads"). localDir is where that type's index lives.
type FileStoreFactory func(kind, localDir string) (FileStore, error)

// Hub owns one repository per content type. Each repository is an independent
// serialization domain; nothing is shared between them.
type Hub struct {
	DataDir      string
	Articles     *Articles
	Pdfs         *Pdfs
	Infographics *Infographics
	Uploads      *Uploads
}

// NewHub builds all repositories rooted at dataDir/<kind>.
func NewHub(dataDir string, newFiles FileStoreFactory, opts ...Option) (*Hub, error) {
	if dataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if newFiles == nil {
		return nil, errors.New("file store factory is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := func(kind string) (string, FileStore, error) {
		dir := filepath.Join(dataDir, kind)
		files, err := newFiles(kind, dir)
		return dir, files, err
	}

	h := &Hub{DataDir: dataDir}

	dir, files, err := store(ArticleKind.Name)
	if err != nil {
		return nil, err
	}
	if h.Articles, err = NewArticles(dir, files, opts...); err != nil {
		return nil, err
	}

	dir, files, err = store(PdfKind.Name)
	if err != nil {
		return nil, err
	}
	if h.Pdfs, err = NewPdfs(dir, files, opts...); err != nil {
		return nil, err
	}

	dir, files, err = store(InfographicKind.Name)
	if err != nil {
		return nil, err
	}
	if h.Infographics, err = NewInfographics(dir, files, opts...); err != nil {
		return nil, err
	}

	if _, files, err = store("uploads"); err != nil {
		return nil, err
	}
	if h.Uploads, err = NewUploads(files, o.logger); err != nil {
		return nil, err
	}

	return h, nil
}

// Reconcile runs Repository.Reconcile for every indexed content type.
func (h *Hub) Reconcile(ctx context.Context, prune bool) ([]ReconcileReport, error) {
	var reports []ReconcileReport

	r, err := h.Articles.Repository().Reconcile(ctx, prune)
	if err != nil {
		return reports, err
	}
	reports = append(reports, r)

	if r, err = h.Pdfs.Repository().Reconcile(ctx, prune); err != nil {
		return reports, err
	}
	reports = append(reports, r)

	if r, err = h.Infographics.Repository().Reconcile(ctx, prune); err != nil {
		return reports, err
	}
	return append(reports, r), nil
}
