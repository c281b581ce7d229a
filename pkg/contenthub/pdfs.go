package contenthub

import (
	"context"
	"io"
)

// PdfKind describes uploaded PDF documents.
var PdfKind = Kind[PdfMetadata]{
	Name:         "pdfs",
	DefaultLimit: 10,
	Extensions:   []string{".pdf"},
	Sniff:        sniffPDF,
	Build: func(id, filename, timestamp string, u Upload) PdfMetadata {
		return PdfMetadata{
			ID:         id,
			Filename:   filename,
			Title:      u.Title,
			Tags:       u.Tags,
			UploadedAt: timestamp,
		}
	},
}

// Pdfs is the repository of uploaded PDF documents.
type Pdfs struct {
	repo *Repository[PdfMetadata]
}

// NewPdfs creates the pdf repository with its index in dir.
func NewPdfs(dir string, files FileStore, opts ...Option) (*Pdfs, error) {
	repo, err := NewRepository(PdfKind, dir, files, opts...)
	if err != nil {
		return nil, err
	}
	return &Pdfs{repo: repo}, nil
}

// Repository exposes the generic repository
func (p *Pdfs) Repository() *Repository[PdfMetadata] {
	return p.repo
}

func (p *Pdfs) List(ctx context.Context, q Query) (Result[PdfMetadata], error) {
	return p.repo.List(ctx, q)
}

func (p *Pdfs) GetByID(ctx context.Context, id string) (PdfMetadata, bool, error) {
	return p.repo.Get(ctx, id)
}

// Upload stores a new PDF. The description field of u is ignored.
func (p *Pdfs) Upload(ctx context.Context, u Upload) (PdfMetadata, error) {
	return p.repo.Create(ctx, u)
}

func (p *Pdfs) Delete(ctx context.Context, id string) (bool, error) {
	return p.repo.Delete(ctx, id)
}

// Open opens the PDF bytes for rec
func (p *Pdfs) Open(ctx context.Context, rec PdfMetadata) (io.ReadCloser, error) {
	return p.repo.Open(ctx, rec)
}
