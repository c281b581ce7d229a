package contenthub

import (
	"context"
	"io"
)

// InfographicExtensions lists the image formats accepted as infographics.
var InfographicExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// InfographicKind describes uploaded image infographics.
var InfographicKind = Kind[InfographicMetadata]{
	Name:         "infographics",
	DefaultLimit: 12,
	Extensions:   InfographicExtensions,
	Sniff:        sniffImage,
	Build: func(id, filename, timestamp string, u Upload) InfographicMetadata {
		return InfographicMetadata{
			ID:          id,
			Filename:    filename,
			Title:       u.Title,
			Description: u.Description,
			Tags:        u.Tags,
			UploadedAt:  timestamp,
		}
	},
}

// Infographics is the repository of uploaded image infographics.
type Infographics struct {
	repo *Repository[InfographicMetadata]
}

// NewInfographics creates the infographic repository with its index in dir.
func NewInfographics(dir string, files FileStore, opts ...Option) (*Infographics, error) {
	repo, err := NewRepository(InfographicKind, dir, files, opts...)
	if err != nil {
		return nil, err
	}
	return &Infographics{repo: repo}, nil
}

// Repository exposes the generic repository
func (i *Infographics) Repository() *Repository[InfographicMetadata] {
	return i.repo
}

func (i *Infographics) List(ctx context.Context, q Query) (Result[InfographicMetadata], error) {
	return i.repo.List(ctx, q)
}

func (i *Infographics) GetByID(ctx context.Context, id string) (InfographicMetadata, bool, error) {
	return i.repo.Get(ctx, id)
}

func (i *Infographics) Upload(ctx context.Context, u Upload) (InfographicMetadata, error) {
	return i.repo.Create(ctx, u)
}

func (i *Infographics) Delete(ctx context.Context, id string) (bool, error) {
	return i.repo.Delete(ctx, id)
}

// Open opens the image bytes for rec
func (i *Infographics) Open(ctx context.Context, rec InfographicMetadata) (io.ReadCloser, error) {
	return i.repo.Open(ctx, rec)
}
