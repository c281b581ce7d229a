package contenthub

import (
	"context"
	"errors"
	"io"
)

// ArticleKind describes markdown articles. Articles are added by editing the index and
// content files directly; the repository only reads them.
var ArticleKind = Kind[ArticleMetadata]{
	Name:         "articles",
	DefaultLimit: 10,
}

// Articles is the read-only repository of markdown articles.
type Articles struct {
	repo *Repository[ArticleMetadata]
}

// NewArticles creates the article repository with its index in dir.
func NewArticles(dir string, files FileStore, opts ...Option) (*Articles, error) {
	repo, err := NewRepository(ArticleKind, dir, files, opts...)
	if err != nil {
		return nil, err
	}
	return &Articles{repo: repo}, nil
}

// Repository exposes the generic repository
func (a *Articles) Repository() *Repository[ArticleMetadata] {
	return a.repo
}

// List returns a page of article metadata.
func (a *Articles) List(ctx context.Context, q Query) (Result[ArticleMetadata], error) {
	return a.repo.List(ctx, q)
}

// GetMetadata returns an article's index entry without reading its content.
func (a *Articles) GetMetadata(ctx context.Context, slug string) (ArticleMetadata, bool, error) {
	return a.repo.Get(ctx, slug)
}

// GetBySlug returns the article with its markdown content. An index entry whose content
// file is missing is reported as not found.
func (a *Articles) GetBySlug(ctx context.Context, slug string) (Article, bool, error) {
	meta, found, err := a.repo.Get(ctx, slug)
	if err != nil || !found {
		return Article{}, false, err
	}

	content, err := a.readContent(ctx, meta)
	if errors.Is(err, ErrNotFound) {
		return Article{}, false, nil
	}
	if err != nil {
		return Article{}, false, err
	}
	return Article{ArticleMetadata: meta, Content: content}, true, nil
}

func (a *Articles) readContent(ctx context.Context, meta ArticleMetadata) (string, error) {
	rc, err := a.repo.Open(ctx, meta)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
