package contenthub

import (
	"strings"
	"time"
)

// TimestampLayout is the layout used for createdAt/uploadedAt values written by this package.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is implemented by every metadata record kept in an index.
type Record interface {
	// Key returns the identity field (slug for articles, id otherwise)
	Key() string
	// File returns the name of the backing content file
	File() string
	// Timestamp returns the value used for newest-first ordering
	Timestamp() string
	// SearchText returns the free-text fields matched by a search query
	SearchText() []string
	// TagList returns the record's tags
	TagList() []string
}

// ArticleMetadata describes a markdown article. Articles are written out of band.
type ArticleMetadata struct {
	Slug       string   `json:"slug"`
	Filename   string   `json:"filename"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"coverImage,omitempty"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

func (a ArticleMetadata) Key() string          { return a.Slug }
func (a ArticleMetadata) File() string         { return a.Filename }
func (a ArticleMetadata) Timestamp() string    { return a.CreatedAt }
func (a ArticleMetadata) SearchText() []string { return []string{a.Title, a.Excerpt} }
func (a ArticleMetadata) TagList() []string    { return a.Tags }

// Article is an article's metadata together with its markdown body.
type Article struct {
	ArticleMetadata
	Content string `json:"content"`
}

// PdfMetadata describes an uploaded PDF document.
type PdfMetadata struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	UploadedAt string   `json:"uploadedAt"`
}

func (p PdfMetadata) Key() string          { return p.ID }
func (p PdfMetadata) File() string         { return p.Filename }
func (p PdfMetadata) Timestamp() string    { return p.UploadedAt }
func (p PdfMetadata) SearchText() []string { return []string{p.Title} }
func (p PdfMetadata) TagList() []string    { return p.Tags }

// InfographicMetadata describes an uploaded image infographic.
type InfographicMetadata struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	UploadedAt  string   `json:"uploadedAt"`
}

func (i InfographicMetadata) Key() string          { return i.ID }
func (i InfographicMetadata) File() string         { return i.Filename }
func (i InfographicMetadata) Timestamp() string    { return i.UploadedAt }
func (i InfographicMetadata) SearchText() []string { return []string{i.Title, i.Description} }
func (i InfographicMetadata) TagList() []string    { return i.Tags }

// Upload carries what the upload boundary extracted from a request.
type Upload struct {
	Data        []byte
	Filename    string // declared original filename, used for the extension only
	Title       string
	Description string
	Tags        []string
}

// ParseTags splits a comma separated tag string, trimming whitespace and dropping empty entries.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp parses the timestamp formats found in index files. Unparseable values sort oldest.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
