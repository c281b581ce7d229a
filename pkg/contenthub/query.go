package contenthub

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/exp/slices"
)

// DefaultLimit is the page size used when a query carries no usable limit.
const DefaultLimit = 10

// Query selects and pages records. Zero values mean "no filter"; Page and Limit are
// normalized by Apply.
type Query struct {
	Search string
	Tag    string
	Page   int
	Limit  int
}

// Result is one page of a query over a content type's index.
type Result[T Record] struct {
	// ItemsKey names the items list in the JSON form ("articles", "pdfs", "infographics")
	ItemsKey   string
	Items      []T
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// MarshalJSON renders {"<items-key>": [...], "total", "page", "limit", "totalPages"}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	key := r.ItemsKey
	if key == "" {
		key = "items"
	}
	items := r.Items
	if items == nil {
		items = []T{}
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	tail, err := json.Marshal(struct {
		Total      int `json:"total"`
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalPages int `json:"totalPages"`
	}{r.Total, r.Page, r.Limit, r.TotalPages})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(keyJSON)
	buf.WriteByte(':')
	buf.Write(itemsJSON)
	buf.WriteByte(',')
	buf.Write(tail[1:])
	return buf.Bytes(), nil
}

// Apply sorts records newest first, filters them by search and tag, and returns the
// requested page. The input slice is not modified.
func Apply[T Record](records []T, q Query, defaultLimit int) Result[T] {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return parseTimestamp(b.Timestamp()).Compare(parseTimestamp(a.Timestamp()))
	})

	search := strings.ToLower(q.Search)
	matched := make([]T, 0, len(sorted))
	for _, rec := range sorted {
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		if q.Tag != "" && !slices.Contains(rec.TagList(), q.Tag) {
			continue
		}
		matched = append(matched, rec)
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	items := []T{}
	// pages past the end are empty
	if page <= totalPages {
		start := (page - 1) * limit
		end := min(start+limit, total)
		items = append(items, matched[start:end]...)
	}

	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

func matchesSearch[T Record](rec T, lowered string) bool {
	for _, field := range rec.SearchText() {
		if strings.Contains(strings.ToLower(field), lowered) {
			return true
		}
	}
	for _, tag := range rec.TagList() {
		if strings.Contains(strings.ToLower(tag), lowered) {
			return true
		}
	}
	return false
}
