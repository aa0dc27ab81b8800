package models

import "strings"

// BookRef is a normalized snapshot of a book's catalog metadata.
// PageCount of zero means the page count is unknown.
type BookRef struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Categories    []string `json:"categories"`
	Description   string   `json:"description,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// AuthorLine joins the authors for display
func (b BookRef) AuthorLine() string {
	if len(b.Authors) == 0 {
		return "Unknown author"
	}
	return strings.Join(b.Authors, ", ")
}

// Clone returns a copy that shares no slices with b
func (b BookRef) Clone() BookRef {
	out := b
	out.Authors = append([]string{}, b.Authors...)
	out.Categories = append([]string{}, b.Categories...)
	return out
}

// RecommendedBook is a recommendation candidate ranked by a static per-strategy weight
type RecommendedBook struct {
	BookRef
	RelevanceScore float64 `json:"relevanceScore"`
	Strategy       string  `json:"strategy"`
	Reason         string  `json:"reason,omitempty"`
}
