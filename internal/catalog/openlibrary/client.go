package openlibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"bookshelf/internal/catalog"
	"bookshelf/internal/models"
)

const (
	DefaultBaseURL  = "https://openlibrary.org"
	DefaultCoverURL = "https://covers.openlibrary.org"
	SourceName      = "openlibrary"

	maxSearchLimit = 100
	maxSubjects    = 5
	searchFields   = "key,title,author_name,first_publish_year,cover_i,number_of_pages_median,subject"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is an Open Library search and works API adapter
type Client struct {
	BaseURL    string
	CoverURL   string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		CoverURL:   DefaultCoverURL,
		HTTPClient: &http.Client{},
	}
}

var _ catalog.Searcher = (*Client)(nil)

func (c *Client) Name() string {
	return SourceName
}

func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, "q", query, limit)
}

func (c *Client) SearchBySubject(ctx context.Context, subject string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, "subject", subject, limit)
}

func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, "author", author, limit)
}

func (c *Client) search(ctx context.Context, field, value string, limit int) ([]models.BookRef, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []models.BookRef{}, nil
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set(field, value)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", searchFields)

	var res searchResponse
	if err := c.get(ctx, "/search.json?"+params.Encode(), &res); err != nil {
		return nil, err
	}

	books := make([]models.BookRef, 0, len(res.Docs))
	for _, d := range res.Docs {
		if book, ok := c.docToBookRef(d); ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// GetBookDetails loads a work by its id ("OL45804W" or "/works/OL45804W")
func (c *Client) GetBookDetails(ctx context.Context, id string) (models.BookRef, error) {
	workID := strings.TrimPrefix(strings.TrimSpace(id), "/works/")
	if workID == "" {
		return models.BookRef{}, fmt.Errorf("%w: empty id", catalog.ErrNotFound)
	}

	var w work
	if err := c.get(ctx, "/works/"+url.PathEscape(workID)+".json", &w); err != nil {
		return models.BookRef{}, err
	}
	if strings.TrimSpace(w.Title) == "" {
		return models.BookRef{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}

	book := models.BookRef{
		ID:            workID,
		Title:         strings.TrimSpace(w.Title),
		Authors:       c.authorNames(ctx, w.Authors),
		PublishedDate: w.FirstPublishDate,
		Categories:    firstN(w.Subjects, maxSubjects),
		Description:   string(w.Description),
		Source:        SourceName,
	}
	if len(w.Covers) > 0 && w.Covers[0] > 0 {
		book.Thumbnail = c.coverURL(w.Covers[0])
	}
	return book, nil
}

// authorNames resolves author keys; unresolvable authors are skipped
func (c *Client) authorNames(ctx context.Context, actors []workActor) []string {
	names := []string{}
	for _, a := range actors {
		if a.Author.Key == "" {
			continue
		}
		var au author
		if err := c.get(ctx, a.Author.Key+".json", &au); err != nil || au.Name == "" {
			continue
		}
		names = append(names, au.Name)
	}
	return names
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return catalog.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: open library status %d", catalog.ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode open library response: %w", err)
	}
	return nil
}

func (c *Client) docToBookRef(d doc) (models.BookRef, bool) {
	workID := strings.TrimPrefix(d.Key, "/works/")
	title := strings.TrimSpace(d.Title)
	if workID == "" || title == "" {
		return models.BookRef{}, false
	}

	book := models.BookRef{
		ID:         workID,
		Title:      title,
		Authors:    append([]string{}, d.AuthorName...),
		PageCount:  max(d.NumberOfPagesMedian, 0),
		Categories: firstN(d.Subject, maxSubjects),
		Source:     SourceName,
	}
	if d.FirstPublishYear > 0 {
		book.PublishedDate = strconv.Itoa(d.FirstPublishYear)
	}
	if d.CoverID > 0 {
		book.Thumbnail = c.coverURL(d.CoverID)
	}
	return book, true
}

func (c *Client) coverURL(coverID int) string {
	return fmt.Sprintf("%s/b/id/%d-M.jpg", c.CoverURL, coverID)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string{}, s...)
}
