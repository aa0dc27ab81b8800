package googlebooks

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
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	SourceName     = "google"

	maxResultsLimit = 40
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a Google Books volumes API adapter
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
	}
}

var _ catalog.Searcher = (*Client)(nil)

func (c *Client) Name() string {
	return SourceName
}

func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, query, limit)
}

func (c *Client) SearchBySubject(ctx context.Context, subject string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, "subject:"+subject, limit)
}

func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]models.BookRef, error) {
	return c.search(ctx, "inauthor:"+author, limit)
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]models.BookRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.BookRef{}, nil
	}
	if limit <= 0 || limit > maxResultsLimit {
		limit = maxResultsLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("printType", "books")

	var res volumesResponse
	if err := c.get(ctx, "/volumes", params, &res); err != nil {
		return nil, err
	}

	books := make([]models.BookRef, 0, len(res.Items))
	for _, v := range res.Items {
		if book, ok := toBookRef(v); ok {
			books = append(books, book)
		}
	}
	return books, nil
}

func (c *Client) GetBookDetails(ctx context.Context, id string) (models.BookRef, error) {
	var v volume
	if err := c.get(ctx, "/volumes/"+url.PathEscape(id), url.Values{}, &v); err != nil {
		return models.BookRef{}, err
	}
	book, ok := toBookRef(v)
	if !ok {
		return models.BookRef{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return book, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	if c.APIKey != "" {
		params.Set("key", c.APIKey)
	}
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
		return fmt.Errorf("%w: google books status %d", catalog.ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode google books response: %w", err)
	}
	return nil
}

// toBookRef normalises a volume; volumes without id or title are skipped
func toBookRef(v volume) (models.BookRef, bool) {
	info := v.VolumeInfo
	title := strings.TrimSpace(info.Title)
	if v.ID == "" || title == "" {
		return models.BookRef{}, false
	}
	if info.Subtitle != "" {
		title += ": " + strings.TrimSpace(info.Subtitle)
	}

	thumbnail := info.ImageLinks.Thumbnail
	if thumbnail == "" {
		thumbnail = info.ImageLinks.SmallThumbnail
	}

	return models.BookRef{
		ID:            v.ID,
		Title:         title,
		Authors:       nonNil(info.Authors),
		Thumbnail:     strings.Replace(thumbnail, "http://", "https://", 1),
		PageCount:     max(info.PageCount, 0),
		PublishedDate: info.PublishedDate,
		Categories:    nonNil(info.Categories),
		Description:   info.Description,
		Source:        SourceName,
	}, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
