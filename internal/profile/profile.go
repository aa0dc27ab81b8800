package profile

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// MaxSearchHistory is how many recent queries are kept
const MaxSearchHistory = 20

// Preferences are the user's explicit settings.
// Saved genres and authors seed recommendations alongside reading history.
type Preferences struct {
	UserName        string   `json:"userName"`
	FavoriteGenres  []string `json:"favoriteGenres"`
	FavoriteAuthors []string `json:"favoriteAuthors"`
	ResultsPerPage  int      `json:"resultsPerPage"`
}

const defaultResultsPerPage = 10

// Profile holds search history, bookmarks and preferences of the single user
type Profile struct {
	mu     sync.Mutex
	store  *storage.Persistent
	logger *zap.Logger

	history     []string
	bookmarks   []models.BookRef
	preferences Preferences
}

// New loads the profile from the store; userName is used when no preferences were saved
func New(ctx context.Context, store *storage.Persistent, logger *zap.Logger, userName string) *Profile {
	p := &Profile{
		store:     store,
		logger:    logger,
		history:   []string{},
		bookmarks: []models.BookRef{},
		preferences: Preferences{
			UserName:       userName,
			ResultsPerPage: defaultResultsPerPage,
		},
	}

	var history []string
	if store.Get(ctx, storage.KeySearchHistory, &history) {
		p.history = capHistory(history)
	}
	var bookmarks []models.BookRef
	if store.Get(ctx, storage.KeyBookmarks, &bookmarks) && bookmarks != nil {
		p.bookmarks = bookmarks
	}
	prefs := p.preferences
	if store.Get(ctx, storage.KeyUserPreferences, &prefs) {
		p.preferences = withDefaults(prefs, userName)
	}
	return p
}

func withDefaults(prefs Preferences, userName string) Preferences {
	if strings.TrimSpace(prefs.UserName) == "" {
		prefs.UserName = userName
	}
	if prefs.ResultsPerPage <= 0 {
		prefs.ResultsPerPage = defaultResultsPerPage
	}
	return prefs
}

func capHistory(history []string) []string {
	out := make([]string, 0, MaxSearchHistory)
	seen := make(map[string]bool)
	for _, q := range history {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(q))
		if len(out) == MaxSearchHistory {
			break
		}
	}
	return out
}

// RecordSearch puts query at the front of the history.
// An earlier occurrence of the same query, ignoring case, is dropped.
func (p *Profile) RecordSearch(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = capHistory(append([]string{query}, p.history...))
	p.store.Set(ctx, storage.KeySearchHistory, p.history)
}

// SearchHistory returns recent queries, newest first
func (p *Profile) SearchHistory() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string{}, p.history...)
}

func (p *Profile) ClearSearchHistory(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = []string{}
	p.store.Remove(ctx, storage.KeySearchHistory)
}

// ToggleBookmark bookmarks the book or removes its bookmark.
// It reports whether the book is bookmarked afterwards.
func (p *Profile) ToggleBookmark(ctx context.Context, book models.BookRef) bool {
	if book.ID == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bookmarked := true
	for i, b := range p.bookmarks {
		if b.ID == book.ID {
			p.bookmarks = append(p.bookmarks[:i:i], p.bookmarks[i+1:]...)
			bookmarked = false
			break
		}
	}
	if bookmarked {
		p.bookmarks = append([]models.BookRef{book.Clone()}, p.bookmarks...)
	}

	p.store.Set(ctx, storage.KeyBookmarks, p.bookmarks)
	p.logger.Debug("Bookmark toggled", zap.String("book_id", book.ID), zap.Bool("bookmarked", bookmarked))
	return bookmarked
}

// Bookmarks returns bookmarked books, most recent first
func (p *Profile) Bookmarks() []models.BookRef {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.BookRef, 0, len(p.bookmarks))
	for _, b := range p.bookmarks {
		out = append(out, b.Clone())
	}
	return out
}

func (p *Profile) IsBookmarked(bookID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.bookmarks {
		if b.ID == bookID {
			return true
		}
	}
	return false
}

func (p *Profile) Preferences() Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs := p.preferences
	prefs.FavoriteGenres = append([]string{}, prefs.FavoriteGenres...)
	prefs.FavoriteAuthors = append([]string{}, prefs.FavoriteAuthors...)
	return prefs
}

// SavePreferences replaces the stored preferences
func (p *Profile) SavePreferences(ctx context.Context, prefs Preferences) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs.FavoriteGenres = append([]string{}, prefs.FavoriteGenres...)
	prefs.FavoriteAuthors = append([]string{}, prefs.FavoriteAuthors...)
	p.preferences = withDefaults(prefs, p.preferences.UserName)
	p.store.Set(ctx, storage.KeyUserPreferences, p.preferences)
	p.logger.Info("Preferences saved", zap.String("user", p.preferences.UserName))
}

// Clear resets history, bookmarks and preferences
func (p *Profile) Clear(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = []string{}
	p.bookmarks = []models.BookRef{}
	p.preferences = withDefaults(Preferences{}, p.preferences.UserName)
	for _, key := range []string{storage.KeySearchHistory, storage.KeyBookmarks, storage.KeyUserPreferences} {
		p.store.Remove(ctx, key)
	}
}
