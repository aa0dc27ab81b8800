package storage

import (
	"context"
	"errors"
)

// Well-known keys of the persisted state layout
const (
	KeyDiscussions     = "bookDiscussions"
	KeyReadingAgenda   = "readingAgenda"
	KeyUserPreferences = "userPreferences"
	KeySearchHistory   = "searchHistory"
	KeyBookmarks       = "bookmarks"
)

// AllKeys lists every key the application writes
var AllKeys = []string{
	KeyDiscussions,
	KeyReadingAgenda,
	KeyUserPreferences,
	KeySearchHistory,
	KeyBookmarks,
}

var (
	// ErrNotFound is returned by Get when the key holds no value
	ErrNotFound = errors.New("storage: key not found")

	// ErrQuotaExceeded is returned by backends that refuse a write for lack of space
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Storage defines the key-value operations every backend provides
type Storage interface {
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Remove deletes key. Removing a missing key is not an error
	Remove(ctx context.Context, key string) error

	// Keys returns all stored keys in sorted order
	Keys(ctx context.Context) ([]string, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
