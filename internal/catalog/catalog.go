package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bookshelf/internal/models"
)

var (
	ErrNotFound    = errors.New("book not found")
	ErrUnavailable = errors.New("catalog unavailable")
)

// Searcher is a book catalog normalised to BookRef
type Searcher interface {
	Name() string
	SearchBooks(ctx context.Context, query string, limit int) ([]models.BookRef, error)
	SearchBySubject(ctx context.Context, subject string, limit int) ([]models.BookRef, error)
	SearchByAuthor(ctx context.Context, author string, limit int) ([]models.BookRef, error)
	GetBookDetails(ctx context.Context, id string) (models.BookRef, error)
}

// Multi queries several catalogs concurrently. A failing catalog contributes no
// results; an error is returned only when every catalog failed.
type Multi struct {
	sources []Searcher
	logger  *zap.Logger
}

var _ Searcher = (*Multi)(nil)

func NewMulti(logger *zap.Logger, sources ...Searcher) *Multi {
	return &Multi{sources: sources, logger: logger}
}

func (m *Multi) Name() string {
	return "multi"
}

// Sources returns the wrapped catalogs
func (m *Multi) Sources() []Searcher {
	return append([]Searcher{}, m.sources...)
}

func (m *Multi) SearchBooks(ctx context.Context, query string, limit int) ([]models.BookRef, error) {
	return m.gather("search", func(s Searcher) ([]models.BookRef, error) {
		return s.SearchBooks(ctx, query, limit)
	})
}

func (m *Multi) SearchBySubject(ctx context.Context, subject string, limit int) ([]models.BookRef, error) {
	return m.gather("subject", func(s Searcher) ([]models.BookRef, error) {
		return s.SearchBySubject(ctx, subject, limit)
	})
}

func (m *Multi) SearchByAuthor(ctx context.Context, author string, limit int) ([]models.BookRef, error) {
	return m.gather("author", func(s Searcher) ([]models.BookRef, error) {
		return s.SearchByAuthor(ctx, author, limit)
	})
}

// GetBookDetails asks each catalog in order and returns the first hit
func (m *Multi) GetBookDetails(ctx context.Context, id string) (models.BookRef, error) {
	for _, s := range m.sources {
		book, err := s.GetBookDetails(ctx, id)
		if err == nil {
			return book, nil
		}
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("Catalog details lookup failed", zap.String("catalog", s.Name()), zap.String("id", id), zap.Error(err))
		}
	}
	return models.BookRef{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// gather runs fn against every source and merges results in source order,
// dropping books whose id was already seen
func (m *Multi) gather(op string, fn func(Searcher) ([]models.BookRef, error)) ([]models.BookRef, error) {
	results := make([][]models.BookRef, len(m.sources))
	errs := make([]error, len(m.sources))

	var wg sync.WaitGroup
	for i, s := range m.sources {
		wg.Add(1)
		go func(i int, s Searcher) {
			defer wg.Done()
			results[i], errs[i] = fn(s)
		}(i, s)
	}
	wg.Wait()

	failed := 0
	seen := make(map[string]bool)
	merged := []models.BookRef{}
	for i, s := range m.sources {
		if errs[i] != nil {
			failed++
			m.logger.Warn("Catalog request failed",
				zap.String("catalog", s.Name()),
				zap.String("op", op),
				zap.Error(errs[i]),
			)
			continue
		}
		for _, book := range results[i] {
			if book.ID == "" || seen[book.ID] {
				continue
			}
			seen[book.ID] = true
			merged = append(merged, book)
		}
	}

	if len(m.sources) > 0 && failed == len(m.sources) {
		return nil, fmt.Errorf("%w: all %d catalogs failed", ErrUnavailable, failed)
	}
	return merged, nil
}
