package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"bookshelf/internal/catalog"
	"bookshelf/internal/models"
	"bookshelf/internal/profile"
)

// Strategy names and their static relevance weights
const (
	StrategyGenre      = "genre"
	StrategyAuthor     = "author"
	StrategyAward      = "award"
	StrategyPopularity = "popularity"
	StrategyCurated    = "curated"

	weightGenre      = 0.9
	weightAuthor     = 0.85
	weightAward      = 0.75
	weightPopularity = 0.7
)

const (
	DefaultLimit       = 10
	defaultPerFetch    = 6
	topPreferenceCount = 5
	fetchedGenres      = 3
	fetchedAuthors     = 2

	awardQuery      = "award winning novel"
	popularityQuery = "bestseller"
)

// DefaultGenres seed recommendations when there is no reading history
var DefaultGenres = []string{"Fiction", "Mystery", "Science Fiction"}

// Preferences summarize what the user likes
type Preferences struct {
	FavoriteGenres  []string `json:"favoriteGenres"`
	FavoriteAuthors []string `json:"favoriteAuthors"`
}

// AgendaReader is the part of the agenda the engine reads
type AgendaReader interface {
	GetBooksByStatus(status models.Status) []models.AgendaItem
}

// PreferenceSource supplies explicitly saved preferences
type PreferenceSource interface {
	Preferences() profile.Preferences
}

// Config tunes recommendation output
type Config struct {
	Limit         int
	PerFetch      int
	DefaultGenres []string
	Fallback      []models.RecommendedBook
}

// Engine builds recommendations from the agenda and the book catalogs
type Engine struct {
	catalog catalog.Searcher
	agenda  AgendaReader
	prefs   PreferenceSource
	logger  *zap.Logger
	cfg     Config
}

// Option configures an Engine
type Option func(*Engine)

// WithConfig overrides limits, default genres and the fallback list; zero fields keep defaults
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.Limit > 0 {
			e.cfg.Limit = cfg.Limit
		}
		if cfg.PerFetch > 0 {
			e.cfg.PerFetch = cfg.PerFetch
		}
		if len(cfg.DefaultGenres) > 0 {
			e.cfg.DefaultGenres = append([]string{}, cfg.DefaultGenres...)
		}
		if len(cfg.Fallback) > 0 {
			e.cfg.Fallback = append([]models.RecommendedBook{}, cfg.Fallback...)
		}
	}
}

// WithPreferences adds saved preferences to the analyzed ones
func WithPreferences(prefs PreferenceSource) Option {
	return func(e *Engine) {
		e.prefs = prefs
	}
}

func NewEngine(searcher catalog.Searcher, agenda AgendaReader, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: searcher,
		agenda:  agenda,
		logger:  logger,
		cfg: Config{
			Limit:         DefaultLimit,
			PerFetch:      defaultPerFetch,
			DefaultGenres: DefaultGenres,
			Fallback:      CuratedFallback(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnalyzeUserPreferences counts categories and authors of finished books.
// Saved preferences follow the analyzed ones; the default genres are used when
// neither yields a genre.
func (e *Engine) AnalyzeUserPreferences() Preferences {
	genres := make(map[string]int)
	authors := make(map[string]int)
	for _, item := range e.agenda.GetBooksByStatus(models.StatusFinished) {
		for _, c := range item.Categories {
			genres[c]++
		}
		for _, a := range item.Authors {
			authors[a]++
		}
	}

	prefs := Preferences{
		FavoriteGenres:  topCounts(genres, topPreferenceCount),
		FavoriteAuthors: topCounts(authors, topPreferenceCount),
	}
	if e.prefs != nil {
		saved := e.prefs.Preferences()
		prefs.FavoriteGenres = appendUnique(prefs.FavoriteGenres, saved.FavoriteGenres...)
		prefs.FavoriteAuthors = appendUnique(prefs.FavoriteAuthors, saved.FavoriteAuthors...)
	}
	if len(prefs.FavoriteGenres) == 0 {
		prefs.FavoriteGenres = append([]string{}, e.cfg.DefaultGenres...)
	}
	return prefs
}

type fetch struct {
	strategy string
	weight   float64
	reason   string
	run      func(ctx context.Context) ([]models.BookRef, error)
}

func (e *Engine) plan(prefs Preferences) []fetch {
	var fetches []fetch
	for _, genre := range firstN(prefs.FavoriteGenres, fetchedGenres) {
		fetches = append(fetches, fetch{
			strategy: StrategyGenre,
			weight:   weightGenre,
			reason:   fmt.Sprintf("Because you enjoy %s", genre),
			run: func(ctx context.Context) ([]models.BookRef, error) {
				return e.catalog.SearchBySubject(ctx, genre, e.cfg.PerFetch)
			},
		})
	}
	for _, author := range firstN(prefs.FavoriteAuthors, fetchedAuthors) {
		fetches = append(fetches, fetch{
			strategy: StrategyAuthor,
			weight:   weightAuthor,
			reason:   fmt.Sprintf("More from %s", author),
			run: func(ctx context.Context) ([]models.BookRef, error) {
				return e.catalog.SearchByAuthor(ctx, author, e.cfg.PerFetch)
			},
		})
	}
	fetches = append(fetches,
		fetch{
			strategy: StrategyAward,
			weight:   weightAward,
			reason:   "Award-winning pick",
			run: func(ctx context.Context) ([]models.BookRef, error) {
				return e.catalog.SearchBooks(ctx, awardQuery, e.cfg.PerFetch)
			},
		},
		fetch{
			strategy: StrategyPopularity,
			weight:   weightPopularity,
			reason:   "Popular with readers",
			run: func(ctx context.Context) ([]models.BookRef, error) {
				return e.catalog.SearchBooks(ctx, popularityQuery, e.cfg.PerFetch)
			},
		},
	)
	return fetches
}

// GenerateRecommendations fetches candidates for every strategy concurrently.
// Failed fetches contribute nothing. Candidates are merged by id (first wins),
// books already on the agenda are dropped, and the rest are ranked by weight.
// When nothing is left the curated fallback list is returned.
func (e *Engine) GenerateRecommendations(ctx context.Context) []models.RecommendedBook {
	fetches := e.plan(e.AnalyzeUserPreferences())

	results := make([][]models.BookRef, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, f fetch) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("Recommendation fetch panicked", zap.String("strategy", f.strategy), zap.Any("panic", r))
				}
			}()

			books, err := f.run(ctx)
			if err != nil {
				e.logger.Warn("Recommendation fetch failed", zap.String("strategy", f.strategy), zap.Error(err))
				return
			}
			results[i] = books
		}(i, f)
	}
	wg.Wait()

	onAgenda := e.agendaBookIDs()
	seen := make(map[string]bool)
	var candidates []models.RecommendedBook
	for i, f := range fetches {
		for _, book := range results[i] {
			if book.ID == "" || seen[book.ID] {
				continue
			}
			seen[book.ID] = true
			if onAgenda.Has(book.ID) {
				continue
			}
			candidates = append(candidates, models.RecommendedBook{
				BookRef:        book,
				RelevanceScore: f.weight,
				Strategy:       f.strategy,
				Reason:         f.reason,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})
	if len(candidates) > e.cfg.Limit {
		candidates = candidates[:e.cfg.Limit]
	}

	if len(candidates) == 0 {
		e.logger.Info("No live recommendations, using curated list")
		return e.fallback()
	}

	e.logger.Debug("Recommendations generated", zap.Int("count", len(candidates)), zap.Int("fetches", len(fetches)))
	return candidates
}

func (e *Engine) fallback() []models.RecommendedBook {
	out := make([]models.RecommendedBook, 0, len(e.cfg.Fallback))
	for _, b := range e.cfg.Fallback {
		b.BookRef = b.BookRef.Clone()
		if b.Strategy == "" {
			b.Strategy = StrategyCurated
		}
		out = append(out, b)
	}
	if len(out) > e.cfg.Limit {
		out = out[:e.cfg.Limit]
	}
	return out
}

func (e *Engine) agendaBookIDs() models.StringSet {
	ids := models.NewStringSet()
	for _, status := range []models.Status{models.StatusToRead, models.StatusReading, models.StatusFinished} {
		for _, item := range e.agenda.GetBooksByStatus(status) {
			ids.Add(item.ID)
		}
	}
	return ids
}

// topCounts returns up to n keys ordered by count, ties broken alphabetically
func topCounts(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return firstN(keys, n)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func appendUnique(dst []string, values ...string) []string {
	seen := models.NewStringSet(dst...)
	for _, v := range values {
		if v != "" && seen.Add(v) {
			dst = append(dst, v)
		}
	}
	return dst
}
