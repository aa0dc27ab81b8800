package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

// ErrInvalidInput is returned when a command is rejected before any state changes
var ErrInvalidInput = errors.New("invalid input")

// Agenda is the persisted reading state
type Agenda struct {
	ToReadList       []*models.AgendaItem  `json:"toReadList"`
	CurrentlyReading []*models.AgendaItem  `json:"currentlyReading"`
	FinishedBooks    []*models.AgendaItem  `json:"finishedBooks"`
	ReadingGoals     []*models.ReadingGoal `json:"readingGoals"`
	ReadingStats     models.ReadingStats   `json:"readingStats"`
}

func defaultAgenda() *Agenda {
	return &Agenda{
		ToReadList:       []*models.AgendaItem{},
		CurrentlyReading: []*models.AgendaItem{},
		FinishedBooks:    []*models.AgendaItem{},
		ReadingGoals:     []*models.ReadingGoal{},
		ReadingStats:     models.ReadingStats{FavoriteGenres: []string{}},
	}
}

// AddOptions are the optional fields of AddToReadingList
type AddOptions struct {
	Priority        models.Priority
	Notes           string
	PlannedReadDate *time.Time
}

// FinishOptions are the optional fields of FinishReading
type FinishOptions struct {
	Rating     *int
	Review     string
	FinishDate *time.Time
}

// ItemUpdate changes the editable fields of an item; nil fields are left alone
type ItemUpdate struct {
	Priority        *models.Priority
	Notes           *string
	PlannedReadDate *time.Time
}

// Engine owns the reading agenda: the three lists, goals and derived statistics.
// Every mutating call persists the agenda before returning.
type Engine struct {
	mu     sync.Mutex
	store  *storage.Persistent
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	agenda *Agenda
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how item and goal ids are generated
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine and loads the agenda from the store
func NewEngine(ctx context.Context, store *storage.Persistent, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  models.NewID,
	}
	for _, opt := range opts {
		opt(e)
	}

	loaded := defaultAgenda()
	if store.Get(ctx, storage.KeyReadingAgenda, loaded) {
		e.agenda = mergeIntoDefaults(loaded)
	} else {
		e.agenda = defaultAgenda()
	}
	e.recomputeStats(e.now())

	logger.Debug("Agenda loaded",
		zap.Int("to_read", len(e.agenda.ToReadList)),
		zap.Int("reading", len(e.agenda.CurrentlyReading)),
		zap.Int("finished", len(e.agenda.FinishedBooks)),
	)
	return e
}

// persist saves the agenda; callers hold e.mu
func (e *Engine) persist(ctx context.Context) {
	if !e.store.Set(ctx, storage.KeyReadingAgenda, e.agenda) {
		e.logger.Warn("Agenda kept in memory only")
	}
}

// AddToReadingList puts a book on the to-read list.
// An unread item for the same book already on the list is updated in place.
func (e *Engine) AddToReadingList(ctx context.Context, book models.BookRef, opts AddOptions) (models.AgendaItem, error) {
	book.ID = strings.TrimSpace(book.ID)
	book.Title = strings.TrimSpace(book.Title)
	if book.ID == "" || book.Title == "" {
		return models.AgendaItem{}, fmt.Errorf("%w: book id and title are required", ErrInvalidInput)
	}

	priority := opts.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.AgendaItem{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, opts.Priority)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	for _, existing := range e.agenda.ToReadList {
		if existing.ID != book.ID || existing.IsRead {
			continue
		}
		mergeBook(&existing.BookRef, book)
		if opts.Priority != "" {
			existing.Priority = priority
		}
		if opts.Notes != "" {
			existing.Notes = opts.Notes
		}
		if opts.PlannedReadDate != nil {
			planned := *opts.PlannedReadDate
			existing.PlannedReadDate = &planned
		}
		e.recomputeStats(now)
		e.persist(ctx)

		e.logger.Info("Updated book on reading list",
			zap.String("item_id", existing.ItemID),
			zap.String("book_id", book.ID),
		)
		return existing.Clone(), nil
	}

	item := &models.AgendaItem{
		BookRef:   book.Clone(),
		ItemID:    e.newID(),
		Priority:  priority,
		DateAdded: now,
		Notes:     opts.Notes,
	}
	if opts.PlannedReadDate != nil {
		planned := *opts.PlannedReadDate
		item.PlannedReadDate = &planned
	}

	e.agenda.ToReadList = append(e.agenda.ToReadList, item)
	e.recomputeStats(now)
	e.persist(ctx)

	e.logger.Info("Added book to reading list",
		zap.String("item_id", item.ItemID),
		zap.String("book_id", book.ID),
		zap.String("title", book.Title),
	)
	return item.Clone(), nil
}

// mergeBook copies the non-empty fields of src over dst
func mergeBook(dst *models.BookRef, src models.BookRef) {
	dst.Title = src.Title
	if len(src.Authors) > 0 {
		dst.Authors = append([]string{}, src.Authors...)
	}
	if src.Thumbnail != "" {
		dst.Thumbnail = src.Thumbnail
	}
	if src.PageCount > 0 {
		dst.PageCount = src.PageCount
	}
	if src.PublishedDate != "" {
		dst.PublishedDate = src.PublishedDate
	}
	if len(src.Categories) > 0 {
		dst.Categories = append([]string{}, src.Categories...)
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Source != "" {
		dst.Source = src.Source
	}
}

// StartReading moves an item from the to-read list to the currently-reading list
func (e *Engine) StartReading(ctx context.Context, itemID string, currentPage int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, rest := take(e.agenda.ToReadList, itemID)
	if item == nil {
		e.logger.Warn("Cannot start reading: item not on to-read list", zap.String("item_id", itemID))
		return false
	}
	e.agenda.ToReadList = rest

	now := e.now()
	started := now
	item.StartDate = &started
	lastRead := now
	item.LastRead = &lastRead
	item.CurrentPage = clampPage(currentPage, item.PageCount)
	item.ReadingSessions = []models.ReadingSession{}

	e.agenda.CurrentlyReading = append(e.agenda.CurrentlyReading, item)
	e.recomputeStats(now)
	e.persist(ctx)

	e.logger.Info("Started reading",
		zap.String("item_id", itemID),
		zap.String("title", item.Title),
		zap.Int("current_page", item.CurrentPage),
	)
	return true
}

// AddReadingSession logs a sitting for a book being read.
// The current page never moves past the page count when it is known.
func (e *Engine) AddReadingSession(ctx context.Context, itemID string, pagesRead, minutesSpent int) bool {
	if pagesRead <= 0 || minutesSpent < 0 {
		e.logger.Warn("Rejected reading session",
			zap.String("item_id", itemID),
			zap.Int("pages_read", pagesRead),
			zap.Int("minutes_spent", minutesSpent),
		)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item := find(e.agenda.CurrentlyReading, itemID)
	if item == nil {
		e.logger.Warn("Cannot log session: item not being read", zap.String("item_id", itemID))
		return false
	}

	now := e.now()
	startPage := item.CurrentPage
	endPage := clampPage(startPage+pagesRead, item.PageCount)

	item.ReadingSessions = append(item.ReadingSessions, models.ReadingSession{
		Date:         now,
		PagesRead:    pagesRead,
		MinutesSpent: minutesSpent,
		StartPage:    startPage,
		EndPage:      endPage,
	})
	item.CurrentPage = endPage
	lastRead := now
	item.LastRead = &lastRead

	e.recomputeStats(now)
	e.persist(ctx)

	e.logger.Info("Logged reading session",
		zap.String("item_id", itemID),
		zap.Int("pages_read", pagesRead),
		zap.Int("minutes_spent", minutesSpent),
		zap.Int("current_page", endPage),
	)
	return true
}

// FinishReading moves an item from the currently-reading list to the finished list
func (e *Engine) FinishReading(ctx context.Context, itemID string, opts FinishOptions) bool {
	if opts.Rating != nil && (*opts.Rating < 1 || *opts.Rating > 5) {
		e.logger.Warn("Rejected rating outside 1-5", zap.String("item_id", itemID), zap.Int("rating", *opts.Rating))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item, rest := take(e.agenda.CurrentlyReading, itemID)
	if item == nil {
		e.logger.Warn("Cannot finish: item not being read", zap.String("item_id", itemID))
		return false
	}
	e.agenda.CurrentlyReading = rest

	now := e.now()
	finished := now
	if opts.FinishDate != nil {
		finished = *opts.FinishDate
	}
	item.FinishDate = &finished
	item.IsRead = true
	item.Review = opts.Review
	if opts.Rating != nil {
		rating := *opts.Rating
		item.Rating = &rating
	}

	minutes := 0
	for _, s := range item.ReadingSessions {
		minutes += s.MinutesSpent
	}
	item.ReadingTime = minutes
	if item.PageCount > 0 {
		item.CurrentPage = item.PageCount
	}

	e.agenda.FinishedBooks = append(e.agenda.FinishedBooks, item)
	e.checkGoals()
	e.recomputeStats(now)
	e.persist(ctx)

	e.logger.Info("Finished reading",
		zap.String("item_id", itemID),
		zap.String("title", item.Title),
		zap.Int("reading_time", minutes),
	)
	return true
}

// RemoveFromReadingList deletes an item from whichever list holds it
func (e *Engine) RemoveFromReadingList(ctx context.Context, itemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := false
	for _, list := range e.lists() {
		if item, rest := take(*list, itemID); item != nil {
			*list = rest
			removed = true
			break
		}
	}
	if !removed {
		return false
	}

	e.recomputeStats(e.now())
	e.persist(ctx)
	e.logger.Info("Removed item from agenda", zap.String("item_id", itemID))
	return true
}

// UpdateItem edits priority, notes or planned date of an item in any list
func (e *Engine) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) bool {
	if update.Priority != nil && !update.Priority.Valid() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var item *models.AgendaItem
	for _, list := range e.lists() {
		if item = find(*list, itemID); item != nil {
			break
		}
	}
	if item == nil {
		return false
	}

	if update.Priority != nil {
		item.Priority = *update.Priority
	}
	if update.Notes != nil {
		item.Notes = *update.Notes
	}
	if update.PlannedReadDate != nil {
		planned := *update.PlannedReadDate
		item.PlannedReadDate = &planned
	}

	e.persist(ctx)
	return true
}

// Clear drops the whole agenda
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.agenda = defaultAgenda()
	e.store.Remove(ctx, storage.KeyReadingAgenda)
	e.logger.Info("Agenda cleared")
}

// lists returns the three item lists in lifecycle order
func (e *Engine) lists() []*[]*models.AgendaItem {
	return []*[]*models.AgendaItem{
		&e.agenda.ToReadList,
		&e.agenda.CurrentlyReading,
		&e.agenda.FinishedBooks,
	}
}

func find(list []*models.AgendaItem, itemID string) *models.AgendaItem {
	for _, item := range list {
		if item.ItemID == itemID {
			return item
		}
	}
	return nil
}

// take removes the item from list, returning it and the remaining list
func take(list []*models.AgendaItem, itemID string) (*models.AgendaItem, []*models.AgendaItem) {
	for i, item := range list {
		if item.ItemID == itemID {
			rest := append(list[:i:i], list[i+1:]...)
			return item, rest
		}
	}
	return nil, list
}

func clampPage(page, pageCount int) int {
	if page < 0 {
		return 0
	}
	if pageCount > 0 && page > pageCount {
		return pageCount
	}
	return page
}
