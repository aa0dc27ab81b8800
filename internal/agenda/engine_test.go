package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/stubs"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fixture struct {
	engine  *Engine
	store   *storage.Persistent
	backend *stubs.MemoryStore
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	backend := stubs.NewMemoryStore()
	store := storage.NewPersistent(ctx, backend, zap.NewNop())
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	engine := NewEngine(ctx, store, zap.NewNop(),
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs("item")),
	)
	return &fixture{engine: engine, store: store, backend: backend, clock: clock}
}

func dune() models.BookRef {
	return models.BookRef{
		ID:         "b1",
		Title:      "Dune",
		Authors:    []string{"Frank Herbert"},
		PageCount:  400,
		Categories: []string{"Science Fiction"},
	}
}

func intPtr(v int) *int { return &v }

// assertExclusive checks that no item id is present in more than one list
func assertExclusive(t *testing.T, e *Engine) {
	t.Helper()

	seen := make(map[string]models.Status)
	for _, status := range []models.Status{models.StatusToRead, models.StatusReading, models.StatusFinished} {
		for _, item := range e.GetBooksByStatus(status) {
			prev, dup := seen[item.ItemID]
			assert.False(t, dup, "item %s in both %s and %s", item.ItemID, prev, status)
			seen[item.ItemID] = status
		}
	}
}

func TestAddToReadingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}}, AddOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.PriorityMedium, item.Priority)
	assert.False(t, item.IsRead)
	assert.NotEmpty(t, item.ItemID)
	assert.Equal(t, f.clock.Now(), item.DateAdded)

	toRead := f.engine.GetBooksByStatus(models.StatusToRead)
	require.Len(t, toRead, 1)
	assert.Equal(t, "Dune", toRead[0].Title)
	assert.Equal(t, item.ItemID, toRead[0].ItemID)
}

func TestAddToReadingList_Validation(t *testing.T) {
	testCases := []struct {
		name string
		book models.BookRef
		opts AddOptions
	}{
		{name: "missing id", book: models.BookRef{Title: "Dune"}},
		{name: "missing title", book: models.BookRef{ID: "b1"}},
		{name: "blank title", book: models.BookRef{ID: "b1", Title: "   "}},
		{name: "unknown priority", book: models.BookRef{ID: "b1", Title: "Dune"}, opts: AddOptions{Priority: "urgent"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.engine.AddToReadingList(context.Background(), tc.book, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, f.engine.GetBooksByStatus(models.StatusToRead))
		})
	}
}

func TestAddToReadingList_UpsertsUnreadBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{Notes: "first"})
	require.NoError(t, err)

	second, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{Notes: "latest", Priority: models.PriorityHigh})
	require.NoError(t, err)

	assert.Equal(t, first.ItemID, second.ItemID)

	toRead := f.engine.GetBooksByStatus(models.StatusToRead)
	require.Len(t, toRead, 1)
	assert.Equal(t, "latest", toRead[0].Notes)
	assert.Equal(t, models.PriorityHigh, toRead[0].Priority)
}

func TestAddToReadingList_ReturnsCopy(t *testing.T) {
	f := newFixture(t)

	item, err := f.engine.AddToReadingList(context.Background(), dune(), AddOptions{})
	require.NoError(t, err)

	item.Authors[0] = "Someone Else"
	item.Notes = "mutated"

	stored := f.engine.GetBooksByStatus(models.StatusToRead)[0]
	assert.Equal(t, []string{"Frank Herbert"}, stored.Authors)
	assert.Empty(t, stored.Notes)
}

func TestStartReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)

	assert.True(t, f.engine.StartReading(ctx, item.ItemID, 0))

	assert.Empty(t, f.engine.GetBooksByStatus(models.StatusToRead))
	reading := f.engine.GetBooksByStatus(models.StatusReading)
	require.Len(t, reading, 1)
	assert.Equal(t, item.ItemID, reading[0].ItemID)
	assert.Equal(t, 0, reading[0].CurrentPage)
	require.NotNil(t, reading[0].StartDate)
	assert.Empty(t, reading[0].ReadingSessions)

	// Second start fails: the item is no longer on the to-read list
	assert.False(t, f.engine.StartReading(ctx, item.ItemID, 0))
	assert.False(t, f.engine.StartReading(ctx, "missing", 0))
	assertExclusive(t, f.engine)
}

func TestStartReading_ClampsInitialPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 9000))

	reading, _, ok := f.engine.FindItem(item.ItemID)
	require.True(t, ok)
	assert.Equal(t, 400, reading.CurrentPage)
}

func TestAddReadingSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))

	assert.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 50, 30))

	reading, status, ok := f.engine.FindItem(item.ItemID)
	require.True(t, ok)
	assert.Equal(t, models.StatusReading, status)
	assert.Equal(t, 50, reading.CurrentPage)
	require.Len(t, reading.ReadingSessions, 1)
	assert.Equal(t, 0, reading.ReadingSessions[0].StartPage)
	assert.Equal(t, 50, reading.ReadingSessions[0].EndPage)

	stats := f.engine.GetStats()
	assert.GreaterOrEqual(t, stats.ReadingTimePerWeek, 30)
	assert.Equal(t, 1, stats.ReadingStreak)
}

func TestAddReadingSession_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)

	// Not started yet
	assert.False(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 10))

	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	assert.False(t, f.engine.AddReadingSession(ctx, item.ItemID, 0, 10))
	assert.False(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, -1))
	assert.False(t, f.engine.AddReadingSession(ctx, "missing", 10, 10))

	reading, _, _ := f.engine.FindItem(item.ItemID)
	assert.Empty(t, reading.ReadingSessions)
}

func TestAddReadingSession_NeverPassesPageCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 350))

	for _, pages := range []int{30, 1000, 1} {
		require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, pages, 5))
		reading, _, _ := f.engine.FindItem(item.ItemID)
		assert.LessOrEqual(t, reading.CurrentPage, reading.PageCount)
	}

	reading, _, _ := f.engine.FindItem(item.ItemID)
	assert.Equal(t, 400, reading.CurrentPage)
}

func TestAddReadingSession_UnknownPageCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b9", Title: "Zine"}, AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 1200, 60))

	reading, _, _ := f.engine.FindItem(item.ItemID)
	assert.Equal(t, 1200, reading.CurrentPage)
}

func TestFinishReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	earlier, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b0", Title: "Emma"}, AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, earlier.ItemID, 0))
	require.True(t, f.engine.FinishReading(ctx, earlier.ItemID, FinishOptions{Rating: intPtr(3)}))

	before := f.engine.GetStats()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 50, 30))
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 70, 45))

	assert.True(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{Rating: intPtr(5), Review: "Spice"}))

	assert.Empty(t, f.engine.GetBooksByStatus(models.StatusReading))
	finished, status, ok := f.engine.FindItem(item.ItemID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, status)
	assert.True(t, finished.IsRead)
	assert.Equal(t, 75, finished.ReadingTime)
	assert.Equal(t, "Spice", finished.Review)
	assert.Equal(t, 5, *finished.Rating)
	assert.Len(t, finished.ReadingSessions, 2, "sessions are retained")

	after := f.engine.GetStats()
	assert.Equal(t, before.TotalBooksRead+1, after.TotalBooksRead)
	assert.Equal(t, 4.0, after.AverageRating)
	assert.Equal(t, 2, after.BooksReadThisYear)
	assert.Equal(t, []string{"Science Fiction"}, after.FavoriteGenres)
	assertExclusive(t, f.engine)
}

func TestFinishReading_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)

	assert.False(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{}), "not started")

	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	assert.False(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{Rating: intPtr(6)}))
	assert.False(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{Rating: intPtr(0)}))

	_, status, _ := f.engine.FindItem(item.ItemID)
	assert.Equal(t, models.StatusReading, status)
}

func TestLifecycle_ListExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: fmt.Sprintf("b%d", i), Title: fmt.Sprintf("Book %d", i)}, AddOptions{})
		require.NoError(t, err)
		ids = append(ids, item.ItemID)
		assertExclusive(t, f.engine)
	}

	for _, id := range ids[:3] {
		require.True(t, f.engine.StartReading(ctx, id, 0))
		assertExclusive(t, f.engine)
	}
	for _, id := range ids[:2] {
		require.True(t, f.engine.AddReadingSession(ctx, id, 10, 10))
		require.True(t, f.engine.FinishReading(ctx, id, FinishOptions{}))
		assertExclusive(t, f.engine)
	}

	// Re-adding a finished book creates a new to-read item, never a duplicate id
	_, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b0", Title: "Book 0"}, AddOptions{})
	require.NoError(t, err)
	assertExclusive(t, f.engine)

	assert.Len(t, f.engine.GetBooksByStatus(models.StatusToRead), 2)
	assert.Len(t, f.engine.GetBooksByStatus(models.StatusReading), 1)
	assert.Len(t, f.engine.GetBooksByStatus(models.StatusFinished), 2)
}

func TestRemoveAndUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)

	high := models.PriorityHigh
	notes := "gift from Ana"
	assert.True(t, f.engine.UpdateItem(ctx, item.ItemID, ItemUpdate{Priority: &high, Notes: &notes}))

	updated, _, _ := f.engine.FindItem(item.ItemID)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, notes, updated.Notes)

	bogus := models.Priority("urgent")
	assert.False(t, f.engine.UpdateItem(ctx, item.ItemID, ItemUpdate{Priority: &bogus}))
	assert.False(t, f.engine.UpdateItem(ctx, "missing", ItemUpdate{Notes: &notes}))

	assert.True(t, f.engine.RemoveFromReadingList(ctx, item.ItemID))
	assert.False(t, f.engine.RemoveFromReadingList(ctx, item.ItemID))
	_, _, ok := f.engine.FindItem(item.ItemID)
	assert.False(t, ok)
}

func TestReadingStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b1", Title: "Long Book", PageCount: 5000}, AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))

	// Three consecutive days
	for i := 0; i < 3; i++ {
		require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 20))
		f.clock.Advance(24 * time.Hour)
	}
	// Today has no session yet
	assert.Equal(t, 0, f.engine.GetStats().ReadingStreak)

	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 20))
	assert.Equal(t, 4, f.engine.GetStats().ReadingStreak)

	// Two sessions on the same day count once
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 20))
	assert.Equal(t, 4, f.engine.GetStats().ReadingStreak)

	// A gap resets the streak
	f.clock.Advance(48 * time.Hour)
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 20))
	assert.Equal(t, 1, f.engine.GetStats().ReadingStreak)
}

func TestReadingTimePerWeek_TrailingWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "b1", Title: "Long Book"}, AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))

	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 40))
	f.clock.Advance(8 * 24 * time.Hour)
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 10, 15))

	assert.Equal(t, 15, f.engine.GetStats().ReadingTimePerWeek)
}

func TestReadingGoal_CompletesWithinPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goal, err := f.engine.SetReadingGoal(ctx, 1, models.TimeframeMonth, "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), goal.StartDate)
	assert.True(t, goal.EndDate.Before(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, f.engine.GetActiveGoals(), 1)

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	require.True(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{}))

	goals := f.engine.GetGoals()
	require.Len(t, goals, 1)
	assert.True(t, goals[0].IsCompleted)
	assert.Equal(t, 100, goals[0].Progress)
	assert.Equal(t, 1, goals[0].BooksCompleted)
	assert.Equal(t, 1, f.engine.GetStats().GoalsCompleted)
	assert.Empty(t, f.engine.GetActiveGoals())
}

func TestReadingGoal_IgnoresBooksOutsidePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SetReadingGoal(ctx, 2, models.TimeframeQuarter, "Spring reading")
	require.NoError(t, err)

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))

	lastYear := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	require.True(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{FinishDate: &lastYear}))

	goal := f.engine.GetGoals()[0]
	assert.Equal(t, 0, goal.BooksCompleted)
	assert.False(t, goal.IsCompleted)
	assert.Equal(t, 0, f.engine.GetStats().BooksReadThisYear)
}

func TestCheckGoalCompletion_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		item, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: fmt.Sprintf("b%d", i), Title: "Book"}, AddOptions{})
		require.NoError(t, err)
		require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
		require.True(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{}))
	}

	// Already satisfied when created
	_, err := f.engine.SetReadingGoal(ctx, 2, models.TimeframeYear, "")
	require.NoError(t, err)
	_, err = f.engine.SetReadingGoal(ctx, 5, models.TimeframeYear, "")
	require.NoError(t, err)

	goalsBefore := f.engine.GetGoals()
	statsBefore := f.engine.GetStats()
	assert.Equal(t, 1, statsBefore.GoalsCompleted)

	assert.Equal(t, 0, f.engine.CheckGoalCompletion(ctx))
	assert.Equal(t, 0, f.engine.CheckGoalCompletion(ctx))

	assert.Equal(t, goalsBefore, f.engine.GetGoals())
	assert.Equal(t, statsBefore.GoalsCompleted, f.engine.GetStats().GoalsCompleted)
	assert.Equal(t, 40, f.engine.GetGoals()[1].Progress)
}

func TestSetReadingGoal_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SetReadingGoal(ctx, 0, models.TimeframeMonth, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.SetReadingGoal(ctx, 3, "decade", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, f.engine.GetGoals())
}

func TestPeriod(t *testing.T) {
	now := time.Date(2026, 8, 17, 15, 4, 5, 0, time.UTC)

	testCases := []struct {
		timeframe models.Timeframe
		start     time.Time
		next      time.Time
	}{
		{models.TimeframeMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{models.TimeframeQuarter, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{models.TimeframeYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(string(tc.timeframe), func(t *testing.T) {
			start, end := period(now, tc.timeframe)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.next.Add(-time.Nanosecond), end)
		})
	}
}

func TestAgendaSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddToReadingList(ctx, models.BookRef{ID: "low", Title: "Low"}, AddOptions{Priority: models.PriorityLow})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.engine.AddToReadingList(ctx, models.BookRef{ID: "med", Title: "Medium"}, AddOptions{})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.engine.AddToReadingList(ctx, models.BookRef{ID: "high", Title: "High"}, AddOptions{Priority: models.PriorityHigh})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.engine.AddToReadingList(ctx, models.BookRef{ID: "med2", Title: "Medium 2"}, AddOptions{})
	require.NoError(t, err)

	summary := f.engine.GetAgendaSummary()
	assert.Equal(t, 4, summary.ToRead)
	assert.Equal(t, 1, summary.HighPriority)
	require.Len(t, summary.NextUp, 3)
	assert.Equal(t, "High", summary.NextUp[0].Title)
	assert.Equal(t, "Medium", summary.NextUp[1].Title)
	assert.Equal(t, "Medium 2", summary.NextUp[2].Title)
}

func TestEngine_ReloadsFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 10))
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 20, 15))

	reloaded := NewEngine(ctx, f.store, zap.NewNop(), WithClock(f.clock.Now))

	reading := reloaded.GetBooksByStatus(models.StatusReading)
	require.Len(t, reading, 1)
	assert.Equal(t, item.ItemID, reading[0].ItemID)
	assert.Equal(t, 30, reading[0].CurrentPage)
	assert.Len(t, reading[0].ReadingSessions, 1)
	assert.Equal(t, 15, reloaded.GetStats().ReadingTimePerWeek)
}

func TestEngine_CorruptStoredAgendaFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	backend := stubs.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, storage.KeyReadingAgenda, []byte(`{"toReadList": "nope"}`)))
	store := storage.NewPersistent(ctx, backend, zap.NewNop())

	e := NewEngine(ctx, store, zap.NewNop())
	assert.Empty(t, e.GetBooksByStatus(models.StatusToRead))

	_, err := e.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	assert.Len(t, e.GetBooksByStatus(models.StatusToRead), 1)
}

func TestEngine_WorksWithoutPersistence(t *testing.T) {
	ctx := context.Background()
	backend := stubs.NewMemoryStore(stubs.WithQuota(64))
	store := storage.NewPersistent(ctx, backend, zap.NewNop())
	e := NewEngine(ctx, store, zap.NewNop())

	item, err := e.AddToReadingList(ctx, dune(), AddOptions{Notes: "too large to persist in 64 bytes"})
	require.NoError(t, err)
	assert.True(t, e.StartReading(ctx, item.ItemID, 0))
	assert.True(t, e.AddReadingSession(ctx, item.ItemID, 10, 10))
	assert.True(t, store.Degraded())
	assert.Len(t, e.GetBooksByStatus(models.StatusReading), 1)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)

	f.engine.Clear(ctx)
	assert.Empty(t, f.engine.GetBooksByStatus(models.StatusToRead))

	_, err = f.backend.Get(ctx, storage.KeyReadingAgenda)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExportImport_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
	require.NoError(t, err)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	require.True(t, f.engine.FinishReading(ctx, item.ItemID, FinishOptions{Rating: intPtr(4)}))
	_, err = f.engine.SetReadingGoal(ctx, 3, models.TimeframeYear, "")
	require.NoError(t, err)

	exported, err := f.engine.ExportAgendaData()
	require.NoError(t, err)

	other := newFixture(t)
	require.True(t, other.engine.ImportAgendaData(ctx, exported))

	assert.Equal(t, f.engine.GetBooksByStatus(models.StatusFinished)[0].ItemID, other.engine.GetBooksByStatus(models.StatusFinished)[0].ItemID)
	assert.Equal(t, 4.0, other.engine.GetStats().AverageRating)
	assert.Len(t, other.engine.GetGoals(), 1)
}

func TestImportAgendaData_Rejections(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "malformed", data: `{"version":`},
		{name: "missing version", data: `{"agenda":{"toReadList":[]}}`},
		{name: "unknown version", data: `{"version":"9.9","agenda":{"toReadList":[]}}`},
		{name: "missing agenda", data: `{"version":"1.0"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.engine.AddToReadingList(ctx, dune(), AddOptions{})
			require.NoError(t, err)

			assert.False(t, f.engine.ImportAgendaData(ctx, tc.data))
			assert.Len(t, f.engine.GetBooksByStatus(models.StatusToRead), 1, "state must be untouched")
		})
	}
}

func TestImportAgendaData_MergesIntoDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := `{
		"version": "1.0",
		"agenda": {
			"toReadList": [
				{"id": "b1", "title": "Dune", "itemId": "dup"},
				null,
				{"id": "b2", "title": "Emma"}
			],
			"finishedBooks": [{"id": "b3", "title": "Ulysses", "itemId": "dup"}]
		}
	}`
	require.True(t, f.engine.ImportAgendaData(ctx, data))

	toRead := f.engine.GetBooksByStatus(models.StatusToRead)
	require.Len(t, toRead, 2)
	assert.NotEmpty(t, toRead[1].ItemID, "missing ids are generated")
	assert.Empty(t, f.engine.GetBooksByStatus(models.StatusReading))
	assert.Empty(t, f.engine.GetBooksByStatus(models.StatusFinished), "duplicate ids are dropped")
	assert.NotNil(t, f.engine.GetGoals())
	assertExclusive(t, f.engine)
}

func TestImportAgendaData_RederivesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := `{
		"version": "1.0",
		"agenda": {
			"currentlyReading": [
				{"id": "b1", "title": "Dune", "pageCount": 400, "itemId": "i1", "currentPage": 900}
			],
			"finishedBooks": [
				{"id": "b2", "title": "Emma", "itemId": "i2", "isRead": true, "finishDate": "2026-03-05T12:00:00Z"}
			],
			"readingGoals": [
				{
					"goalId": "g1",
					"targetBooks": 1,
					"timeframe": "month",
					"startDate": "2026-03-01T00:00:00Z",
					"endDate": "2026-03-31T23:59:59.999999999Z",
					"isCompleted": false
				}
			],
			"readingStats": {"goalsCompleted": 7}
		}
	}`
	require.True(t, f.engine.ImportAgendaData(ctx, data))

	reading := f.engine.GetBooksByStatus(models.StatusReading)
	require.Len(t, reading, 1)
	assert.Equal(t, 400, reading[0].CurrentPage)

	goals := f.engine.GetGoals()
	require.Len(t, goals, 1)
	assert.Equal(t, 1, goals[0].BooksCompleted)
	assert.True(t, goals[0].IsCompleted)
	assert.Equal(t, 100, goals[0].Progress)
	assert.Empty(t, f.engine.GetActiveGoals())
	assert.Equal(t, 1, f.engine.GetStats().GoalsCompleted)

	reloaded := NewEngine(ctx, f.store, zap.NewNop(), WithClock(f.clock.Now))
	assert.Equal(t, 1, reloaded.GetStats().GoalsCompleted)
}

func TestExportAgendaData_Golden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := models.BookRef{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}, PageCount: 412, Categories: []string{"Science Fiction"}}
	second := models.BookRef{ID: "b2", Title: "Emma", Authors: []string{"Jane Austen"}, Categories: []string{"Fiction"}}

	item, err := f.engine.AddToReadingList(ctx, first, AddOptions{Priority: models.PriorityHigh, Notes: "Reread"})
	require.NoError(t, err)
	_, err = f.engine.AddToReadingList(ctx, second, AddOptions{})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.True(t, f.engine.StartReading(ctx, item.ItemID, 0))
	f.clock.Advance(30 * time.Minute)
	require.True(t, f.engine.AddReadingSession(ctx, item.ItemID, 50, 30))

	exported, err := f.engine.ExportAgendaData()
	require.NoError(t, err)

	// Canonical form: sorted keys, two-space indent
	var doc any
	require.NoError(t, json.Unmarshal([]byte(exported), &doc))
	canonical, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "agenda_export", append(canonical, '\n'))
}
