package models

import "time"

// Priority of a book on the reading list
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status names the agenda list an item lives in
type Status string

const (
	StatusToRead   Status = "toRead"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
)

// Timeframe of a reading goal
type Timeframe string

const (
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
)

// Valid reports whether t is one of the known timeframes
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return true
	}
	return false
}

// AgendaItem is a book on the user's agenda.
// Reading fields are set once the item is started, finish fields once it is finished.
type AgendaItem struct {
	BookRef
	ItemID          string     `json:"itemId"`
	Priority        Priority   `json:"priority"`
	DateAdded       time.Time  `json:"dateAdded"`
	Notes           string     `json:"notes"`
	PlannedReadDate *time.Time `json:"plannedReadDate,omitempty"`
	IsRead          bool       `json:"isRead"`

	StartDate       *time.Time       `json:"startDate,omitempty"`
	CurrentPage     int              `json:"currentPage"`
	LastRead        *time.Time       `json:"lastRead,omitempty"`
	ReadingSessions []ReadingSession `json:"readingSessions,omitempty"`

	FinishDate  *time.Time `json:"finishDate,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
	Review      string     `json:"review,omitempty"`
	ReadingTime int        `json:"readingTime,omitempty"`
}

// Clone returns a deep copy of the item
func (i AgendaItem) Clone() AgendaItem {
	out := i
	out.BookRef = i.BookRef.Clone()
	out.PlannedReadDate = cloneTime(i.PlannedReadDate)
	out.StartDate = cloneTime(i.StartDate)
	out.LastRead = cloneTime(i.LastRead)
	out.FinishDate = cloneTime(i.FinishDate)
	if i.Rating != nil {
		r := *i.Rating
		out.Rating = &r
	}
	if i.ReadingSessions != nil {
		out.ReadingSessions = append([]ReadingSession{}, i.ReadingSessions...)
	}
	return out
}

// ReadingSession records one sitting with a book
type ReadingSession struct {
	Date         time.Time `json:"date"`
	PagesRead    int       `json:"pagesRead"`
	MinutesSpent int       `json:"minutesSpent"`
	StartPage    int       `json:"startPage"`
	EndPage      int       `json:"endPage"`
}

// ReadingGoal is a target number of books within a period.
// BooksCompleted, Progress and IsCompleted are derived from the finished list.
type ReadingGoal struct {
	GoalID         string    `json:"goalId"`
	TargetBooks    int       `json:"targetBooks"`
	Timeframe      Timeframe `json:"timeframe"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Description    string    `json:"description"`
	BooksCompleted int       `json:"booksCompleted"`
	IsCompleted    bool      `json:"isCompleted"`
	Progress       int       `json:"progress"`
}

// ReadingStats is a derived aggregate over the agenda lists
type ReadingStats struct {
	BooksReadThisYear  int      `json:"booksReadThisYear"`
	PagesReadThisYear  int      `json:"pagesReadThisYear"`
	ReadingStreak      int      `json:"readingStreak"`
	AverageRating      float64  `json:"averageRating"`
	FavoriteGenres     []string `json:"favoriteGenres"`
	ReadingTimePerWeek int      `json:"readingTimePerWeek"`
	GoalsCompleted     int      `json:"goalsCompleted"`
	TotalBooksRead     int      `json:"totalBooksRead"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
