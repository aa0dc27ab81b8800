package agenda

import (
	"sort"

	"bookshelf/internal/models"
)

// Summary is a compact overview of the agenda for display
type Summary struct {
	ToRead       int                 `json:"toRead"`
	Reading      int                 `json:"reading"`
	Finished     int                 `json:"finished"`
	HighPriority int                 `json:"highPriority"`
	ActiveGoals  int                 `json:"activeGoals"`
	NextUp       []models.AgendaItem `json:"nextUp"`
	Stats        models.ReadingStats `json:"stats"`
}

const nextUpCount = 3

// GetBooksByStatus returns copies of the items in the given list
func (e *Engine) GetBooksByStatus(status models.Status) []models.AgendaItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	var list []*models.AgendaItem
	switch status {
	case models.StatusToRead:
		list = e.agenda.ToReadList
	case models.StatusReading:
		list = e.agenda.CurrentlyReading
	case models.StatusFinished:
		list = e.agenda.FinishedBooks
	default:
		return nil
	}
	return cloneItems(list)
}

// FindItem looks an item up in all three lists
func (e *Engine) FindItem(itemID string) (models.AgendaItem, models.Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := []models.Status{models.StatusToRead, models.StatusReading, models.StatusFinished}
	for i, list := range e.lists() {
		if item := find(*list, itemID); item != nil {
			return item.Clone(), statuses[i], true
		}
	}
	return models.AgendaItem{}, "", false
}

// GetStats returns the statistics recomputed against the current time
func (e *Engine) GetStats() models.ReadingStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recomputeStats(e.now())
	return cloneStats(e.agenda.ReadingStats)
}

// GetActiveGoals returns incomplete goals whose period has not ended
func (e *Engine) GetActiveGoals() []models.ReadingGoal {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.activeGoals()
}

// GetGoals returns every goal, completed or not
func (e *Engine) GetGoals() []models.ReadingGoal {
	e.mu.Lock()
	defer e.mu.Unlock()

	goals := make([]models.ReadingGoal, 0, len(e.agenda.ReadingGoals))
	for _, g := range e.agenda.ReadingGoals {
		goals = append(goals, *g)
	}
	return goals
}

func (e *Engine) activeGoals() []models.ReadingGoal {
	now := e.now()
	goals := []models.ReadingGoal{}
	for _, g := range e.agenda.ReadingGoals {
		if !g.IsCompleted && !g.EndDate.Before(now) {
			goals = append(goals, *g)
		}
	}
	return goals
}

// GetAgendaSummary counts the lists and picks the next books to read:
// highest priority first, then oldest addition.
func (e *Engine) GetAgendaSummary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recomputeStats(e.now())

	summary := Summary{
		ToRead:      len(e.agenda.ToReadList),
		Reading:     len(e.agenda.CurrentlyReading),
		Finished:    len(e.agenda.FinishedBooks),
		ActiveGoals: len(e.activeGoals()),
		Stats:       cloneStats(e.agenda.ReadingStats),
	}

	queue := cloneItems(e.agenda.ToReadList)
	for _, item := range queue {
		if item.Priority == models.PriorityHigh {
			summary.HighPriority++
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		pi, pj := priorityRank(queue[i].Priority), priorityRank(queue[j].Priority)
		if pi != pj {
			return pi > pj
		}
		return queue[i].DateAdded.Before(queue[j].DateAdded)
	})
	if len(queue) > nextUpCount {
		queue = queue[:nextUpCount]
	}
	summary.NextUp = queue
	return summary
}

func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 2
	case models.PriorityMedium:
		return 1
	}
	return 0
}

func cloneItems(list []*models.AgendaItem) []models.AgendaItem {
	out := make([]models.AgendaItem, 0, len(list))
	for _, item := range list {
		out = append(out, item.Clone())
	}
	return out
}

func cloneStats(s models.ReadingStats) models.ReadingStats {
	s.FavoriteGenres = append([]string{}, s.FavoriteGenres...)
	return s
}
