package agenda

import (
	"math"
	"sort"
	"time"

	"bookshelf/internal/models"
)

const (
	dayLayout          = "2006-01-02"
	favoriteGenreCount = 5
)

// recomputeStats rebuilds every derived statistic from the lists and goals
func (e *Engine) recomputeStats(now time.Time) {
	loc := now.Location()
	stats := &e.agenda.ReadingStats

	booksThisYear, pagesThisYear := 0, 0
	ratingSum, ratingCount := 0, 0
	genres := make(map[string]int)

	for _, item := range e.agenda.FinishedBooks {
		if item.FinishDate != nil && item.FinishDate.In(loc).Year() == now.Year() {
			booksThisYear++
			pagesThisYear += pagesOf(item)
		}
		if item.Rating != nil {
			ratingSum += *item.Rating
			ratingCount++
		}
		for _, c := range item.Categories {
			genres[c]++
		}
	}

	stats.BooksReadThisYear = booksThisYear
	stats.PagesReadThisYear = pagesThisYear
	stats.TotalBooksRead = len(e.agenda.FinishedBooks)
	stats.GoalsCompleted = e.completedGoals()
	stats.AverageRating = 0
	if ratingCount > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(ratingCount)*10) / 10
	}
	stats.FavoriteGenres = topCounts(genres, favoriteGenreCount)

	sessions := e.allSessions()
	stats.ReadingTimePerWeek = minutesSince(sessions, now.AddDate(0, 0, -7), now)
	stats.ReadingStreak = streak(sessions, now)
}

// allSessions gathers sessions of books being read and books already finished
func (e *Engine) allSessions() []models.ReadingSession {
	var sessions []models.ReadingSession
	for _, item := range e.agenda.CurrentlyReading {
		sessions = append(sessions, item.ReadingSessions...)
	}
	for _, item := range e.agenda.FinishedBooks {
		sessions = append(sessions, item.ReadingSessions...)
	}
	return sessions
}

func pagesOf(item *models.AgendaItem) int {
	if item.PageCount > 0 {
		return item.PageCount
	}
	return item.CurrentPage
}

// minutesSince sums session minutes in the window (from, to]
func minutesSince(sessions []models.ReadingSession, from, to time.Time) int {
	total := 0
	for _, s := range sessions {
		if s.Date.After(from) && !s.Date.After(to) {
			total += s.MinutesSpent
		}
	}
	return total
}

// streak counts consecutive local calendar days with a session, ending today.
// Without a session today the streak is zero.
func streak(sessions []models.ReadingSession, now time.Time) int {
	loc := now.Location()
	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[s.Date.In(loc).Format(dayLayout)] = true
	}

	// Noon avoids skipping or repeating a day across DST changes
	day := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, loc)
	count := 0
	for days[day.Format(dayLayout)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
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
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
