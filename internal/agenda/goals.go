package agenda

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/models"
)

// SetReadingGoal adds a goal covering the current calendar month, quarter or year.
// Books already finished inside the period count towards it.
func (e *Engine) SetReadingGoal(ctx context.Context, targetBooks int, timeframe models.Timeframe, description string) (models.ReadingGoal, error) {
	if targetBooks <= 0 {
		return models.ReadingGoal{}, fmt.Errorf("%w: target must be positive", ErrInvalidInput)
	}
	if !timeframe.Valid() {
		return models.ReadingGoal{}, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, timeframe)
	}
	if description == "" {
		description = fmt.Sprintf("Read %d books this %s", targetBooks, timeframe)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	start, end := period(now, timeframe)
	goal := &models.ReadingGoal{
		GoalID:      e.newID(),
		TargetBooks: targetBooks,
		Timeframe:   timeframe,
		StartDate:   start,
		EndDate:     end,
		Description: description,
	}
	e.agenda.ReadingGoals = append(e.agenda.ReadingGoals, goal)
	e.checkGoals()
	e.recomputeStats(now)
	e.persist(ctx)

	e.logger.Info("Reading goal set",
		zap.String("goal_id", goal.GoalID),
		zap.Int("target", targetBooks),
		zap.String("timeframe", string(timeframe)),
	)
	return *goal, nil
}

// CheckGoalCompletion recounts progress of every incomplete goal and returns how many
// goals became completed. Running it again without new finished books changes nothing.
func (e *Engine) CheckGoalCompletion(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	completed := e.checkGoals()
	e.persist(ctx)
	return completed
}

// checkGoals updates incomplete goals from the finished list; callers hold e.mu
func (e *Engine) checkGoals() int {
	completed := 0
	for _, goal := range e.agenda.ReadingGoals {
		if goal.IsCompleted {
			continue
		}

		count := 0
		for _, item := range e.agenda.FinishedBooks {
			if item.FinishDate == nil {
				continue
			}
			if !item.FinishDate.Before(goal.StartDate) && !item.FinishDate.After(goal.EndDate) {
				count++
			}
		}

		goal.BooksCompleted = count
		goal.Progress = min(100, count*100/goal.TargetBooks)
		if count >= goal.TargetBooks {
			goal.IsCompleted = true
			completed++
			e.logger.Info("Reading goal completed",
				zap.String("goal_id", goal.GoalID),
				zap.String("description", goal.Description),
			)
		}
	}
	e.agenda.ReadingStats.GoalsCompleted = e.completedGoals()
	return completed
}

func (e *Engine) completedGoals() int {
	n := 0
	for _, goal := range e.agenda.ReadingGoals {
		if goal.IsCompleted {
			n++
		}
	}
	return n
}

// period returns the inclusive bounds of the calendar period containing now
func period(now time.Time, timeframe models.Timeframe) (time.Time, time.Time) {
	loc := now.Location()
	var start, next time.Time
	switch timeframe {
	case models.TimeframeQuarter:
		firstMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), firstMonth, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 3, 0)
	case models.TimeframeYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	}
	return start, next.Add(-time.Nanosecond)
}
