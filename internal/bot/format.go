package bot

import (
	"fmt"
	"strings"

	"bookshelf/internal/models"
)

func formatBook(book models.BookRef) string {
	text := fmt.Sprintf("%s by %s", book.Title, book.AuthorLine())
	if book.PageCount > 0 {
		text += fmt.Sprintf(" (%d pages)", book.PageCount)
	}
	return text
}

func formatProgress(item models.AgendaItem) string {
	if item.PageCount <= 0 {
		return fmt.Sprintf("page %d", item.CurrentPage)
	}
	return fmt.Sprintf("page %d of %d (%d%%)", item.CurrentPage, item.PageCount, item.CurrentPage*100/item.PageCount)
}

func formatStats(stats models.ReadingStats, goals []models.ReadingGoal) string {
	var text strings.Builder
	text.WriteString("📊 Reading statistics\n\n")
	text.WriteString(fmt.Sprintf("Books read this year: %d\n", stats.BooksReadThisYear))
	text.WriteString(fmt.Sprintf("Pages read this year: %d\n", stats.PagesReadThisYear))
	text.WriteString(fmt.Sprintf("Total books read: %d\n", stats.TotalBooksRead))
	text.WriteString(fmt.Sprintf("Reading streak: %d days\n", stats.ReadingStreak))
	text.WriteString(fmt.Sprintf("Reading time this week: %d min\n", stats.ReadingTimePerWeek))
	if stats.AverageRating > 0 {
		text.WriteString(fmt.Sprintf("Average rating: %.1f ⭐\n", stats.AverageRating))
	}
	if len(stats.FavoriteGenres) > 0 {
		text.WriteString(fmt.Sprintf("Favorite genres: %s\n", strings.Join(stats.FavoriteGenres, ", ")))
	}
	text.WriteString(fmt.Sprintf("Goals completed: %d\n", stats.GoalsCompleted))

	if len(goals) > 0 {
		text.WriteString("\n🎯 Active goals:\n")
		for _, g := range goals {
			text.WriteString(fmt.Sprintf("• %s: %d/%d (%d%%), until %s\n",
				g.Description, g.BooksCompleted, g.TargetBooks, g.Progress, g.EndDate.Format("2006-01-02")))
		}
	}
	return text.String()
}

func formatRoom(room models.DiscussionRoom) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("💬 %s\n%s by %s\n", room.Name, room.BookTitle, room.BookAuthor))
	if room.Description != "" {
		text.WriteString(room.Description + "\n")
	}
	text.WriteString(fmt.Sprintf("Members: %d\n", room.Members.Len()))
	if !room.IsActive {
		text.WriteString("🔒 This room is closed.\n")
	}

	if len(room.Messages) == 0 {
		text.WriteString("\nNo messages yet.")
		return text.String()
	}
	text.WriteString("\n")
	for i, m := range room.Messages {
		line := fmt.Sprintf("%d. %s: %s", i+1, m.UserName, m.Message)
		if m.Rating != nil {
			line += fmt.Sprintf(" (%d⭐)", *m.Rating)
		}
		if n := m.Likes.Len(); n > 0 {
			line += fmt.Sprintf(" ❤️ %d", n)
		}
		text.WriteString(line + "\n")
		for _, r := range m.Replies {
			text.WriteString(fmt.Sprintf("   ↳ %s: %s\n", r.UserName, r.Message))
		}
	}
	return text.String()
}
