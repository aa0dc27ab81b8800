package discussion

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"bookshelf/internal/models"
)

// Statistics counts rooms, messages and distinct members across all books
type Statistics struct {
	TotalRooms     int `json:"totalRooms"`
	ActiveRooms    int `json:"activeRooms"`
	TotalMessages  int `json:"totalMessages"`
	TotalReplies   int `json:"totalReplies"`
	TotalMembers   int `json:"totalMembers"`
	BooksDiscussed int `json:"booksDiscussed"`
}

// fold normalizes s for caseless comparison
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// SearchDiscussions returns rooms of every book whose name, book title, author, tags,
// description or category contain query, ignoring case. Most recently active first.
func (e *Engine) SearchDiscussions(query string) []models.DiscussionRoom {
	needle := fold(strings.TrimSpace(query))
	if needle == "" {
		return []models.DiscussionRoom{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var matches []*models.DiscussionRoom
	for _, room := range e.allRooms() {
		if matchesRoom(room, needle) {
			matches = append(matches, room)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].LastActivity.After(matches[j].LastActivity)
	})
	return cloneRooms(matches)
}

func matchesRoom(room *models.DiscussionRoom, needle string) bool {
	fields := []string{room.Name, room.BookTitle, room.BookAuthor, room.Description, room.Category}
	fields = append(fields, room.Tags...)
	for _, f := range fields {
		if f != "" && strings.Contains(fold(f), needle) {
			return true
		}
	}
	return false
}

// GetStatistics counts rooms, messages and members
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{}
	members := models.NewStringSet()
	for bookID, rooms := range e.rooms {
		if len(rooms) > 0 && bookID != "" {
			stats.BooksDiscussed++
		}
		for _, room := range rooms {
			stats.TotalRooms++
			if room.IsActive {
				stats.ActiveRooms++
			}
			stats.TotalMessages += len(room.Messages)
			for _, m := range room.Messages {
				stats.TotalReplies += len(m.Replies)
			}
			for member := range room.Members {
				members.Add(member)
			}
		}
	}
	stats.TotalMembers = members.Len()
	return stats
}

// GetRecentDiscussions returns active rooms, newest created first.
// A limit of zero or less returns all of them.
func (e *Engine) GetRecentDiscussions(limit int) []models.DiscussionRoom {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active []*models.DiscussionRoom
	for _, room := range e.allRooms() {
		if room.IsActive {
			active = append(active, room)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return cloneRooms(active)
}

// GetRoom returns a copy of the room with the given id
func (e *Engine) GetRoom(roomID string) (models.DiscussionRoom, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	room := e.find(roomID)
	if room == nil {
		return models.DiscussionRoom{}, false
	}
	return room.Clone(), true
}

// GetRoomsForBook returns the rooms of one book in creation order
func (e *Engine) GetRoomsForBook(bookID string) []models.DiscussionRoom {
	e.mu.Lock()
	defer e.mu.Unlock()

	return cloneRooms(e.rooms[bookID])
}

// allRooms flattens the rooms of every book, ordered by book id then creation
func (e *Engine) allRooms() []*models.DiscussionRoom {
	bookIDs := make([]string, 0, len(e.rooms))
	for bookID := range e.rooms {
		bookIDs = append(bookIDs, bookID)
	}
	sort.Strings(bookIDs)

	var out []*models.DiscussionRoom
	for _, bookID := range bookIDs {
		out = append(out, e.rooms[bookID]...)
	}
	return out
}

func cloneRooms(rooms []*models.DiscussionRoom) []models.DiscussionRoom {
	out := make([]models.DiscussionRoom, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Clone())
	}
	return out
}
