package models

import "time"

// MaxMessageLength is the longest message body kept, in runes
const MaxMessageLength = 500

// DiscussionRoom is a discussion thread scoped to one book
type DiscussionRoom struct {
	RoomID       string     `json:"roomId"`
	BookID       string     `json:"bookId"`
	BookTitle    string     `json:"bookTitle"`
	BookAuthor   string     `json:"bookAuthor"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedBy    string     `json:"createdBy,omitempty"`
	Members      StringSet  `json:"members"`
	Messages     []*Message `json:"messages"`
	IsActive     bool       `json:"isActive"`
	ClosedBy     string     `json:"closedBy,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	LastActivity time.Time  `json:"lastActivity"`
}

// Clone returns a deep copy of the room
func (r *DiscussionRoom) Clone() DiscussionRoom {
	out := *r
	out.Tags = append([]string(nil), r.Tags...)
	out.Members = r.Members.Clone()
	out.ClosedAt = cloneTime(r.ClosedAt)
	out.Messages = make([]*Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		c := m.Clone()
		out.Messages = append(out.Messages, &c)
	}
	return out
}

// FindMessage returns the message with the given id or nil
func (r *DiscussionRoom) FindMessage(messageID string) *Message {
	for _, m := range r.Messages {
		if m.MessageID == messageID {
			return m
		}
	}
	return nil
}

// Message is a post in a discussion room
type Message struct {
	MessageID string    `json:"messageId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Rating    *int      `json:"rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Likes     StringSet `json:"likes"`
	Replies   []Reply   `json:"replies"`
}

// Clone returns a deep copy of the message
func (m *Message) Clone() Message {
	out := *m
	out.Likes = m.Likes.Clone()
	out.Replies = append([]Reply{}, m.Replies...)
	if m.Rating != nil {
		r := *m.Rating
		out.Rating = &r
	}
	return out
}

// Reply answers a message
type Reply struct {
	ReplyID   string    `json:"replyId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
