package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room is closed")
	ErrMessageNotFound = errors.New("message not found")
)

// RoomOptions are the optional fields of CreateDiscussionRoom
type RoomOptions struct {
	Name        string
	Description string
	Category    string
	Tags        []string
	CreatedBy   string
}

// Engine owns the discussion rooms, grouped by book id.
// Every mutating call persists all rooms before returning.
type Engine struct {
	mu     sync.Mutex
	store  *storage.Persistent
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	rooms  map[string][]*models.DiscussionRoom
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how room, message and reply ids are generated
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine and loads the rooms from the store
func NewEngine(ctx context.Context, store *storage.Persistent, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  models.NewID,
		rooms:  make(map[string][]*models.DiscussionRoom),
	}
	for _, opt := range opts {
		opt(e)
	}

	loaded := make(map[string][]*models.DiscussionRoom)
	if store.Get(ctx, storage.KeyDiscussions, &loaded) {
		e.rooms = normalize(loaded)
	}

	logger.Debug("Discussions loaded", zap.Int("books", len(e.rooms)))
	return e
}

// normalize drops nil entries and fills nil sets and slices left by older documents
func normalize(in map[string][]*models.DiscussionRoom) map[string][]*models.DiscussionRoom {
	out := make(map[string][]*models.DiscussionRoom, len(in))
	for bookID, rooms := range in {
		for _, room := range rooms {
			if room == nil || room.RoomID == "" {
				continue
			}
			if room.Members == nil {
				room.Members = models.NewStringSet()
			}
			messages := make([]*models.Message, 0, len(room.Messages))
			for _, m := range room.Messages {
				if m == nil {
					continue
				}
				if m.Likes == nil {
					m.Likes = models.NewStringSet()
				}
				if m.Replies == nil {
					m.Replies = []models.Reply{}
				}
				messages = append(messages, m)
			}
			room.Messages = messages
			out[bookID] = append(out[bookID], room)
		}
	}
	return out
}

// persist saves all rooms; callers hold e.mu
func (e *Engine) persist(ctx context.Context) {
	if !e.store.Set(ctx, storage.KeyDiscussions, e.rooms) {
		e.logger.Warn("Discussions kept in memory only")
	}
}

// cleanText trims s and cuts it to MaxMessageLength runes
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= models.MaxMessageLength {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:models.MaxMessageLength]))
}

// CreateDiscussionRoom opens a new room for a book.
// The room starts active with no members and no messages.
func (e *Engine) CreateDiscussionRoom(ctx context.Context, bookID, bookTitle, bookAuthor string, opts RoomOptions) (models.DiscussionRoom, error) {
	bookID = strings.TrimSpace(bookID)
	bookTitle = strings.TrimSpace(bookTitle)
	if bookID == "" || bookTitle == "" {
		return models.DiscussionRoom{}, fmt.Errorf("%w: book id and title are required", ErrInvalidInput)
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Discussion: " + bookTitle
	}

	var tags []string
	for _, tag := range opts.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	room := &models.DiscussionRoom{
		RoomID:       e.newID(),
		BookID:       bookID,
		BookTitle:    bookTitle,
		BookAuthor:   strings.TrimSpace(bookAuthor),
		Name:         name,
		Description:  strings.TrimSpace(opts.Description),
		Category:     strings.TrimSpace(opts.Category),
		Tags:         tags,
		CreatedAt:    now,
		CreatedBy:    strings.TrimSpace(opts.CreatedBy),
		Members:      models.NewStringSet(),
		Messages:     []*models.Message{},
		IsActive:     true,
		LastActivity: now,
	}
	e.rooms[bookID] = append(e.rooms[bookID], room)
	e.persist(ctx)

	e.logger.Info("Discussion room created",
		zap.String("room_id", room.RoomID),
		zap.String("book_id", bookID),
		zap.String("name", name),
	)
	return room.Clone(), nil
}

// JoinRoom adds userName to the members of an active room.
// Joining a room twice succeeds without changes.
func (e *Engine) JoinRoom(ctx context.Context, roomID, userName string) bool {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	room := e.find(roomID)
	if room == nil || !room.IsActive {
		e.logger.Warn("Cannot join room", zap.String("room_id", roomID))
		return false
	}
	if !room.Members.Add(userName) {
		return true
	}

	room.LastActivity = e.now()
	e.persist(ctx)
	e.logger.Info("Joined room", zap.String("room_id", roomID), zap.String("user", userName))
	return true
}

// LeaveRoom removes userName from the members of a room
func (e *Engine) LeaveRoom(ctx context.Context, roomID, userName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	room := e.find(roomID)
	if room == nil || !room.Members.Remove(strings.TrimSpace(userName)) {
		return false
	}

	e.persist(ctx)
	e.logger.Info("Left room", zap.String("room_id", roomID), zap.String("user", userName))
	return true
}

// PostMessage adds a message to an active room and joins the poster as a member
func (e *Engine) PostMessage(ctx context.Context, roomID, userName, text string, rating *int) (models.Message, error) {
	userName = strings.TrimSpace(userName)
	text = cleanText(text)
	if userName == "" || text == "" {
		return models.Message{}, fmt.Errorf("%w: user name and message are required", ErrInvalidInput)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return models.Message{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.activeRoom(roomID)
	if err != nil {
		return models.Message{}, err
	}

	now := e.now()
	msg := &models.Message{
		MessageID: e.newID(),
		UserName:  userName,
		Message:   text,
		Timestamp: now,
		Likes:     models.NewStringSet(),
		Replies:   []models.Reply{},
	}
	if rating != nil {
		r := *rating
		msg.Rating = &r
	}

	room.Messages = append(room.Messages, msg)
	room.Members.Add(userName)
	room.LastActivity = now
	e.persist(ctx)

	e.logger.Info("Message posted",
		zap.String("room_id", roomID),
		zap.String("message_id", msg.MessageID),
		zap.String("user", userName),
	)
	return msg.Clone(), nil
}

// LikeMessage toggles userName in the like set of a message in an active room
func (e *Engine) LikeMessage(ctx context.Context, roomID, messageID, userName string) bool {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.activeRoom(roomID)
	if err != nil {
		e.logger.Warn("Cannot like message", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	msg := room.FindMessage(messageID)
	if msg == nil {
		e.logger.Warn("Cannot like message: message not found", zap.String("message_id", messageID))
		return false
	}

	liked := msg.Likes.Toggle(userName)
	room.LastActivity = e.now()
	e.persist(ctx)

	e.logger.Debug("Message like toggled",
		zap.String("message_id", messageID),
		zap.String("user", userName),
		zap.Bool("liked", liked),
	)
	return true
}

// PostReply answers a message in an active room
func (e *Engine) PostReply(ctx context.Context, roomID, messageID, userName, text string) (models.Reply, error) {
	userName = strings.TrimSpace(userName)
	text = cleanText(text)
	if userName == "" || text == "" {
		return models.Reply{}, fmt.Errorf("%w: user name and reply are required", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.activeRoom(roomID)
	if err != nil {
		return models.Reply{}, err
	}
	msg := room.FindMessage(messageID)
	if msg == nil {
		return models.Reply{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}

	now := e.now()
	reply := models.Reply{
		ReplyID:   e.newID(),
		UserName:  userName,
		Message:   text,
		Timestamp: now,
	}
	msg.Replies = append(msg.Replies, reply)
	room.Members.Add(userName)
	room.LastActivity = now
	e.persist(ctx)

	e.logger.Info("Reply posted",
		zap.String("room_id", roomID),
		zap.String("message_id", messageID),
		zap.String("user", userName),
	)
	return reply, nil
}

// CloseRoom deactivates a room for good. Closed rooms stay readable.
func (e *Engine) CloseRoom(ctx context.Context, roomID, closedBy string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	room := e.find(roomID)
	if room == nil || !room.IsActive {
		return false
	}

	now := e.now()
	room.IsActive = false
	room.ClosedBy = strings.TrimSpace(closedBy)
	room.ClosedAt = &now
	room.LastActivity = now
	e.persist(ctx)

	e.logger.Info("Room closed", zap.String("room_id", roomID), zap.String("closed_by", room.ClosedBy))
	return true
}

// Clear drops every room
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rooms = make(map[string][]*models.DiscussionRoom)
	e.store.Remove(ctx, storage.KeyDiscussions)
	e.logger.Info("Discussions cleared")
}

// find returns the room with the given id or nil; callers hold e.mu
func (e *Engine) find(roomID string) *models.DiscussionRoom {
	for _, rooms := range e.rooms {
		for _, room := range rooms {
			if room.RoomID == roomID {
				return room
			}
		}
	}
	return nil
}

func (e *Engine) activeRoom(roomID string) (*models.DiscussionRoom, error) {
	room := e.find(roomID)
	if room == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if !room.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrRoomClosed, roomID)
	}
	return room, nil
}
