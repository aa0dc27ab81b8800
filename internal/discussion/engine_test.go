package discussion

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/stubs"
)

type fixture struct {
	engine  *Engine
	store   *storage.Persistent
	backend *stubs.MemoryStore
	now     time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	backend := stubs.NewMemoryStore()
	f := &fixture{
		backend: backend,
		store:   storage.NewPersistent(ctx, backend, zap.NewNop()),
		now:     time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC),
	}

	n := 0
	f.engine = NewEngine(ctx, f.store, zap.NewNop(),
		WithClock(f.clock),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	return f
}

func (f *fixture) room(t *testing.T, bookID, title string) models.DiscussionRoom {
	t.Helper()

	room, err := f.engine.CreateDiscussionRoom(context.Background(), bookID, title, "Frank Herbert", RoomOptions{})
	require.NoError(t, err)
	return room
}

func TestCreateDiscussionRoom(t *testing.T) {
	f := newFixture(t)

	room, err := f.engine.CreateDiscussionRoom(context.Background(), "b1", "Dune", "Frank Herbert", RoomOptions{
		Tags: []string{" spice ", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "Discussion: Dune", room.Name)
	assert.True(t, room.IsActive)
	assert.Equal(t, 0, room.Members.Len())
	assert.Empty(t, room.Messages)
	assert.Equal(t, []string{"spice"}, room.Tags)
	assert.Equal(t, f.now, room.CreatedAt)

	rooms := f.engine.GetRoomsForBook("b1")
	require.Len(t, rooms, 1)
	assert.Equal(t, room.RoomID, rooms[0].RoomID)
}

func TestCreateDiscussionRoom_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateDiscussionRoom(context.Background(), "", "Dune", "", RoomOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.engine.CreateDiscussionRoom(context.Background(), "b1", " ", "", RoomOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, f.engine.GetStatistics().TotalRooms)
}

func TestJoinAndLeaveRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")

	assert.True(t, f.engine.JoinRoom(ctx, room.RoomID, "ana"))
	assert.True(t, f.engine.JoinRoom(ctx, room.RoomID, "ana"), "joining twice is a no-op success")
	assert.False(t, f.engine.JoinRoom(ctx, "missing", "ana"))
	assert.False(t, f.engine.JoinRoom(ctx, room.RoomID, " "))

	got, ok := f.engine.GetRoom(room.RoomID)
	require.True(t, ok)
	assert.Equal(t, []string{"ana"}, got.Members.Values())

	assert.True(t, f.engine.LeaveRoom(ctx, room.RoomID, "ana"))
	assert.False(t, f.engine.LeaveRoom(ctx, room.RoomID, "ana"))

	got, _ = f.engine.GetRoom(room.RoomID)
	assert.Equal(t, 0, got.Members.Len())
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")

	f.now = f.now.Add(time.Hour)
	rating := 4
	msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "  The spice must flow  ", &rating)
	require.NoError(t, err)

	assert.Equal(t, "The spice must flow", msg.Message)
	assert.Equal(t, 4, *msg.Rating)
	assert.Equal(t, 0, msg.Likes.Len())

	got, _ := f.engine.GetRoom(room.RoomID)
	assert.True(t, got.Members.Has("ana"), "poster joins automatically")
	assert.Equal(t, f.now, got.LastActivity)
	require.Len(t, got.Messages, 1)
}

func TestPostMessage_TruncatesLongMessages(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "b1", "Dune")

	msg, err := f.engine.PostMessage(context.Background(), room.RoomID, "ana", strings.Repeat("é", 600), nil)
	require.NoError(t, err)
	assert.Equal(t, models.MaxMessageLength, len([]rune(msg.Message)))
}

func TestPostMessage_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")
	closed := f.room(t, "b1", "Dune")
	require.True(t, f.engine.CloseRoom(ctx, closed.RoomID, "ana"))

	testCases := []struct {
		name    string
		roomID  string
		user    string
		text    string
		rating  *int
		wantErr error
	}{
		{name: "missing room", roomID: "missing", user: "ana", text: "hi", wantErr: ErrRoomNotFound},
		{name: "closed room", roomID: closed.RoomID, user: "ana", text: "hi", wantErr: ErrRoomClosed},
		{name: "blank message", roomID: room.RoomID, user: "ana", text: "   ", wantErr: ErrInvalidInput},
		{name: "blank user", roomID: room.RoomID, user: "", text: "hi", wantErr: ErrInvalidInput},
		{name: "bad rating", roomID: room.RoomID, user: "ana", text: "hi", rating: new(int), wantErr: ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.PostMessage(ctx, tc.roomID, tc.user, tc.text, tc.rating)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	got, _ := f.engine.GetRoom(room.RoomID)
	assert.Empty(t, got.Messages)
	assert.Equal(t, 0, got.Members.Len())
}

func TestLikeMessage_CountSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")

	msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "Great opening", nil)
	require.NoError(t, err)

	likes := func() int {
		got, _ := f.engine.GetRoom(room.RoomID)
		return got.FindMessage(msg.MessageID).Likes.Len()
	}

	assert.Equal(t, 0, likes())
	require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
	assert.Equal(t, 1, likes())
	require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "carol"))
	assert.Equal(t, 2, likes())
	require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
	assert.Equal(t, 1, likes())
}

func TestLikeMessage_ToggleParity(t *testing.T) {
	for _, clicks := range []int{1, 2, 3, 4, 7} {
		t.Run(fmt.Sprintf("%d clicks", clicks), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			room := f.room(t, "b1", "Dune")
			msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "hello", nil)
			require.NoError(t, err)

			for i := 0; i < clicks; i++ {
				require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
			}

			got, _ := f.engine.GetRoom(room.RoomID)
			likes := got.FindMessage(msg.MessageID).Likes
			if clicks%2 == 1 {
				assert.Equal(t, []string{"bob"}, likes.Values())
			} else {
				assert.Equal(t, 0, likes.Len())
			}
		})
	}
}

func TestLikeMessage_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")
	msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "hello", nil)
	require.NoError(t, err)

	assert.False(t, f.engine.LikeMessage(ctx, "missing", msg.MessageID, "bob"))
	assert.False(t, f.engine.LikeMessage(ctx, room.RoomID, "missing", "bob"))
	assert.False(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, ""))

	require.True(t, f.engine.CloseRoom(ctx, room.RoomID, "ana"))
	assert.False(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
}

func TestPostReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")
	msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "Who is the Kwisatz Haderach?", nil)
	require.NoError(t, err)

	reply, err := f.engine.PostReply(ctx, room.RoomID, msg.MessageID, "bob", "Read on!")
	require.NoError(t, err)
	assert.Equal(t, "Read on!", reply.Message)

	_, err = f.engine.PostReply(ctx, room.RoomID, "missing", "bob", "hi")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = f.engine.PostReply(ctx, room.RoomID, msg.MessageID, "bob", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, _ := f.engine.GetRoom(room.RoomID)
	require.Len(t, got.FindMessage(msg.MessageID).Replies, 1)
	assert.True(t, got.Members.Has("bob"))
}

func TestCloseRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")

	assert.True(t, f.engine.CloseRoom(ctx, room.RoomID, "ana"))
	assert.False(t, f.engine.CloseRoom(ctx, room.RoomID, "ana"), "closing is irreversible and not repeatable")
	assert.False(t, f.engine.CloseRoom(ctx, "missing", "ana"))
	assert.False(t, f.engine.JoinRoom(ctx, room.RoomID, "bob"))

	got, ok := f.engine.GetRoom(room.RoomID)
	require.True(t, ok)
	assert.False(t, got.IsActive)
	assert.Equal(t, "ana", got.ClosedBy)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, f.now, *got.ClosedAt)
}

func TestSearchDiscussions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateDiscussionRoom(ctx, "b1", "Dune", "Frank Herbert", RoomOptions{Tags: []string{"Desert"}})
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.engine.CreateDiscussionRoom(ctx, "b2", "Les Misérables", "Victor Hugo", RoomOptions{Category: "Classics"})
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.engine.CreateDiscussionRoom(ctx, "b3", "Emma", "Jane Austen", RoomOptions{Description: "Matchmaking gone wrong"})
	require.NoError(t, err)

	testCases := []struct {
		query string
		want  []string
	}{
		{query: "dune", want: []string{"Dune"}},
		{query: "HERBERT", want: []string{"Dune"}},
		{query: "desert", want: []string{"Dune"}},
		{query: "MISÉRABLES", want: []string{"Les Misérables"}},
		{query: "classics", want: []string{"Les Misérables"}},
		{query: "matchmaking", want: []string{"Emma"}},
		{query: "discussion", want: []string{"Emma", "Les Misérables", "Dune"}},
		{query: "tolkien", want: nil},
		{query: "  ", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			var titles []string
			for _, room := range f.engine.SearchDiscussions(tc.query) {
				titles = append(titles, room.BookTitle)
			}
			assert.Equal(t, tc.want, titles)
		})
	}
}

func TestGetRecentDiscussions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		room := f.room(t, fmt.Sprintf("b%d", i), fmt.Sprintf("Book %d", i))
		ids = append(ids, room.RoomID)
		f.now = f.now.Add(time.Hour)
	}
	require.True(t, f.engine.CloseRoom(ctx, ids[3], "ana"))

	recent := f.engine.GetRecentDiscussions(2)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].RoomID)
	assert.Equal(t, ids[1], recent[1].RoomID)

	assert.Len(t, f.engine.GetRecentDiscussions(0), 3)
}

func TestGetStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.room(t, "b1", "Dune")
	second := f.room(t, "b1", "Dune")
	third := f.room(t, "b2", "Emma")

	msg, err := f.engine.PostMessage(ctx, first.RoomID, "ana", "one", nil)
	require.NoError(t, err)
	_, err = f.engine.PostMessage(ctx, second.RoomID, "ana", "two", nil)
	require.NoError(t, err)
	_, err = f.engine.PostReply(ctx, first.RoomID, msg.MessageID, "bob", "three")
	require.NoError(t, err)
	require.True(t, f.engine.CloseRoom(ctx, third.RoomID, "ana"))

	assert.Equal(t, Statistics{
		TotalRooms:     3,
		ActiveRooms:    2,
		TotalMessages:  2,
		TotalReplies:   1,
		TotalMembers:   2,
		BooksDiscussed: 2,
	}, f.engine.GetStatistics())
}

func TestEngine_ReloadPreservesSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "b1", "Dune")

	msg, err := f.engine.PostMessage(ctx, room.RoomID, "ana", "hello", nil)
	require.NoError(t, err)
	require.True(t, f.engine.JoinRoom(ctx, room.RoomID, "bob"))
	require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
	require.True(t, f.engine.LikeMessage(ctx, room.RoomID, msg.MessageID, "carol"))

	reloaded := NewEngine(ctx, f.store, zap.NewNop())
	got, ok := reloaded.GetRoom(room.RoomID)
	require.True(t, ok)
	assert.Equal(t, []string{"ana", "bob"}, got.Members.Values())
	assert.Equal(t, []string{"bob", "carol"}, got.FindMessage(msg.MessageID).Likes.Values())

	// A further toggle on the reloaded state still removes the like
	require.True(t, reloaded.LikeMessage(ctx, room.RoomID, msg.MessageID, "bob"))
	got, _ = reloaded.GetRoom(room.RoomID)
	assert.Equal(t, []string{"carol"}, got.FindMessage(msg.MessageID).Likes.Values())
}

func TestEngine_LoadCollapsesDuplicateSetEntries(t *testing.T) {
	ctx := context.Background()
	backend := stubs.NewMemoryStore()
	doc := `{"b1":[{"roomId":"r1","bookId":"b1","bookTitle":"Dune","name":"Discussion: Dune",
		"members":["ana","ana","bob"],"isActive":true,
		"messages":[{"messageId":"m1","userName":"ana","message":"hi","likes":["bob","bob"]}]}]}`
	require.NoError(t, backend.Set(ctx, storage.KeyDiscussions, []byte(doc)))

	e := NewEngine(ctx, storage.NewPersistent(ctx, backend, zap.NewNop()), zap.NewNop())

	got, ok := e.GetRoom("r1")
	require.True(t, ok)
	assert.Equal(t, 2, got.Members.Len())
	msg := got.FindMessage("m1")
	require.NotNil(t, msg)
	assert.Equal(t, 1, msg.Likes.Len())
	assert.NotNil(t, msg.Replies)

	require.True(t, e.LikeMessage(ctx, "r1", "m1", "bob"))
	got, _ = e.GetRoom("r1")
	assert.Equal(t, 0, got.FindMessage("m1").Likes.Len())
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	f.room(t, "b1", "Dune")

	f.engine.Clear(context.Background())

	assert.Equal(t, Statistics{}, f.engine.GetStatistics())
	_, err := f.backend.Get(context.Background(), storage.KeyDiscussions)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
