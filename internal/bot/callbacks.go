package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/agenda"
	"bookshelf/internal/discussion"
	"bookshelf/internal/models"
)

// handleBeginCallback moves a to-read book to the currently reading list
func (b *Bot) handleBeginCallback(ctx context.Context, query *tgbotapi.CallbackQuery, itemID string) {
	chatID := query.Message.Chat.ID

	item, status, ok := b.svc.Agenda.FindItem(itemID)
	if !ok || status != models.StatusToRead {
		b.reply(chatID, "That book is no longer on your reading list.")
		return
	}
	if !b.svc.Agenda.StartReading(ctx, itemID, 0) {
		b.reply(chatID, "Could not start the book. Please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("📖 Started reading %s. Use /reading to log sessions.", item.Title))
}

// handleSessionCallback asks for pages and minutes of a reading session
func (b *Bot) handleSessionCallback(query *tgbotapi.CallbackQuery, itemID string) {
	item, status, ok := b.svc.Agenda.FindItem(itemID)
	if !ok || status != models.StatusReading {
		b.reply(query.Message.Chat.ID, "That book is not being read.")
		return
	}

	state := newState("session", 1)
	state.Data["item_id"] = itemID
	b.setState(query.From.ID, state)

	b.reply(query.Message.Chat.ID, fmt.Sprintf("⏱ %s\nSend pages read and minutes spent, for example: 25 40", item.Title))
}

// handleFinishCallback asks for a rating before finishing a book
func (b *Bot) handleFinishCallback(query *tgbotapi.CallbackQuery, itemID string) {
	item, status, ok := b.svc.Agenda.FindItem(itemID)
	if !ok || status != models.StatusReading {
		b.reply(query.Message.Chat.ID, "That book is not being read.")
		return
	}

	state := newState("finish", 1)
	state.Data["item_id"] = itemID
	b.setState(query.From.ID, state)

	var stars []tgbotapi.InlineKeyboardButton
	for i := 1; i <= 5; i++ {
		stars = append(stars, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i)+"⭐", fmt.Sprintf("rate:%d", i)))
	}
	b.replyWithKeyboard(query.Message.Chat.ID, fmt.Sprintf("✅ How would you rate %s?", item.Title), [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(stars...),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Skip rating", "rate:0")),
	})
}

// handleRateCallback finishes the book with the chosen rating
func (b *Bot) handleRateCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "finish" {
		return
	}
	chatID := query.Message.Chat.ID
	itemID, _ := state.Data["item_id"].(string)

	rating, err := strconv.Atoi(value)
	if err != nil || rating < 0 || rating > 5 {
		return
	}
	opts := agenda.FinishOptions{}
	if rating > 0 {
		opts.Rating = &rating
	}

	goalsBefore := b.svc.Agenda.GetStats().GoalsCompleted
	if !b.svc.Agenda.FinishReading(ctx, itemID, opts) {
		b.reply(chatID, "Could not finish the book. Please try again.")
		state.Step = stepDone
		return
	}
	state.Step = stepDone

	text := "🎉 Book finished!"
	if stats := b.svc.Agenda.GetStats(); stats.GoalsCompleted > goalsBefore {
		text += "\n🎯 You completed a reading goal!"
	}
	b.reply(chatID, text)
}

// handleGoalTimeframeCallback stores the period and asks for the target
func (b *Bot) handleGoalTimeframeCallback(query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "goal" {
		return
	}
	timeframe := models.Timeframe(value)
	if !timeframe.Valid() {
		return
	}

	state.Data["timeframe"] = timeframe
	state.Step = 2
	b.reply(query.Message.Chat.ID, fmt.Sprintf("How many books do you want to read this %s?", timeframe))
}

// resultAt returns the book at a button index of the last search or recommendation
func resultAt(state *ConversationState, value string) (models.BookRef, bool) {
	books, _ := state.Data["results"].([]models.BookRef)
	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= len(books) {
		return models.BookRef{}, false
	}
	return books[idx], true
}

// handleAddCallback adds a listed book to the reading list
func (b *Bot) handleAddCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	book, ok := resultAt(state, value)
	if !ok {
		return
	}

	item, err := b.svc.Agenda.AddToReadingList(ctx, book, agenda.AddOptions{})
	if err != nil {
		b.logger.Warn("Failed to add book", zap.String("book_id", book.ID), zap.Error(err))
		b.reply(query.Message.Chat.ID, "Could not add this book.")
		return
	}
	b.reply(query.Message.Chat.ID, fmt.Sprintf("➕ Added %s to your reading list.", item.Title))
}

// handleBookmarkCallback toggles the bookmark of a listed book
func (b *Bot) handleBookmarkCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	book, ok := resultAt(state, value)
	if !ok {
		return
	}

	if b.svc.Profile.ToggleBookmark(ctx, book) {
		b.reply(query.Message.Chat.ID, fmt.Sprintf("🔖 Bookmarked %s.", book.Title))
	} else {
		b.reply(query.Message.Chat.ID, fmt.Sprintf("Removed bookmark for %s.", book.Title))
	}
}

// handleRoomCallback joins a room, shows its messages and waits for a post
func (b *Bot) handleRoomCallback(ctx context.Context, query *tgbotapi.CallbackQuery, roomID string) {
	chatID := query.Message.Chat.ID
	user := displayName(query.From)

	room, ok := b.svc.Discussions.GetRoom(roomID)
	if !ok {
		b.reply(chatID, "Discussion not found.")
		return
	}
	if room.IsActive && b.svc.Discussions.JoinRoom(ctx, roomID, user) {
		room, _ = b.svc.Discussions.GetRoom(roomID)
	}

	b.showRoom(chatID, query.From.ID, room)
}

func (b *Bot) showRoom(chatID, userID int64, room models.DiscussionRoom) {
	if !room.IsActive {
		b.reply(chatID, formatRoom(room))
		return
	}

	messageIDs := make([]string, 0, len(room.Messages))
	var buttons []tgbotapi.InlineKeyboardButton
	for i, m := range room.Messages {
		messageIDs = append(messageIDs, m.MessageID)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❤️ %d", i+1), fmt.Sprintf("like:%d", i)))
	}
	rows := twoColumns(buttons)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔒 Close room", "closeroom:"+room.RoomID),
	))

	state := newState("room", 1)
	state.Data["room_id"] = room.RoomID
	state.Data["message_ids"] = messageIDs
	b.setState(userID, state)

	text := formatRoom(room) + "\n\nSend a message to post it, or \"reply N text\" to answer message N."
	b.replyWithKeyboard(chatID, text, rows)
}

// handleRoomBookCallback opens a new room for an agenda book
func (b *Bot) handleRoomBookCallback(ctx context.Context, query *tgbotapi.CallbackQuery, itemID string) {
	chatID := query.Message.Chat.ID

	item, _, ok := b.svc.Agenda.FindItem(itemID)
	if !ok {
		b.reply(chatID, "That book is no longer on your agenda.")
		return
	}

	opts := discussion.RoomOptions{CreatedBy: displayName(query.From)}
	if len(item.Categories) > 0 {
		opts.Category = item.Categories[0]
	}
	room, err := b.svc.Discussions.CreateDiscussionRoom(ctx, item.ID, item.Title, item.AuthorLine(), opts)
	if err != nil {
		b.logger.Warn("Failed to create room", zap.String("book_id", item.ID), zap.Error(err))
		b.reply(chatID, "Could not open a discussion for this book.")
		return
	}

	b.svc.Discussions.JoinRoom(ctx, room.RoomID, opts.CreatedBy)
	room, _ = b.svc.Discussions.GetRoom(room.RoomID)
	b.showRoom(chatID, query.From.ID, room)
}

// handleCloseRoomCallback closes a room for everyone
func (b *Bot) handleCloseRoomCallback(ctx context.Context, query *tgbotapi.CallbackQuery, roomID string) {
	if !b.svc.Discussions.CloseRoom(ctx, roomID, displayName(query.From)) {
		b.reply(query.Message.Chat.ID, "This room is already closed.")
		return
	}
	if state, ok := b.state(query.From.ID); ok && state.Command == "room" {
		b.clearState(query.From.ID)
	}
	b.reply(query.Message.Chat.ID, "🔒 Room closed.")
}

// handleLikeCallback toggles the user's like on a message of the open room
func (b *Bot) handleLikeCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, value string) {
	if state.Command != "room" {
		return
	}
	chatID := query.Message.Chat.ID
	roomID, _ := state.Data["room_id"].(string)
	messageIDs, _ := state.Data["message_ids"].([]string)

	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= len(messageIDs) {
		return
	}

	if !b.svc.Discussions.LikeMessage(ctx, roomID, messageIDs[idx], displayName(query.From)) {
		b.reply(chatID, "Could not like this message.")
		return
	}

	room, ok := b.svc.Discussions.GetRoom(roomID)
	if !ok {
		return
	}
	if msg := room.FindMessage(messageIDs[idx]); msg != nil {
		b.reply(chatID, fmt.Sprintf("❤️ Message %d now has %d likes.", idx+1, msg.Likes.Len()))
	}
}

// roomError turns a discussion error into a user-facing reply
func roomError(err error) string {
	switch {
	case errors.Is(err, discussion.ErrRoomClosed):
		return "This room is closed."
	case errors.Is(err, discussion.ErrRoomNotFound):
		return "Discussion not found."
	case errors.Is(err, discussion.ErrMessageNotFound):
		return "Message not found."
	case errors.Is(err, discussion.ErrInvalidInput):
		return "Message cannot be empty."
	default:
		return "Could not post. Please try again."
	}
}
