package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.clearState(message.From.ID)
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	if state, ok := b.state(userID); ok {
		switch {
		case state.Step == stepDone:
			b.clearState(userID)
		case message.IsCommand():
			// Any command cancels an ongoing conversation
			b.clearState(userID)
		default:
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		b.reply(message.Chat.ID, "Use /help to see available commands.")
		return
	}

	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case "search":
		b.handleSearchStart(ctx, message)
	case "list":
		b.handleList(message)
	case "begin":
		b.handleBeginStart(message)
	case "reading":
		b.handleReading(message)
	case "goal":
		b.handleGoalStart(message)
	case "stats":
		b.handleStats(message)
	case "recommend":
		b.handleRecommend(ctx, message)
	case "discuss":
		b.handleDiscuss(message)
	case "new_room":
		b.handleNewRoomStart(message)
	case "bookmarks":
		b.handleBookmarks(message)
	case "history":
		b.handleHistory(message)
	case "export":
		b.handleExport(message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	if query.Message == nil {
		return
	}

	// Answer the callback query to remove loading state
	if b.api != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Warn("Failed to answer callback", zap.Error(err))
		}
	}

	userID := query.From.ID
	ctx := context.Background()
	prefix, value, _ := strings.Cut(query.Data, ":")

	// Actions that start from a list rather than a conversation
	switch prefix {
	case "begin":
		b.handleBeginCallback(ctx, query, value)
		return
	case "session":
		b.handleSessionCallback(query, value)
		return
	case "finish":
		b.handleFinishCallback(query, value)
		return
	case "room":
		b.handleRoomCallback(ctx, query, value)
		return
	case "closeroom":
		b.handleCloseRoomCallback(ctx, query, value)
		return
	case "roombook":
		b.handleRoomBookCallback(ctx, query, value)
		return
	}

	state, ok := b.state(userID)
	if !ok {
		return
	}

	switch prefix {
	case "add":
		b.handleAddCallback(ctx, query, state, value)
	case "bookmark":
		b.handleBookmarkCallback(ctx, query, state, value)
	case "rate":
		b.handleRateCallback(ctx, query, state, value)
	case "goal":
		b.handleGoalTimeframeCallback(query, state, value)
	case "like":
		b.handleLikeCallback(ctx, query, state, value)
	}

	// Clean up completed conversations
	if state.Step == stepDone {
		b.clearState(userID)
	}
}

// displayName is how a Telegram user appears in discussions
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "Reader"
	}
	if u.UserName != "" {
		return u.UserName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "Reader"
}
