package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
)

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	userID := message.From.ID

	switch state.Command {
	case "search":
		b.runSearch(ctx, message.Chat.ID, state, message.Text)
	case "session":
		b.handleSessionConversation(ctx, message, state)
	case "goal":
		b.handleGoalConversation(ctx, message, state)
	case "finish":
		b.reply(message.Chat.ID, "Please choose a rating with the buttons above.")
	case "room":
		b.handleRoomConversation(ctx, message, state)
	case "recommend":
		// Recommendations only wait for button presses
		state.Step = stepDone
		b.reply(message.Chat.ID, "Use /help to see available commands.")
	}

	// Clean up completed conversations
	if state.Step == stepDone {
		b.clearState(userID)
	}
}

// handleSessionConversation parses "pages minutes" and logs the session
func (b *Bot) handleSessionConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	itemID, _ := state.Data["item_id"].(string)

	fields := strings.Fields(message.Text)
	if len(fields) == 0 || len(fields) > 2 {
		b.reply(message.Chat.ID, "Please send pages and minutes, for example: 25 40")
		return
	}
	pages, err := strconv.Atoi(fields[0])
	if err != nil || pages <= 0 {
		b.reply(message.Chat.ID, "Pages must be a positive number.")
		return
	}
	minutes := 0
	if len(fields) == 2 {
		if minutes, err = strconv.Atoi(fields[1]); err != nil || minutes < 0 {
			b.reply(message.Chat.ID, "Minutes must be a non-negative number.")
			return
		}
	}

	state.Step = stepDone
	if !b.svc.Agenda.AddReadingSession(ctx, itemID, pages, minutes) {
		b.reply(message.Chat.ID, "Could not log the session. Is the book still being read?")
		return
	}

	item, _, _ := b.svc.Agenda.FindItem(itemID)
	b.reply(message.Chat.ID, fmt.Sprintf("⏱ Logged %d pages. %s is now at %s.", pages, item.Title, formatProgress(item)))
}

// handleGoalConversation reads the goal target and creates the goal
func (b *Bot) handleGoalConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	if state.Step != 2 {
		b.reply(message.Chat.ID, "Please select the goal period with the buttons above.")
		return
	}
	timeframe, _ := state.Data["timeframe"].(models.Timeframe)

	target, err := strconv.Atoi(strings.TrimSpace(message.Text))
	if err != nil || target <= 0 {
		b.reply(message.Chat.ID, "Please enter a positive number of books.")
		return
	}

	state.Step = stepDone
	goal, err := b.svc.Agenda.SetReadingGoal(ctx, target, timeframe, "")
	if err != nil {
		b.logger.Warn("Failed to set goal", zap.Error(err))
		b.reply(message.Chat.ID, "Could not set the goal.")
		return
	}

	b.reply(message.Chat.ID, fmt.Sprintf("🎯 Goal set: %s\nProgress: %d/%d, until %s",
		goal.Description, goal.BooksCompleted, goal.TargetBooks, goal.EndDate.Format("2006-01-02")))
}

// handleRoomConversation posts the text to the open room.
// "reply N text" answers message N instead.
func (b *Bot) handleRoomConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	roomID, _ := state.Data["room_id"].(string)
	user := displayName(message.From)

	if messageID, text, ok := parseReply(message.Text, state); ok {
		if _, err := b.svc.Discussions.PostReply(ctx, roomID, messageID, user, text); err != nil {
			b.reply(message.Chat.ID, roomError(err))
			return
		}
		b.reply(message.Chat.ID, "↳ Reply posted.")
		return
	}

	msg, err := b.svc.Discussions.PostMessage(ctx, roomID, user, message.Text, nil)
	if err != nil {
		b.reply(message.Chat.ID, roomError(err))
		return
	}

	messageIDs, _ := state.Data["message_ids"].([]string)
	state.Data["message_ids"] = append(messageIDs, msg.MessageID)
	b.reply(message.Chat.ID, fmt.Sprintf("💬 Posted as message %d.", len(messageIDs)+1))
}

func parseReply(text string, state *ConversationState) (string, string, bool) {
	fields := strings.SplitN(strings.TrimSpace(text), " ", 3)
	if len(fields) < 3 || !strings.EqualFold(fields[0], "reply") {
		return "", "", false
	}
	idx, err := strconv.Atoi(fields[1])
	messageIDs, _ := state.Data["message_ids"].([]string)
	if err != nil || idx < 1 || idx > len(messageIDs) {
		return "", "", false
	}
	return messageIDs[idx-1], fields[2], true
}
