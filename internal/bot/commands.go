package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/models"
)

const (
	searchResultLimit = 8
	recentRoomLimit   = 8
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to Bookshelf! 📚

Available commands:
/search - Find books and add them to your list
/list - Show your reading agenda
/begin - Start reading a book from your list
/reading - Log a session or finish a book
/goal - Set a reading goal
/stats - View reading statistics
/recommend - Get book recommendations
/discuss - Join a book discussion
/new_room - Open a discussion for a book
/bookmarks - Show bookmarked books
/history - Show recent searches
/export - Download your agenda as JSON`

	b.reply(message.Chat.ID, text)
}

// handleSearchStart searches right away when a query follows the command,
// otherwise asks for one
func (b *Bot) handleSearchStart(ctx context.Context, message *tgbotapi.Message) {
	state := newState("search", 1)
	b.setState(message.From.ID, state)

	if query := strings.TrimSpace(message.CommandArguments()); query != "" {
		b.runSearch(ctx, message.Chat.ID, state, query)
		return
	}
	b.reply(message.Chat.ID, "🔎 What are you looking for? Send a title, author or topic.")
}

func (b *Bot) runSearch(ctx context.Context, chatID int64, state *ConversationState, query string) {
	b.svc.Profile.RecordSearch(ctx, query)

	books, err := b.svc.Catalog.SearchBooks(ctx, query, searchResultLimit)
	if err != nil {
		b.logger.Warn("Book search failed", zap.String("query", query), zap.Error(err))
		b.reply(chatID, "Book search is unavailable right now. Please try again later.")
		state.Step = stepDone
		return
	}
	if len(books) == 0 {
		b.reply(chatID, fmt.Sprintf("No books found for %q.", query))
		state.Step = stepDone
		return
	}
	if len(books) > searchResultLimit {
		books = books[:searchResultLimit]
	}

	state.Data["results"] = books
	state.Step = 2

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Results for %q:\n\n", query))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, book := range books {
		text.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatBook(book)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("➕ %d", i+1), fmt.Sprintf("add:%d", i)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔖 %d", i+1), fmt.Sprintf("bookmark:%d", i)),
		))
	}
	b.replyWithKeyboard(chatID, text.String(), rows)
}

// handleList shows the agenda summary and the to-read queue
func (b *Bot) handleList(message *tgbotapi.Message) {
	summary := b.svc.Agenda.GetAgendaSummary()

	var text strings.Builder
	text.WriteString("📚 Your agenda\n\n")
	text.WriteString(fmt.Sprintf("To read: %d (high priority: %d)\nReading: %d\nFinished: %d\nActive goals: %d\n",
		summary.ToRead, summary.HighPriority, summary.Reading, summary.Finished, summary.ActiveGoals))

	if len(summary.NextUp) > 0 {
		text.WriteString("\nNext up:\n")
		for i, item := range summary.NextUp {
			text.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, formatBook(item.BookRef), item.Priority))
		}
	}

	reading := b.svc.Agenda.GetBooksByStatus(models.StatusReading)
	if len(reading) > 0 {
		text.WriteString("\nCurrently reading:\n")
		for _, item := range reading {
			text.WriteString(fmt.Sprintf("• %s, %s\n", item.Title, formatProgress(item)))
		}
	}

	b.reply(message.Chat.ID, text.String())
}

// handleBeginStart lists to-read books to start
func (b *Bot) handleBeginStart(message *tgbotapi.Message) {
	toRead := b.svc.Agenda.GetBooksByStatus(models.StatusToRead)
	if len(toRead) == 0 {
		b.reply(message.Chat.ID, "Your reading list is empty. Use /search to add books.")
		return
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, item := range toRead {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(truncate(item.Title, 30), "begin:"+item.ItemID))
	}
	b.replyWithKeyboard(message.Chat.ID, "📖 Which book are you starting?", twoColumns(buttons))
}

// handleReading lists books being read with session and finish buttons
func (b *Bot) handleReading(message *tgbotapi.Message) {
	reading := b.svc.Agenda.GetBooksByStatus(models.StatusReading)
	if len(reading) == 0 {
		b.reply(message.Chat.ID, "You are not reading anything right now. Use /begin to start a book.")
		return
	}

	var text strings.Builder
	text.WriteString("📖 Currently reading:\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range reading {
		text.WriteString(fmt.Sprintf("• %s, %s\n", item.Title, formatProgress(item)))
		label := truncate(item.Title, 20)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ "+label, "session:"+item.ItemID),
			tgbotapi.NewInlineKeyboardButtonData("✅ "+label, "finish:"+item.ItemID),
		))
	}
	b.replyWithKeyboard(message.Chat.ID, text.String(), rows)
}

// handleGoalStart asks for the goal timeframe
func (b *Bot) handleGoalStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, newState("goal", 1))

	b.replyWithKeyboard(message.Chat.ID, "🎯 Select goal period:", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 This month", "goal:"+string(models.TimeframeMonth)),
			tgbotapi.NewInlineKeyboardButtonData("📅 This quarter", "goal:"+string(models.TimeframeQuarter)),
			tgbotapi.NewInlineKeyboardButtonData("📅 This year", "goal:"+string(models.TimeframeYear)),
		),
	})
}

// handleStats shows reading statistics and goals
func (b *Bot) handleStats(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, formatStats(b.svc.Agenda.GetStats(), b.svc.Agenda.GetActiveGoals()))
}

// handleRecommend shows recommendations with add buttons
func (b *Bot) handleRecommend(ctx context.Context, message *tgbotapi.Message) {
	recs := b.svc.Recommender.GenerateRecommendations(ctx)

	books := make([]models.BookRef, 0, len(recs))
	var text strings.Builder
	text.WriteString("✨ Recommended for you:\n\n")
	var buttons []tgbotapi.InlineKeyboardButton
	for i, rec := range recs {
		books = append(books, rec.BookRef)
		text.WriteString(fmt.Sprintf("%d. %s\n   %s\n", i+1, formatBook(rec.BookRef), rec.Reason))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("➕ %d", i+1), fmt.Sprintf("add:%d", i)))
	}

	state := newState("recommend", 1)
	state.Data["results"] = books
	b.setState(message.From.ID, state)

	b.replyWithKeyboard(message.Chat.ID, text.String(), twoColumns(buttons))
}

// handleDiscuss lists recent active rooms
func (b *Bot) handleDiscuss(message *tgbotapi.Message) {
	rooms := b.svc.Discussions.GetRecentDiscussions(recentRoomLimit)
	if query := strings.TrimSpace(message.CommandArguments()); query != "" {
		rooms = b.svc.Discussions.SearchDiscussions(query)
	}
	if len(rooms) == 0 {
		b.reply(message.Chat.ID, "No discussions found. Use /new_room to open one.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, room := range rooms {
		label := fmt.Sprintf("💬 %s (%d)", truncate(room.Name, 30), len(room.Messages))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, "room:"+room.RoomID)))
	}
	b.replyWithKeyboard(message.Chat.ID, "💬 Discussions:", rows)
}

// handleNewRoomStart lists agenda books to open a room for
func (b *Bot) handleNewRoomStart(message *tgbotapi.Message) {
	var items []models.AgendaItem
	for _, status := range []models.Status{models.StatusReading, models.StatusFinished, models.StatusToRead} {
		items = append(items, b.svc.Agenda.GetBooksByStatus(status)...)
	}
	if len(items) == 0 {
		b.reply(message.Chat.ID, "Add a book to your agenda first with /search.")
		return
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, item := range items {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(truncate(item.Title, 30), "roombook:"+item.ItemID))
	}
	b.replyWithKeyboard(message.Chat.ID, "💬 Which book do you want to discuss?", twoColumns(buttons))
}

// handleBookmarks lists bookmarked books
func (b *Bot) handleBookmarks(message *tgbotapi.Message) {
	bookmarks := b.svc.Profile.Bookmarks()
	if len(bookmarks) == 0 {
		b.reply(message.Chat.ID, "No bookmarks yet. Use 🔖 in /search results.")
		return
	}

	var text strings.Builder
	text.WriteString("🔖 Bookmarks:\n\n")
	for i, book := range bookmarks {
		text.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatBook(book)))
	}
	b.reply(message.Chat.ID, text.String())
}

// handleHistory lists recent searches
func (b *Bot) handleHistory(message *tgbotapi.Message) {
	history := b.svc.Profile.SearchHistory()
	if len(history) == 0 {
		b.reply(message.Chat.ID, "No searches yet.")
		return
	}
	b.reply(message.Chat.ID, "🕘 Recent searches:\n\n"+strings.Join(history, "\n"))
}

// handleExport sends the agenda export as a JSON document
func (b *Bot) handleExport(message *tgbotapi.Message) {
	data, err := b.svc.Agenda.ExportAgendaData()
	if err != nil {
		b.logger.Error("Failed to export agenda", zap.Error(err))
		b.reply(message.Chat.ID, "Export failed. Please try again.")
		return
	}

	doc := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{
		Name:  "bookshelf-agenda.json",
		Bytes: []byte(data),
	})
	b.sendMessage(doc)
}
