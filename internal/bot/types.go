package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/agenda"
	"bookshelf/internal/catalog"
	"bookshelf/internal/discussion"
	"bookshelf/internal/profile"
	"bookshelf/internal/recommend"
)

// Services are the engines the bot drives
type Services struct {
	Agenda      *agenda.Engine
	Discussions *discussion.Engine
	Recommender *recommend.Engine
	Catalog     catalog.Searcher
	Profile     *profile.Profile
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	svc          Services
	allowedUsers map[int64]bool
	states       map[int64]*ConversationState
	statesMu     sync.Mutex
	userLocks    map[int64]*sync.Mutex
	logger       *zap.Logger
}

// ConversationState tracks the state of multi-step commands.
// Step -1 marks a finished conversation.
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]interface{}
}

const stepDone = -1
