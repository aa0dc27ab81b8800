package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookshelf/internal/agenda"
	"bookshelf/internal/api"
	"bookshelf/internal/bot"
	"bookshelf/internal/catalog"
	"bookshelf/internal/catalog/googlebooks"
	"bookshelf/internal/catalog/openlibrary"
	"bookshelf/internal/config"
	"bookshelf/internal/discussion"
	"bookshelf/internal/models"
	"bookshelf/internal/profile"
	"bookshelf/internal/recommend"
	"bookshelf/internal/storage"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger

	backend storage.Storage
	store   *storage.Persistent

	agenda      *agenda.Engine
	discussions *discussion.Engine
	recommender *recommend.Engine
	catalog     catalog.Searcher
	profile     *profile.Profile

	bot    *bot.Bot
	server *http.Server
}

// LoadConfig reads .env if present and then the environment
func LoadConfig() (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// New opens storage and builds the engines. Front-ends are started by Run.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{config: cfg, logger: logger}

	logger.Info("Starting Bookshelf...")

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	a.store = storage.NewPersistent(ctx, backend, logger.Named("storage"))

	a.initEngines(ctx)
	return a, nil
}

// NewWithStore builds the engines over an already opened backend
func NewWithStore(ctx context.Context, cfg *config.Config, backend storage.Storage, logger *zap.Logger) *App {
	a := &App{config: cfg, logger: logger, backend: backend}
	a.store = storage.NewPersistent(ctx, backend, logger.Named("storage"))
	a.initEngines(ctx)
	return a
}

func (a *App) initEngines(ctx context.Context) {
	a.catalog = catalog.NewMulti(a.logger.Named("catalog"),
		googlebooks.NewClient(a.config.GoogleBooksAPIKey),
		openlibrary.NewClient(),
	)
	a.agenda = agenda.NewEngine(ctx, a.store, a.logger.Named("agenda"))
	a.discussions = discussion.NewEngine(ctx, a.store, a.logger.Named("discussion"))
	a.profile = profile.New(ctx, a.store, a.logger.Named("profile"), a.config.UserName)
	a.recommender = recommend.NewEngine(a.catalog, a.agenda, a.logger.Named("recommend"),
		recommend.WithPreferences(a.profile),
		recommend.WithConfig(recommendConfig(a.config.Recommendations)),
	)
}

// recommendConfig maps the YAML overlay onto the engine config
func recommendConfig(file config.RecommendationFile) recommend.Config {
	cfg := recommend.Config{
		Limit:         file.Limit,
		DefaultGenres: file.DefaultGenres,
	}
	for _, entry := range file.Curated {
		reason := entry.Reason
		if reason == "" {
			reason = "Curated pick"
		}
		cfg.Fallback = append(cfg.Fallback, models.RecommendedBook{
			BookRef: models.BookRef{
				ID:            entry.ID,
				Title:         entry.Title,
				Authors:       entry.Authors,
				PageCount:     entry.PageCount,
				PublishedDate: entry.Published,
				Categories:    entry.Genres,
				Source:        recommend.StrategyCurated,
			},
			RelevanceScore: 0.5,
			Strategy:       recommend.StrategyCurated,
			Reason:         reason,
		})
	}
	return cfg
}

func (a *App) Agenda() *agenda.Engine { return a.agenda }
func (a *App) Discussions() *discussion.Engine { return a.discussions }
func (a *App) Recommender() *recommend.Engine { return a.recommender }
func (a *App) Profile() *profile.Profile { return a.profile }
func (a *App) Store() *storage.Persistent { return a.store }
func (a *App) Logger() *zap.Logger { return a.logger }

// ClearAll wipes the agenda, discussions and profile
func (a *App) ClearAll(ctx context.Context) {
	a.agenda.Clear(ctx)
	a.discussions.Clear(ctx)
	a.profile.Clear(ctx)
	a.store.Clear(ctx)
	a.logger.Info("All data cleared")
}

// initBot initializes the Telegram bot when a token is configured
func (a *App) initBot() error {
	if a.config.TelegramToken == "" {
		a.logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
		return nil
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, bot.Services{
		Agenda:      a.agenda,
		Discussions: a.discussions,
		Recommender: a.recommender,
		Catalog:     a.catalog,
		Profile:     a.profile,
	}, a.config.AllowedUserIDs, a.logger.Named("bot"))
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("allowed_users", a.config.AllowedUserIDs))

	a.bot = telegramBot
	return nil
}

// Handler builds the HTTP routes: the JSON API, the root status page and the webhook
func (a *App) Handler() http.Handler {
	server := api.NewServer(api.Services{
		Agenda:      a.agenda,
		Discussions: a.discussions,
		Recommender: a.recommender,
		Profile:     a.profile,
		Store:       a.store,
	}, a.logger.Named("api"))
	r := server.Router()

	r.GET("/", func(c *gin.Context) {
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		if a.bot == nil {
			mode = "no bot"
		}
		c.String(http.StatusOK, "Bookshelf is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	r.POST("/telegram-webhook", func(c *gin.Context) {
		if a.bot == nil {
			c.Status(http.StatusNotFound)
			return
		}

		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			c.Status(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleWebhookUpdate(update)

		c.Status(http.StatusOK)
	})

	return r
}

// initHTTPServer starts the HTTP server in the background
func (a *App) initHTTPServer() {
	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      a.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the front-ends and blocks until shutdown
func (a *App) Run() error {
	if a.config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := a.initBot(); err != nil {
		return err
	}
	a.initHTTPServer()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in appropriate mode
	switch {
	case a.bot == nil:
	case a.config.WebhookMode:
		// Webhook mode: configure webhook and wait for HTTP requests
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
	default:
		// Polling mode: actively poll Telegram servers
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			if err := a.bot.Start(); err != nil {
				a.logger.Error("Bot stopped", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
	}

	if a.bot != nil {
		a.bot.Stop()
	}

	if err := a.Close(); err != nil {
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// Close releases the storage backend
func (a *App) Close() error {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("Error closing storage", zap.Error(err))
		return err
	}
	return nil
}
