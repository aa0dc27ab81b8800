package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	pollTimeoutSeconds    = 60
	webhookMaxConnections = 40
	webhookPath           = "/telegram-webhook"
)

// Start long-polls Telegram and blocks until Stop is called
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Polling is rejected while a webhook is registered
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds

	b.logger.Info("Waiting for updates")
	for update := range b.api.GetUpdatesChan(u) {
		b.HandleWebhookUpdate(update)
	}
	return nil
}

// Stop ends polling
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
}

// StartWebhook registers baseURL + /telegram-webhook with Telegram
func (b *Bot) StartWebhook(baseURL string) error {
	hook, err := tgbotapi.NewWebhook(baseURL + webhookPath)
	if err != nil {
		return err
	}
	hook.MaxConnections = webhookMaxConnections

	if _, err := b.api.Request(hook); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", baseURL))
		return err
	}

	if info, err := b.api.GetWebhookInfo(); err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}
	return nil
}

// HandleWebhookUpdate dispatches one update from either polling or the webhook.
// Updates from users outside the allow list are dropped. It is safe to call
// concurrently; updates of the same user are handled one at a time.
func (b *Bot) HandleWebhookUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if !b.authorized(msg.From, "message") {
			b.reply(msg.Chat.ID, "Sorry, you are not authorized to use this bot.")
			return
		}
		mu := b.userLock(msg.From.ID)
		mu.Lock()
		defer mu.Unlock()
		b.handleMessage(msg)
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		if !b.authorized(update.CallbackQuery.From, "callback") {
			return
		}
		mu := b.userLock(update.CallbackQuery.From.ID)
		mu.Lock()
		defer mu.Unlock()
		b.handleCallbackQuery(update.CallbackQuery)
	}
}

func (b *Bot) authorized(user *tgbotapi.User, kind string) bool {
	if b.allowedUsers[user.ID] {
		return true
	}
	b.logger.Warn("Unauthorized access attempt",
		zap.String("kind", kind),
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
	)
	return false
}
