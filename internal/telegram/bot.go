// Package telegram exposes the planner through a Telegram bot driven by
// webhook updates.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"recipe-planner/internal/app"
	"recipe-planner/internal/apperr"
	"recipe-planner/internal/config"
	"recipe-planner/internal/metrics"
)

const (
	messageTimeout = 2 * time.Minute

	callbackSaveClip    = "clip|save"
	callbackDiscardClip = "clip|discard"
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API and the application service.
type Bot struct {
	api      Sender
	app      *app.App
	sessions *SessionStore
	allowed  map[int64]bool
	dataDirs []string
	log      *zap.Logger

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API and registers the webhook when one
// is configured.
func NewBot(cfg *config.Config, a *app.App, sessions *SessionStore, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info("webhook set", zap.String("description", resp.Description))
	}

	b := newBot(api, a, sessions, cfg.TelegramAllowedUserIDs, log)
	b.dataDirs = []string{cfg.DatabasePath, cfg.StoragePath}
	return b, nil
}

func newBot(api Sender, a *app.App, sessions *SessionStore, allowedIDs []int64, log *zap.Logger) *Bot {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &Bot{api: api, app: a, sessions: sessions, allowed: allowed, log: log}
}

// WebhookHandler receives updates pushed by Telegram. Updates are answered
// in the background so Telegram is acknowledged immediately.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.log.Warn("error parsing update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
			defer cancel()
			b.HandleUpdate(ctx, update)
		}()
	})
}

// Wait blocks until in-flight updates are answered.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate answers one update from an allowed user.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if b.isAllowed(update.CallbackQuery.From) {
			b.handleCallbackQuery(ctx, update.CallbackQuery)
		}
	case update.Message != nil:
		if b.isAllowed(update.Message.From) {
			b.processMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) isAllowed(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	if !b.allowed[user.ID] {
		b.log.Warn("unauthorized access attempt",
			zap.Int64("user_id", user.ID),
			zap.String("username", user.UserName),
		)
		return false
	}
	return true
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "":
		return
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClipperRequest(ctx, msg.Chat.ID, text)
	default:
		b.handlePlannerRequest(ctx, msg.Chat.ID, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "plan":
		plan, err := b.app.Plan(ctx)
		if err != nil {
			b.sendError(chatID, "Error loading plan", err)
			return
		}
		b.sendMarkdown(chatID, formatPlanMarkdown(plan, b.app.SlotConfig()))
	case "recipes":
		recipes, err := b.app.ListRecipes(ctx, msg.CommandArguments())
		if err != nil {
			b.sendError(chatID, "Error loading recipes", err)
			return
		}
		b.sendMarkdown(chatID, formatRecipesMarkdown(recipes))
	case "shopping":
		list, err := b.app.ShoppingList(ctx)
		if err != nil {
			b.sendError(chatID, "Error building shopping list", err)
			return
		}
		b.sendMarkdown(chatID, formatShoppingMarkdown(list))
	case "clear":
		if _, err := b.app.ClearPlan(ctx); err != nil {
			b.sendError(chatID, "Error clearing plan", err)
			return
		}
		b.sendMarkdown(chatID, "🧹 *Meal plan cleared.*")
	case "usage":
		b.handleUsageCommand(ctx, chatID)
	default:
		b.sendMarkdown(chatID, helpText)
	}
}

const helpText = `🍳 *Recipe Planner*

Send a description like _"quick vegetarian dinners"_ to generate this week's plan.
Send a recipe URL to clip it into your catalog.

/plan - show the weekly plan
/recipes [search] - list recipes
/shopping - shopping list for the plan
/clear - clear the plan
/usage - token usage and health`

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, url string) {
	sent, err := b.sendMarkdown(chatID, "✂️ *Clipping recipe...*")
	if err != nil {
		return
	}

	draft, err := b.app.ClipRecipe(ctx, url)
	if err != nil {
		b.editError(chatID, sent.MessageID, "Error clipping recipe", err)
		return
	}
	if err := b.sessions.Put(ctx, chatID, draft); err != nil {
		b.editError(chatID, sent.MessageID, "Error keeping the clipped recipe", err)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Save to catalog", callbackSaveClip),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Discard", callbackDiscardClip),
		),
	)
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, formatDraftMarkdown(draft))
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = &keyboard
	b.send(edit)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", zap.Error(err))
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	sess, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.editError(chatID, messageID, "Error loading the clipped recipe", err)
		return
	}
	if sess == nil {
		b.editMarkdown(chatID, messageID, "⌛ *This clipped recipe has expired.* Send the link again.")
		return
	}

	switch query.Data {
	case callbackSaveClip:
		r, err := b.app.AddRecipe(ctx, sess.Draft.Input())
		if err != nil {
			b.editError(chatID, messageID, "Error saving recipe", err)
			return
		}
		if err := b.sessions.Delete(ctx, chatID); err != nil {
			b.log.Warn("failed to delete session", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.editMarkdown(chatID, messageID, fmt.Sprintf("✅ *Recipe Saved!*\n\n*%s* is now in your catalog.", escapeMarkdown(r.Name)))
	case callbackDiscardClip:
		if err := b.sessions.Delete(ctx, chatID); err != nil {
			b.log.Warn("failed to delete session", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.editMarkdown(chatID, messageID, "🗑 *Discarded.*")
	}
}

func (b *Bot) handlePlannerRequest(ctx context.Context, chatID int64, request string) {
	sent, err := b.sendMarkdown(chatID, "🧑‍🍳 *Thinking...* \n(Picking recipes for your week)")
	if err != nil {
		return
	}

	b.log.Info("generating plan", zap.String("request", request))
	plan, err := b.app.GeneratePlan(ctx, request)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			b.editMarkdown(chatID, sent.MessageID, "⏳ *A plan is already being generated.* Try again in a moment.")
			return
		}
		b.editError(chatID, sent.MessageID, "Error generating plan", err)
		return
	}
	b.editMarkdown(chatID, sent.MessageID, formatPlanMarkdown(plan, b.app.SlotConfig()))
}

func (b *Bot) handleUsageCommand(ctx context.Context, chatID int64) {
	usage, err := b.app.DailyUsage(ctx, 7)
	if err != nil {
		b.sendError(chatID, "Error fetching metrics", err)
		return
	}
	b.sendMarkdown(chatID, formatUsageMarkdown(usage, metrics.GetSysHealth(b.dataDirs...)))
}

// --- Sending ---

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	sent, err := b.api.Send(c)
	if err != nil {
		b.log.Warn("failed to send telegram message", zap.Error(err))
	}
	return sent, err
}

func (b *Bot) sendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return b.send(msg)
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) sendError(chatID int64, title string, err error) {
	b.log.Error(title, zap.Error(err))
	b.sendMarkdown(chatID, errorText(title, err))
}

func (b *Bot) editError(chatID int64, messageID int, title string, err error) {
	b.log.Error(title, zap.Error(err))
	b.editMarkdown(chatID, messageID, errorText(title, err))
}

func errorText(title string, err error) string {
	msg := err.Error()
	if appErr, ok := apperr.As(err); ok {
		msg = appErr.Message
	}
	safeErr := strings.ReplaceAll(msg, "`", "'")
	return fmt.Sprintf("❌ *%s:*\n```\n%s\n```", title, safeErr)
}
