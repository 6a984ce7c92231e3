package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mau89/Day2SettingsAI/internal/envelope"
)

// Responder produces envelopes for user text. *yandexgpt.Client is the
// production implementation; tests substitute a fake.
type Responder interface {
	GenerateResponse(ctx context.Context, userText string) *envelope.Envelope
	TestConnection(ctx context.Context) *envelope.Envelope
}

// Bot routes Telegram updates: commands, inline-keyboard callbacks, and
// free-form text relayed into the completion pipeline. Replies carry the
// envelope's indented JSON form.
type Bot struct {
	api       *Client
	responder Responder
	allowed   map[int64]struct{}
	logger    *slog.Logger
}

// NewBot wires a Bot API client to a responder. allowedChatIDs empty
// means every chat is served.
func NewBot(api *Client, responder Responder, allowedChatIDs []int64, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	var allowed map[int64]struct{}
	if len(allowedChatIDs) > 0 {
		allowed = make(map[int64]struct{}, len(allowedChatIDs))
		for _, id := range allowedChatIDs {
			allowed[id] = struct{}{}
		}
	}
	return &Bot{
		api:       api,
		responder: responder,
		allowed:   allowed,
		logger:    logger,
	}
}

// Run long-polls for updates until ctx is cancelled. Poll failures back
// off and retry; the loop only exits on cancellation.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("telegram bot started", "poll_timeout_sec", pollTimeoutSec, "allowed_chats", len(b.allowed))

	var offset int64
	backoff := 2 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			b.logger.Info("telegram bot stopping")
			return nil
		}

		updates, next, err := b.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("telegram bot stopping")
				return nil
			}
			b.logger.Warn("getUpdates failed", "error", err)
			if !sleepOrCancel(ctx, backoff) {
				return nil
			}
			if backoff < 15*time.Second {
				backoff *= 2
				if backoff > 15*time.Second {
					backoff = 15 * time.Second
				}
			}
			continue
		}
		backoff = 2 * time.Second
		offset = next

		for _, upd := range updates {
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	log := b.logger.With("update_id", upd.UpdateID, "request_id", uuid.NewString())

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, log, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, log, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, log *slog.Logger, msg *Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if chatID == 0 || text == "" {
		return
	}

	if !b.chatAllowed(chatID) {
		log.Warn("message from unauthorized chat", "chat_id", chatID)
		b.send(ctx, log, chatID, "Unauthorized chat", nil)
		return
	}

	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		b.send(ctx, log, chatID, welcomeText, startKeyboard())
	case text == "/help":
		b.send(ctx, log, chatID, helpText, nil)
	case text == "/test":
		b.send(ctx, log, chatID, "🔄 Testing the YandexGPT connection...", nil)
		resp := b.responder.TestConnection(ctx)
		b.send(ctx, log, chatID, resp.JSON(), nil)
	default:
		b.relay(ctx, log, chatID, text)
	}
}

// relay sends free-form text through the completion pipeline and replies
// with the resulting envelope.
func (b *Bot) relay(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := b.api.SendTyping(ctx, chatID); err != nil {
		// Cosmetic only; the reply still goes out.
		log.Debug("sendChatAction failed", "error", err)
	}

	resp := b.responder.GenerateResponse(ctx, text)
	log.Info("response generated", "type", string(resp.Type), "confidence", resp.Confidence)

	b.send(ctx, log, chatID, resp.JSON(), nil)
}

func (b *Bot) handleCallback(ctx context.Context, log *slog.Logger, cb *CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Debug("answerCallbackQuery failed", "error", err)
	}
	if cb.Message == nil || !b.chatAllowed(cb.Message.Chat.ID) {
		return
	}

	resp, ok := cannedCallbackEnvelope(cb.Data)
	if !ok {
		log.Warn("unknown callback data", "data", cb.Data)
		return
	}

	if err := b.api.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, resp.JSON()); err != nil {
		log.Warn("editMessageText failed", "error", err)
	}
}

func (b *Bot) chatAllowed(chatID int64) bool {
	if b.allowed == nil {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) send(ctx context.Context, log *slog.Logger, chatID int64, text string, markup *InlineKeyboardMarkup) {
	if err := b.api.SendMessage(ctx, chatID, text, markup); err != nil {
		log.Warn("sendMessage failed", "chat_id", chatID, "error", err)
	}
}

// sleepOrCancel waits for d, returning false if ctx is cancelled first.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

const welcomeText = `🤖 Welcome to the Settings AI Agent!

I help with system configuration and solving technical problems.

Available commands:
/start - Start working
/help - Show help
/test - Test the YandexGPT connection

Just describe your problem or configuration question!`

const helpText = `📖 How to use this bot

I can help with:
• Operating system configuration
• Solving software problems
• Network configuration
• Troubleshooting
• Performance tuning

Describe your problem or question and I will reply with a structured answer including step-by-step instructions.

Example requests:
• "The internet is not working on Windows 10"
• "How do I set up SSH on Ubuntu?"
• "My computer is running slowly"
• "An error occurs while installing a program"`

// Callback data values for the start keyboard.
const (
	callbackSettings        = "settings"
	callbackTroubleshooting = "troubleshooting"
	callbackGeneral         = "general"
)

func startKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "🔧 System settings", CallbackData: callbackSettings}},
			{{Text: "🐛 Troubleshooting", CallbackData: callbackTroubleshooting}},
			{{Text: "ℹ️ General information", CallbackData: callbackGeneral}},
		},
	}
}

// cannedCallbackEnvelope returns the fixed info envelope for an inline
// keyboard selection. These follow the same factory rules as every other
// envelope; only the timestamp varies between constructions.
func cannedCallbackEnvelope(data string) (*envelope.Envelope, bool) {
	var (
		e   *envelope.Envelope
		err error
	)
	switch data {
	case callbackSettings:
		e, err = envelope.Info(
			"🔧 Pick a settings category or describe your problem",
			envelope.WithData(map[string]any{
				"categories": []string{"System settings", "Network parameters", "Security", "Performance"},
			}),
			envelope.WithActions("Just write what you need to configure!"),
		)
	case callbackTroubleshooting:
		e, err = envelope.Info(
			"🐛 Describe the problem you ran into",
			envelope.WithData(map[string]any{
				"problem_types": []string{"Startup errors", "Network problems", "Slow operation", "Hardware issues"},
			}),
			envelope.WithActions("The more detail you give, the more precise the solution!"),
		)
	case callbackGeneral:
		e, err = envelope.Info(
			"ℹ️ Ask any IT or system configuration question",
			envelope.WithData(map[string]any{
				"question_types": []string{"How something works", "Recommendations", "Explaining terms", "Best practices"},
			}),
			envelope.WithActions("I will do my best to give a thorough answer!"),
		)
	default:
		return nil, false
	}
	if err != nil {
		// Fixed inputs; construction cannot fail in practice.
		return nil, false
	}
	return e, true
}
