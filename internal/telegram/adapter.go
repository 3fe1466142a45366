package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/bedrockchat/internal/gateway"
	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot         *tgbotapi.BotAPI
	gateway     *gateway.Gateway
	sessions    types.SessionStore
	transcripts types.TranscriptStore
}

// New creates a Telegram adapter.
func New(token string, gw *gateway.Gateway, sessions types.SessionStore, transcripts types.TranscriptStore) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:         bot,
		gateway:     gw,
		sessions:    sessions,
		transcripts: transcripts,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Handle commands
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID
	prompt := &types.InboundPrompt{
		Source:     "telegram",
		SessionKey: buildSessionKey(msg.From.ID, msg.Chat.ID),
		UserID:     strconv.FormatInt(msg.From.ID, 10),
		Text:       msg.Text,
	}

	err := a.gateway.HandleInbound(ctx, prompt,
		gateway.WithOnComplete(func(reply string) {
			a.sendResponse(chatID, reply)
		}),
		gateway.WithOnError(func(err error) {
			log.Printf("turn error: %v", err)
			a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
		}),
	)
	if err != nil {
		log.Printf("handle inbound error: %v", err)
		a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	key := buildSessionKey(msg.From.ID, msg.Chat.ID)

	switch msg.Command() {
	case "start":
		a.sendResponse(chatID, "Hello! Ask me anything and I'll answer from the knowledge base. Use /reset to start over.")

	case "reset":
		if err := a.gateway.Reset(ctx, key); err != nil {
			log.Printf("reset error: %v", err)
			a.sendResponse(chatID, "Error resetting session.")
			return
		}
		a.sendResponse(chatID, "Session reset. Previous conversation has been archived.")

	case "trace":
		sess, err := a.gateway.Session(ctx, key)
		if err != nil {
			a.sendResponse(chatID, "Error fetching trace.")
			return
		}
		a.sendResponse(chatID, formatTrace(sess.Trace()))

	case "sources":
		sess, err := a.gateway.Session(ctx, key)
		if err != nil {
			a.sendResponse(chatID, "Error fetching sources.")
			return
		}
		a.sendResponse(chatID, formatCitations(sess.Citations()))

	case "status":
		sid, err := a.sessions.ResolveOrCreate(ctx, key, "default")
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		count, err := a.transcripts.Count(ctx, sid)
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		a.sendResponse(chatID, fmt.Sprintf("Session: %s\nMessages: %d", sid, count))

	default:
		a.sendResponse(chatID, "Unknown command. Available: /start, /reset, /trace, /sources, /status")
	}
}

// formatTrace renders the step-grouped trace of the most recent response
// as a phase-by-phase summary.
func formatTrace(summary *trace.Summary) string {
	if summary == nil || summary.TotalSteps == 0 {
		return "No trace available yet. Ask a question first."
	}

	var b strings.Builder
	for _, phase := range summary.Phases {
		fmt.Fprintf(&b, "*%s*\n", phase.Phase)
		if !phase.HasTrace {
			b.WriteString("  no trace\n")
			continue
		}
		for _, step := range phase.Steps {
			fmt.Fprintf(&b, "  Step %d: %d event(s)\n", step.Number, len(step.Events))
		}
	}
	fmt.Fprintf(&b, "Total steps: %d", summary.TotalSteps)
	return b.String()
}

// formatCitations lists the cited reference locations of the most recent
// response, numbered the same way as the injected footnotes.
func formatCitations(citations []agent.Citation) string {
	var b strings.Builder
	n := 0
	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			n++
			fmt.Fprintf(&b, "[%d] %s\n", n, ref.Location.S3Location.URI)
		}
	}
	if n == 0 {
		return "No sources cited in the last response."
	}
	return strings.TrimRight(b.String(), "\n")
}

// SendTo delivers a message to the chat embedded in a session key of the
// form "telegram:<userID>:<chatID>". Used for out-of-turn delivery.
func (a *Adapter) SendTo(sessionKey, text string) error {
	chatID, err := parseChatID(sessionKey)
	if err != nil {
		return err
	}
	a.sendResponse(chatID, text)
	return nil
}

// parseChatID extracts the chat id from a telegram session key.
func parseChatID(sessionKey string) (int64, error) {
	parts := strings.Split(sessionKey, ":")
	if len(parts) != 3 || parts[0] != "telegram" {
		return 0, fmt.Errorf("not a telegram session key: %s", sessionKey)
	}
	chatID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse chat id from %s: %w", sessionKey, err)
	}
	return chatID, nil
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	parts := splitMessage(text)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				log.Printf("send message error: %v", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func buildSessionKey(userID, chatID int64) types.SessionKey {
	return types.NewSessionKey("telegram",
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(chatID, 10),
	)
}
