// Package telegram implements the reference bot over long polling.
//
// Each chat gets its own worker goroutine, so orchestration cycles for
// one conversation never overlap while independent chats run
// concurrently.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/driftbot/driftbot/internal/history"
	"github.com/driftbot/driftbot/internal/orchestrator"
)

const maxMessageLen = 4096

// Orchestrator is the slice of the orchestration service the bot drives.
type Orchestrator interface {
	StartConversation(owner string) (string, error)
	Respond(ctx context.Context, conversationID, userText string) (string, error)
	History() *history.Manager
}

// Bot maps Telegram chats to conversations and drives the orchestrator.
type Bot struct {
	token     string
	allowFrom []string
	orch      Orchestrator
	send      func(chatID int64, text string)

	api *tgbotapi.BotAPI

	mu     sync.Mutex
	convs  map[int64]string // chat id → conversation id
	queues map[int64]chan tgbotapi.Update
	wg     sync.WaitGroup
}

// NewBot creates a Bot. allowFrom is a user-id/username allowlist;
// empty allows everyone.
func NewBot(token string, allowFrom []string, orch Orchestrator) *Bot {
	b := &Bot{
		token:     token,
		allowFrom: allowFrom,
		orch:      orch,
		convs:     make(map[int64]string),
		queues:    make(map[int64]chan tgbotapi.Update),
	}
	b.send = b.sendAPI
	return b
}

// Run long-polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	api, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	b.api = api
	slog.Info("telegram: connected", "username", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.drain()
			return ctx.Err()
		}
	}
}

// dispatch enqueues the update on its chat's worker, starting one if
// needed. The per-chat queue is what serializes orchestration cycles.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	senderID := fmt.Sprintf("%d", msg.From.ID)
	if !b.isAllowed(senderID, msg.From.UserName) {
		slog.Warn("telegram: access denied", "sender", senderID, "username", msg.From.UserName)
		return
	}

	b.mu.Lock()
	queue, ok := b.queues[msg.Chat.ID]
	if !ok {
		queue = make(chan tgbotapi.Update, 16)
		b.queues[msg.Chat.ID] = queue
		b.wg.Add(1)
		go b.worker(ctx, queue)
	}
	b.mu.Unlock()

	select {
	case queue <- update:
	default:
		slog.Warn("telegram: chat queue full, dropping update", "chat", msg.Chat.ID)
	}
}

func (b *Bot) worker(ctx context.Context, queue <-chan tgbotapi.Update) {
	defer b.wg.Done()
	for {
		select {
		case update := <-queue:
			b.handleUpdate(ctx, update)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) drain() {
	b.wg.Wait()
}

func (b *Bot) isAllowed(senderID, username string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, allowed := range b.allowFrom {
		if allowed == senderID || (username != "" && allowed == username) {
			return true
		}
	}
	return false
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	convID, err := b.conversationFor(msg)
	if err != nil {
		slog.Error("telegram: conversation setup failed", "err", err)
		b.reply(msg.Chat.ID, "I couldn't start a conversation. Please try again.")
		return
	}

	// Typing indicator while the orchestrator works.
	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go b.typingLoop(typingCtx, msg.Chat.ID)

	text, err := b.orch.Respond(ctx, convID, msg.Text)
	if err != nil {
		slog.Error("telegram: respond failed", "conversation", convID, "err", err)
		if errors.Is(err, orchestrator.ErrToolLoopExceeded) {
			b.reply(msg.Chat.ID, "I couldn't finish that request within the allowed number of tool calls. The conversation is still intact; please rephrase or try again.")
			return
		}
		b.reply(msg.Chat.ID, "I encountered an error while processing your request. Please try again.")
		return
	}
	if text == "" {
		text = "I'm not sure how to help with that."
	}
	b.reply(msg.Chat.ID, text)
}

// conversationFor returns the chat's active conversation, creating one
// on first contact.
func (b *Bot) conversationFor(msg *tgbotapi.Message) (string, error) {
	b.mu.Lock()
	id, ok := b.convs[msg.Chat.ID]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	owner := fmt.Sprintf("%d", msg.From.ID)
	id, err := b.orch.StartConversation(owner)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.convs[msg.Chat.ID] = id
	b.mu.Unlock()
	return id, nil
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.startConversation(msg)
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Hello %s! I'm driftbot. You can ask me in natural language to manage projects and run tools. Type /help for commands.",
			msg.From.FirstName))

	case "help":
		b.reply(msg.Chat.ID,
			"Commands:\n"+
				"/new — start a new conversation\n"+
				"/history — list your recent conversations\n"+
				"/help — this message\n\n"+
				"Or just ask in natural language, for example:\n"+
				"\"Create a project called Test with description trial run\"\n"+
				"\"What's the active project?\"")

	case "new":
		if b.startConversation(msg) {
			b.reply(msg.Chat.ID, "Started a new conversation.")
		}

	case "history":
		owner := fmt.Sprintf("%d", msg.From.ID)
		summaries, err := b.orch.History().ListConversations(owner)
		if err != nil || len(summaries) == 0 {
			b.reply(msg.Chat.ID, "You don't have any conversations yet.")
			return
		}
		out := "Your recent conversations:\n\n"
		for i, s := range summaries {
			if i >= 10 {
				break
			}
			out += fmt.Sprintf("%s — %d messages, updated %s\n",
				s.ID, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		b.reply(msg.Chat.ID, out)

	default:
		b.reply(msg.Chat.ID, "Unknown command. Type /help.")
	}
}

// startConversation replaces the chat's active conversation.
func (b *Bot) startConversation(msg *tgbotapi.Message) bool {
	owner := fmt.Sprintf("%d", msg.From.ID)
	id, err := b.orch.StartConversation(owner)
	if err != nil {
		slog.Error("telegram: start conversation failed", "err", err)
		b.reply(msg.Chat.ID, "I couldn't start a conversation. Please try again.")
		return false
	}
	b.mu.Lock()
	b.convs[msg.Chat.ID] = id
	b.mu.Unlock()
	slog.Info("telegram: new conversation", "chat", msg.Chat.ID, "conversation", id)
	return true
}

func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		b.send(chatID, chunk)
	}
}

func (b *Bot) sendAPI(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("telegram: send failed", "chat", chatID, "err", err)
	}
}

func (b *Bot) typingLoop(ctx context.Context, chatID int64) {
	if b.api == nil {
		return
	}
	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()
	for {
		if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// splitMessage splits content into chunks that fit within maxLen,
// preferring newline breaks, then space breaks, then a hard cut.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, strings.TrimRight(content, " \n"))
			break
		}
		cut := strings.LastIndex(content[:maxLen], "\n")
		if cut <= 0 {
			cut = strings.LastIndex(content[:maxLen], " ")
		}
		if cut <= 0 {
			cut = maxLen
		}
		chunks = append(chunks, strings.TrimRight(content[:cut], " \n"))
		content = strings.TrimLeft(content[cut:], " \n")
	}
	return chunks
}
