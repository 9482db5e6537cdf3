// Package bot answers commands posted in chat rooms. Every reply it posts is
// registered with the room's cleaner scope, so old replies get deleted once
// the room holds more than the cleaner's limit.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
)

// Update is one incoming chat message handed to the bot.
type Update struct {
	Room      string
	User      string
	Text      string
	MessageID int64
}

// Handler processes an update.
type Handler func(ctx context.Context, u *Update) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Poster sends a message to a room and returns the id it was stored under.
type Poster interface {
	Post(ctx context.Context, room, user, text string) (int64, error)
}

const helpText = "commands: /ping, /echo <text>, /tracked, /delete <id>, /clear, /purge, /help"

// Bot dispatches room messages through its middleware chain to the command
// handler.
type Bot struct {
	name    string
	poster  Poster
	handler Handler
	logger  *log.Logger
}

// New creates a Bot posting as name. Middlewares run in the order given,
// the first one outermost.
func New(name string, p Poster, mws ...Middleware) *Bot {
	b := &Bot{name: name, poster: p, logger: log.Default()}
	h := Handler(b.handle)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	b.handler = h
	return b
}

// SetLogger replaces the logger used for handler errors.
func (b *Bot) SetLogger(l *log.Logger) {
	if l != nil {
		b.logger = l
	}
}

// Name returns the user the bot posts as.
func (b *Bot) Name() string {
	return b.name
}

// Dispatch runs one routed chat message through the bot. Messages written
// by the bot itself and non-chat messages are ignored.
func (b *Bot) Dispatch(ctx context.Context, msg domain.Message) {
	if msg.Type != domain.MsgChat || msg.User == b.name {
		return
	}
	u := &Update{Room: msg.Room, User: msg.User, Text: msg.Text, MessageID: msg.ID}
	if err := b.handler(ctx, u); err != nil {
		b.logger.Printf("bot: room %s: %q from %s: %v", u.Room, u.Text, u.User, err)
	}
}

func (b *Bot) handle(ctx context.Context, u *Update) error {
	cmd, arg, ok := parseCommand(u.Text)
	if !ok {
		return nil
	}

	switch cmd {
	case "ping":
		return b.reply(ctx, u, "pong")
	case "echo":
		if arg == "" {
			return b.reply(ctx, u, "usage: /echo <text>")
		}
		return b.reply(ctx, u, arg)
	case "help":
		return b.reply(ctx, u, helpText)
	case "tracked":
		return b.tracked(ctx, u)
	case "delete":
		return b.delete(ctx, u, arg)
	case "clear":
		return b.clear(ctx, u)
	case "purge":
		return b.purge(ctx, u)
	default:
		return b.reply(ctx, u, "unknown command: /"+cmd)
	}
}

func (b *Bot) tracked(ctx context.Context, u *Update) error {
	s := ScopeFrom(ctx)
	ids, err := s.Messages()
	if err != nil {
		return err
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	text := fmt.Sprintf("tracking %d/%d", len(ids), s.Limit())
	if len(parts) > 0 {
		text += ": " + strings.Join(parts, ", ")
	}
	return b.reply(ctx, u, text)
}

func (b *Bot) delete(ctx context.Context, u *Update, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return b.reply(ctx, u, "usage: /delete <id>")
	}
	res, err := ScopeFrom(ctx).Delete(ctx, cleaner.MessageID(id))
	if errors.Is(err, cleaner.ErrNotFound) {
		return b.reply(ctx, u, fmt.Sprintf("message %d is not tracked", id))
	}
	if err != nil {
		b.replyBestEffort(ctx, u, fmt.Sprintf("message %d: %s", id, res.Outcome))
		return fmt.Errorf("delete %d: %w", id, err)
	}
	return b.reply(ctx, u, fmt.Sprintf("message %d: %s", id, res.Outcome))
}

func (b *Bot) clear(ctx context.Context, u *Update) error {
	n, err := ScopeFrom(ctx).Clear()
	if err != nil {
		return err
	}
	return b.reply(ctx, u, fmt.Sprintf("forgot %d messages", n))
}

func (b *Bot) purge(ctx context.Context, u *Update) error {
	report, err := ScopeFrom(ctx).Purge(ctx)
	if err != nil {
		b.replyBestEffort(ctx, u, fmt.Sprintf("purge stopped after %d messages", report.Deleted()+report.Skipped()))
		return fmt.Errorf("purge: %w", err)
	}
	return b.reply(ctx, u, fmt.Sprintf("purged %d messages (%d already gone)", report.Deleted(), report.Skipped()))
}

// reply posts text to the update's room and registers it with the room's
// cleaner scope, when there is one.
func (b *Bot) reply(ctx context.Context, u *Update, text string) error {
	id, err := b.poster.Post(ctx, u.Room, b.name, text)
	if err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	s := ScopeFrom(ctx)
	if s == nil {
		return nil
	}
	if err := s.Add(ctx, cleaner.MessageID(id)); err != nil {
		return fmt.Errorf("track reply %d: %w", id, err)
	}
	return nil
}

// replyBestEffort replies while a handler is already failing. A reply error
// is logged so the handler's own error is the one returned.
func (b *Bot) replyBestEffort(ctx context.Context, u *Update, text string) {
	if err := b.reply(ctx, u, text); err != nil {
		b.logger.Printf("bot: room %s: reply: %v", u.Room, err)
	}
}

// parseCommand splits "/cmd arg..." into its parts.
func parseCommand(text string) (cmd, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(text[1:], " ")
	if cmd == "" {
		return "", "", false
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}
