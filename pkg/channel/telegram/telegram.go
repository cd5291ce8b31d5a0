package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"relaybot/pkg/channel"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"

// Listener consumes Telegram updates over long polling. Channel posts feed
// the relay engine; slash commands in chats with the bot feed the operator
// command layer.
type Listener struct {
	bot *telego.Bot
	log *slog.Logger
}

// NewListener wraps an already-authorized bot client.
func NewListener(bot *telego.Bot, log *slog.Logger) (*Listener, error) {
	if bot == nil {
		return nil, errors.New("telegram bot is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Listener{bot: bot, log: log.With("component", "channel.telegram")}, nil
}

// Name returns the channel identifier used in logs.
func (l *Listener) Name() string {
	return channelName
}

// Run starts long polling and routes updates until the context is cancelled.
func (l *Listener) Run(ctx context.Context, posts channel.PostHandler, commands channel.CommandHandler) error {
	if posts == nil || commands == nil {
		return errors.New("post and command handlers are required")
	}

	updates, err := l.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	l.log.Info("Telegram listener started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			l.route(ctx, update, posts, commands)
		}
	}
}

func (l *Listener) route(ctx context.Context, update telego.Update, posts channel.PostHandler, commands channel.CommandHandler) {
	if post := update.ChannelPost; post != nil {
		inbound := channel.Post{
			ChatID:    post.Chat.ID,
			MessageID: post.MessageID,
			Text:      post.Text,
			HasMedia:  hasMedia(post),
		}
		if err := posts(ctx, inbound); err != nil {
			l.log.Error("Failed to process channel post", "chat_id", inbound.ChatID, "message_id", inbound.MessageID, "error", err)
		}
		return
	}

	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	command, ok := parseCommand(message)
	if !ok {
		return
	}

	l.log.Info("Operator command received", "command", command.Name, "sender_id", command.SenderID)

	reply, err := commands(ctx, command)
	if err != nil {
		l.log.Error("Command failed", "command", command.Name, "error", err)
		reply = "Error: " + err.Error()
	}
	if reply == "" {
		return
	}

	if _, err := l.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), reply)); err != nil {
		l.log.Error("Failed to send command reply", "chat_id", message.Chat.ID, "error", err)
	}
}

// parseCommand extracts a slash command and its arguments. The "@botname"
// suffix used in group chats is stripped.
func parseCommand(message *telego.Message) (channel.Command, bool) {
	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return channel.Command{}, false
	}

	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return channel.Command{}, false
	}

	return channel.Command{
		ChatID:   message.Chat.ID,
		SenderID: message.From.ID,
		Name:     strings.ToLower(name),
		Args:     fields[1:],
	}, true
}

// hasMedia reports whether the post carries a payload that must be relayed
// as a media post rather than text.
func hasMedia(message *telego.Message) bool {
	return len(message.Photo) > 0 ||
		message.Video != nil ||
		message.Document != nil ||
		message.Animation != nil ||
		message.Audio != nil ||
		message.Voice != nil ||
		message.VideoNote != nil ||
		message.Sticker != nil
}
