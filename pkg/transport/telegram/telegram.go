package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"relaybot/pkg/transport"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"
)

// linkSuffix is appended to the first text message of a batch and carries the
// jump-to-source hyperlink as a text_link entity.
const linkSuffix = "💸"

// Client implements the outbound transport, identity resolution, topic
// validation, and operator notification against the Telegram Bot API.
type Client struct {
	bot    *telego.Bot
	admins func() []int64
	log    *slog.Logger
}

// NewClient wraps an authorized bot. admins supplies the current operator
// identifiers for notifications.
func NewClient(bot *telego.Bot, admins func() []int64, log *slog.Logger) (*Client, error) {
	if bot == nil {
		return nil, errors.New("telegram bot is required")
	}
	if admins == nil {
		admins = func() []int64 { return nil }
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{bot: bot, admins: admins, log: log.With("component", "transport.telegram")}, nil
}

// SendText posts redacted text to the target, addressed to the topic when
// set. A link annotation appends the fixed suffix with a text_link entity;
// entity offsets are UTF-16 code units as the Bot API requires.
func (c *Client) SendText(ctx context.Context, target int64, text string, topicID int, link *transport.LinkAnnotation) error {
	params := &telego.SendMessageParams{
		ChatID:             tu.ID(target),
		Text:               text,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if topicID != 0 {
		params.MessageThreadID = topicID
	}
	if link != nil {
		annotated, entities := annotate(text, link.URL)
		params.Text = annotated
		params.Entities = entities
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return classify("send text", err)
	}

	return nil
}

// SendMedia reposts a media-bearing origin message to the target without
// additional text.
func (c *Client) SendMedia(ctx context.Context, target int64, media transport.MediaRef, topicID int) error {
	params := &telego.CopyMessageParams{
		ChatID:     tu.ID(target),
		FromChatID: tu.ID(media.FromChat),
		MessageID:  media.MessageID,
	}
	if topicID != 0 {
		params.MessageThreadID = topicID
	}

	if _, err := c.bot.CopyMessage(ctx, params); err != nil {
		return classify("send media", err)
	}

	return nil
}

// Resolve turns an "@handle" or raw numeric id into the canonical signed
// broadcast id.
func (c *Client) Resolve(ctx context.Context, handleOrID string) (int64, error) {
	trimmed := strings.TrimSpace(handleOrID)
	if !strings.HasPrefix(trimmed, "@") {
		return transport.CanonicalID(trimmed)
	}

	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.Username(trimmed)})
	if err != nil {
		return 0, classify(fmt.Sprintf("resolve %s", trimmed), err)
	}

	return chat.ID, nil
}

// ChatHandle returns the chat's public username, or empty when it has none.
func (c *Client) ChatHandle(ctx context.Context, chatID int64) (string, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return "", classify("get chat", err)
	}

	return chat.Username, nil
}

// ValidateTopic probes a forum topic with a chat action addressed to the
// thread. The Bot API cannot enumerate forum topics, so an addressed probe is
// the only check available before dispatch-time failures take over.
func (c *Client) ValidateTopic(ctx context.Context, chatID int64, topicID int) error {
	params := &telego.SendChatActionParams{
		ChatID: tu.ID(chatID),
		Action: telego.ChatActionTyping,
	}
	if topicID != 0 {
		params.MessageThreadID = topicID
	}

	if err := c.bot.SendChatAction(ctx, params); err != nil {
		return classify(fmt.Sprintf("validate topic %d", topicID), err)
	}

	return nil
}

// NotifyOperators sends a message to every admin, best effort.
func (c *Client) NotifyOperators(ctx context.Context, message string) {
	for _, admin := range c.admins() {
		if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(admin), message)); err != nil {
			c.log.Error("Failed to notify operator", "admin_id", admin, "error", err)
		}
	}
}

// annotate appends the link suffix and builds its text_link entity.
func annotate(text string, url string) (string, []telego.MessageEntity) {
	annotated := text + "\n" + linkSuffix
	entity := telego.MessageEntity{
		Type:   telego.EntityTypeTextLink,
		Offset: utf16Len(text) + 1,
		Length: utf16Len(linkSuffix),
		URL:    url,
	}

	return annotated, []telego.MessageEntity{entity}
}

// utf16Len counts UTF-16 code units, the offset unit of Bot API entities.
func utf16Len(s string) int {
	length := 0
	for _, r := range s {
		if r > 0xFFFF {
			length += 2
		} else {
			length++
		}
	}

	return length
}

// classify maps a raw Bot API failure into the closed transport error kind
// set. Description matching happens only here, at the provider boundary.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return transport.NewError(transport.KindOther, op, err)
	}

	return transport.NewError(kindForAPIError(apiErr), fmt.Sprintf("%s: %s", op, apiErr.Description), err)
}

func kindForAPIError(apiErr *telegoapi.Error) string {
	if apiErr.ErrorCode == 429 {
		return transport.KindRateLimited
	}
	if apiErr.Parameters != nil && apiErr.Parameters.RetryAfter > 0 {
		return transport.KindRateLimited
	}

	desc := strings.ToUpper(apiErr.Description)
	switch {
	case strings.Contains(desc, "THREAD NOT FOUND"),
		strings.Contains(desc, "TOPIC_CLOSED"),
		strings.Contains(desc, "TOPIC_DELETED"),
		strings.Contains(desc, "TOPIC_NOT_FOUND"):
		return transport.KindTopicUnavailable
	}

	return transport.KindOther
}
