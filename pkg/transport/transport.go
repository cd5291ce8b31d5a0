package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// LinkAnnotation asks the transport to append a short fixed suffix whose text
// carries a hyperlink back to the originating message.
type LinkAnnotation struct {
	URL string
}

// MediaRef identifies a media-bearing message to be reposted to the target.
// The payload itself stays opaque to the engine; the transport copies it from
// the origin chat.
type MediaRef struct {
	FromChat  int64
	MessageID int
}

// Outbound sends relayed content to a target channel. topicID zero means the
// target has no forum topic. Failures are classified; see Error.
type Outbound interface {
	SendText(ctx context.Context, target int64, text string, topicID int, link *LinkAnnotation) error
	SendMedia(ctx context.Context, target int64, media MediaRef, topicID int) error
}

// Resolver turns an "@handle" or raw numeric identifier into the canonical
// signed broadcast id, and looks up a chat's public handle when present.
type Resolver interface {
	Resolve(ctx context.Context, handleOrID string) (int64, error)
	ChatHandle(ctx context.Context, chatID int64) (string, error)
}

// TopicValidator checks that a forum topic exists in a channel before a
// pairing referencing it is accepted.
type TopicValidator interface {
	ValidateTopic(ctx context.Context, chatID int64, topicID int) error
}

// Notifier delivers best-effort operator notifications.
type Notifier interface {
	NotifyOperators(ctx context.Context, message string)
}

// CanonicalID normalizes a raw numeric channel identifier into the signed
// broadcast-id form (-100 prefix). "@handle" inputs need a Resolver instead.
func CanonicalID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("channel id is empty")
	}
	if strings.HasPrefix(trimmed, "@") {
		return 0, fmt.Errorf("handle %q requires resolution", trimmed)
	}

	if !strings.HasPrefix(trimmed, "-100") {
		trimmed = "-100" + strings.TrimPrefix(trimmed, "-")
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse channel id %q: %w", raw, err)
	}

	return id, nil
}

// InternalID converts a canonical signed broadcast id into the short form
// used in t.me/c/<id>/<message> links.
func InternalID(chatID int64) int64 {
	if chatID < 0 {
		chatID = -chatID
	}

	return chatID - 1_000_000_000_000
}
