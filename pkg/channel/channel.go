package channel

import "context"

// Post is one inbound message observed on a source channel.
type Post struct {
	ChatID    int64
	MessageID int
	Text      string
	HasMedia  bool
}

// Command is one operator slash command received in a chat with the bot.
type Command struct {
	ChatID   int64
	SenderID int64
	Name     string
	Args     []string
}

// PostHandler processes one observed channel post.
type PostHandler func(context.Context, Post) error

// CommandHandler processes one operator command and returns the reply text.
type CommandHandler func(context.Context, Command) (string, error)

// Adapter bridges one external message source into the relay engine.
type Adapter interface {
	Name() string
	Run(ctx context.Context, posts PostHandler, commands CommandHandler) error
}
