package telegram

import (
	"testing"

	"github.com/mymmrac/telego"
)

func message(text string) *telego.Message {
	return &telego.Message{
		Text: text,
		Chat: telego.Chat{ID: 100},
		From: &telego.User{ID: 42},
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cmd, ok := parseCommand(message("/addpair @src @dst 58"))
	if !ok {
		t.Fatal("expected a command")
	}
	if cmd.Name != "addpair" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if len(cmd.Args) != 3 || cmd.Args[2] != "58" {
		t.Fatalf("args = %#v", cmd.Args)
	}
	if cmd.ChatID != 100 || cmd.SenderID != 42 {
		t.Fatalf("ids = %d/%d", cmd.ChatID, cmd.SenderID)
	}
}

func TestParseCommandStripsBotSuffix(t *testing.T) {
	t.Parallel()

	cmd, ok := parseCommand(message("/STATS@relay_bot"))
	if !ok {
		t.Fatal("expected a command")
	}
	if cmd.Name != "stats" {
		t.Fatalf("name = %q", cmd.Name)
	}
}

func TestParseCommandIgnoresPlainText(t *testing.T) {
	t.Parallel()

	if _, ok := parseCommand(message("hello there")); ok {
		t.Fatal("plain text must not parse as a command")
	}
	if _, ok := parseCommand(message("/")); ok {
		t.Fatal("bare slash must not parse as a command")
	}
}

func TestHasMedia(t *testing.T) {
	t.Parallel()

	if hasMedia(&telego.Message{Text: "plain"}) {
		t.Fatal("text message reported as media")
	}
	if !hasMedia(&telego.Message{Photo: []telego.PhotoSize{{}}}) {
		t.Fatal("photo not detected")
	}
	if !hasMedia(&telego.Message{Document: &telego.Document{}}) {
		t.Fatal("document not detected")
	}
	if !hasMedia(&telego.Message{Voice: &telego.Voice{}}) {
		t.Fatal("voice not detected")
	}
}
