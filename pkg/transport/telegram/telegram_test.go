package telegram

import (
	"errors"
	"testing"

	"relaybot/pkg/transport"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
)

func TestAnnotateUsesUTF16Offsets(t *testing.T) {
	t.Parallel()

	annotated, entities := annotate("привет", "https://t.me/c/1/2")

	if annotated != "привет\n💸" {
		t.Fatalf("annotated = %q", annotated)
	}
	if len(entities) != 1 {
		t.Fatalf("entities = %#v", entities)
	}

	entity := entities[0]
	if entity.Type != telego.EntityTypeTextLink {
		t.Fatalf("entity type = %q", entity.Type)
	}
	// "привет" is 6 UTF-16 units, newline 1, the suffix emoji 2.
	if entity.Offset != 7 || entity.Length != 2 {
		t.Fatalf("entity span = %d+%d, want 7+2", entity.Offset, entity.Length)
	}
	if entity.URL != "https://t.me/c/1/2" {
		t.Fatalf("entity url = %q", entity.URL)
	}
}

func TestUTF16Len(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"привет", 6},
		{"💸", 2},
		{"a💸b", 4},
	}
	for _, tc := range cases {
		if got := utf16Len(tc.in); got != tc.want {
			t.Fatalf("utf16Len(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClassifyTopicUnavailable(t *testing.T) {
	t.Parallel()

	descriptions := []string{
		"Bad Request: message thread not found",
		"Bad Request: TOPIC_CLOSED",
		"Bad Request: TOPIC_DELETED",
	}
	for _, desc := range descriptions {
		err := classify("send text", &telegoapi.Error{ErrorCode: 400, Description: desc})
		if !transport.IsTopicUnavailable(err) {
			t.Fatalf("classify(%q) kind = %q, want topic_unavailable", desc, transport.KindOf(err))
		}
	}
}

func TestClassifyRateLimited(t *testing.T) {
	t.Parallel()

	err := classify("send text", &telegoapi.Error{ErrorCode: 429, Description: "Too Many Requests: retry after 5"})
	if got := transport.KindOf(err); got != transport.KindRateLimited {
		t.Fatalf("kind = %q, want rate_limited", got)
	}

	err = classify("send text", &telegoapi.Error{
		ErrorCode:   400,
		Description: "flood",
		Parameters:  &telegoapi.ResponseParameters{RetryAfter: 3},
	})
	if got := transport.KindOf(err); got != transport.KindRateLimited {
		t.Fatalf("kind = %q, want rate_limited", got)
	}
}

func TestClassifyOther(t *testing.T) {
	t.Parallel()

	err := classify("send text", &telegoapi.Error{ErrorCode: 400, Description: "Bad Request: chat not found"})
	if got := transport.KindOf(err); got != transport.KindOther {
		t.Fatalf("kind = %q, want other", got)
	}

	plain := classify("send text", errors.New("connection reset"))
	if got := transport.KindOf(plain); got != transport.KindOther {
		t.Fatalf("kind = %q, want other", got)
	}
	if plain == nil || transport.IsTopicUnavailable(plain) {
		t.Fatal("plain error misclassified")
	}

	if classify("send text", nil) != nil {
		t.Fatal("classify(nil) must be nil")
	}
}
