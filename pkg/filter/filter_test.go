package filter

import (
	"errors"
	"testing"
	"unicode/utf8"

	"relaybot/pkg/store"
)

type noopSaver struct{}

func (noopSaver) Save(store.Document) error { return nil }

func newTestEngine(t *testing.T, words ...string) *Engine {
	t.Helper()

	doc := store.DefaultDocument()
	doc.Filters = words
	state, err := store.NewState(doc, noopSaver{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	return NewEngine(state, nil)
}

func TestRedactReplacesLiteralMatches(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "urgent")
	if got := e.Redact("URGENT sale, very urgent"); got != "...... sale, very ......" {
		t.Fatalf("Redact = %q", got)
	}
}

func TestRedactPreservesLength(t *testing.T) {
	t.Parallel()

	texts := []string{
		"buy now for $.99 only",
		"срочно: скидка",
		"no match at all",
		"",
	}
	words := []string{"$.99", "срочно", "now"}

	for _, text := range texts {
		got := Redact(text, words, nil)
		if utf8.RuneCountInString(got) != utf8.RuneCountInString(text) {
			t.Fatalf("Redact(%q) = %q, length changed", text, got)
		}
	}
}

func TestRedactTreatsMetacharactersLiterally(t *testing.T) {
	t.Parallel()

	// "$.99" must match only the literal string, not "x99" via the dot.
	got := Redact("price $.99 or x99", []string{"$.99"}, nil)
	if got != "price .... or x99" {
		t.Fatalf("Redact = %q", got)
	}
}

func TestRedactAppliesWordsSequentially(t *testing.T) {
	t.Parallel()

	// The second word matches against the output of the first.
	got := Redact("abcd", []string{"ab", "cd"}, nil)
	if got != "...." {
		t.Fatalf("Redact = %q", got)
	}
}

func TestRedactSkipsEmptyWords(t *testing.T) {
	t.Parallel()

	if got := Redact("hello", []string{"", "  "}, nil); got != "hello" {
		t.Fatalf("Redact = %q", got)
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if err := e.Add("Urgent"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Add("urgent"); !errors.Is(err, ErrDuplicateWord) {
		t.Fatalf("Add duplicate = %v, want ErrDuplicateWord", err)
	}
	if got := e.Words(); len(got) != 1 || got[0] != "urgent" {
		t.Fatalf("Words = %#v", got)
	}
}

func TestRemoveUnknownWord(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "urgent")
	if err := e.Remove("missing"); !errors.Is(err, ErrUnknownWord) {
		t.Fatalf("Remove = %v, want ErrUnknownWord", err)
	}
	if err := e.Remove("URGENT"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := e.Words(); len(got) != 0 {
		t.Fatalf("Words after remove = %#v", got)
	}
}
