package filter

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"relaybot/pkg/store"
)

var (
	// ErrDuplicateWord is returned when a filter word is already configured.
	ErrDuplicateWord = errors.New("filter word already exists")
	// ErrUnknownWord is returned when removing a word that is not configured.
	ErrUnknownWord = errors.New("filter word not found")
)

// Engine redacts configured words from relayed message text. Words are kept
// in the shared state document and consumed read-only on every message.
type Engine struct {
	state *store.State
	log   *slog.Logger
}

// NewEngine creates a filter engine over the shared state.
func NewEngine(state *store.State, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{state: state, log: log.With("component", "filter")}
}

// Redact replaces every configured word in text with a run of '.' of the same
// length. Matching is case-insensitive and literal; each word is applied
// against the text as modified by the words before it.
func (e *Engine) Redact(text string) string {
	var words []string
	e.state.View(func(doc *store.Document) {
		words = append(words, doc.Filters...)
	})

	return Redact(text, words, e.log)
}

// Redact applies the given words to text. A word that cannot compile to a
// literal pattern is logged and skipped; it never aborts the message or the
// remaining words.
func Redact(text string, words []string, log *slog.Logger) string {
	if log == nil {
		log = slog.Default()
	}

	for _, word := range words {
		if strings.TrimSpace(word) == "" {
			continue
		}

		pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(word))
		if err != nil {
			log.Error("Skipping invalid filter word", "word", word, "error", err)
			continue
		}

		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			return strings.Repeat(".", len([]rune(match)))
		})
	}

	return text
}

// Add registers a new filter word. Words are stored lowercase.
func (e *Engine) Add(word string) error {
	word = normalize(word)
	if word == "" {
		return errors.New("filter word must not be empty")
	}

	return e.state.Update(func(doc *store.Document) error {
		for _, existing := range doc.Filters {
			if existing == word {
				return ErrDuplicateWord
			}
		}
		doc.Filters = append(doc.Filters, word)
		return nil
	})
}

// Remove deletes a configured filter word.
func (e *Engine) Remove(word string) error {
	word = normalize(word)

	return e.state.Update(func(doc *store.Document) error {
		for i, existing := range doc.Filters {
			if existing == word {
				doc.Filters = append(doc.Filters[:i], doc.Filters[i+1:]...)
				return nil
			}
		}
		return ErrUnknownWord
	})
}

// Words returns the configured filter words in insertion order.
func (e *Engine) Words() []string {
	var words []string
	e.state.View(func(doc *store.Document) {
		words = append(words, doc.Filters...)
	})

	return words
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
