package stats

import (
	"log/slog"
	"time"

	"relaybot/pkg/store"
)

// Recorder appends one delivery record per successfully flushed batch and
// answers windowed counts. Records are never evicted; unbounded growth is an
// accepted limitation of this engine.
type Recorder struct {
	state *store.State
	log   *slog.Logger
	now   func() time.Time
}

// NewRecorder creates a recorder over the shared state.
func NewRecorder(state *store.State, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}

	return &Recorder{
		state: state,
		log:   log.With("component", "stats"),
		now:   time.Now,
	}
}

// Record appends a delivery record for the pairing with the current
// timestamp and persists it.
func (r *Recorder) Record(source int64, target int64, topicID int) error {
	record := store.StatsRecord{
		Source:  source,
		Target:  target,
		TopicID: topicID,
		Time:    r.now().UnixMilli(),
	}

	return r.state.Update(func(doc *store.Document) error {
		doc.Stats = append(doc.Stats, record)
		return nil
	})
}

// CountSince counts records whose timestamp is within the window of now.
func (r *Recorder) CountSince(window time.Duration) int {
	cutoff := r.now().UnixMilli() - window.Milliseconds()

	count := 0
	r.state.View(func(doc *store.Document) {
		for _, record := range doc.Stats {
			if record.Time >= cutoff {
				count++
			}
		}
	})

	return count
}

// Total returns the number of records ever appended.
func (r *Recorder) Total() int {
	total := 0
	r.state.View(func(doc *store.Document) {
		total = len(doc.Stats)
	})

	return total
}
