package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"relaybot/pkg/store"
)

// DefaultWindow is the debounce quiet period applied when none is configured.
const DefaultWindow = 1500 * time.Millisecond

// Message is one buffered inbound message awaiting flush. Text is already
// redacted when it reaches the scheduler.
type Message struct {
	MessageID  int
	Text       string
	HasMedia   bool
	OriginChat int64
}

// Dispatcher receives a detached batch for delivery. Implementations own all
// failure handling; the scheduler never retries a flush.
type Dispatcher interface {
	Dispatch(ctx context.Context, pairing store.Pairing, messages []Message)
}

type batchKey struct {
	source  int64
	target  int64
	topicID int
}

type pendingBatch struct {
	pairing store.Pairing
	timer   *time.Timer
	// gen increments on every re-arm; a fired timer carrying a stale
	// generation must not flush the batch.
	gen      uint64
	messages []Message
}

// Scheduler accumulates messages per (source, target, topic) key and flushes
// each key as one batch after a fixed quiet period. The debounce is trailing
// edge: every arrival re-arms the key's timer, so a key flushes only once
// traffic pauses for a full window.
type Scheduler struct {
	window     time.Duration
	dispatcher Dispatcher
	log        *slog.Logger
	ctx        context.Context

	mu      sync.Mutex
	pending map[batchKey]*pendingBatch
	closed  bool

	flights sync.WaitGroup
}

// New creates a scheduler. Flushes dispatch with the given base context.
func New(ctx context.Context, window time.Duration, dispatcher Dispatcher, log *slog.Logger) *Scheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		window:     window,
		dispatcher: dispatcher,
		log:        log.With("component", "scheduler"),
		ctx:        ctx,
		pending:    make(map[batchKey]*pendingBatch),
	}
}

// Enqueue appends a message to the key's pending batch and re-arms the
// debounce timer. Arrival order is delivery order; messages are never
// reordered or deduplicated. A flush in progress for the same key does not
// block new arrivals; they start a fresh batch.
func (s *Scheduler) Enqueue(pairing store.Pairing, msg Message) {
	key := batchKey{source: pairing.Source, target: pairing.Target, topicID: pairing.TopicID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	batch, ok := s.pending[key]
	if !ok {
		batch = &pendingBatch{pairing: pairing}
		s.pending[key] = batch
	}
	batch.messages = append(batch.messages, msg)

	if batch.timer != nil {
		// Stop may report false when the timer already fired and its flush
		// is waiting on the mutex; the generation bump turns that flush
		// into a no-op so the quiet period stays a full window.
		batch.timer.Stop()
	}
	batch.gen++
	gen := batch.gen
	batch.timer = time.AfterFunc(s.window, func() {
		s.flush(key, gen)
	})
}

// flush detaches the key's batch atomically and hands it to the dispatcher.
// A stale timer, whether its key was already flushed or re-armed since,
// finds no entry or a newer generation and returns.
func (s *Scheduler) flush(key batchKey, gen uint64) {
	s.mu.Lock()
	batch, ok := s.pending[key]
	if !ok || batch.gen != gen || len(batch.messages) == 0 {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	pairing := batch.pairing
	messages := batch.messages
	s.flights.Add(1)
	s.mu.Unlock()

	defer s.flights.Done()

	s.log.Debug("Flushing batch", "source", pairing.Source, "target", pairing.Target, "topic_id", pairing.TopicID, "messages", len(messages))
	s.dispatcher.Dispatch(s.ctx, pairing, messages)
}

// PendingKeys reports how many keys currently accumulate messages.
func (s *Scheduler) PendingKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops all timers, discards pending batches, and waits for in-flight
// dispatches to finish. The engine is best effort: undelivered batches are
// dropped on shutdown.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.flights.Wait()
		return
	}
	s.closed = true

	dropped := 0
	for key, batch := range s.pending {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		dropped += len(batch.messages)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.log.Warn("Dropping pending messages on shutdown", "messages", dropped)
	}

	s.flights.Wait()
}
