package relay

import (
	"context"
	"errors"
	"log/slog"

	"relaybot/pkg/channel"
	"relaybot/pkg/filter"
	"relaybot/pkg/registry"
	"relaybot/pkg/scheduler"
)

// Service is the relay engine front: it receives observed channel posts,
// redacts their text, and buffers them per enabled pairing for debounced
// dispatch.
type Service struct {
	registry  *registry.Registry
	filter    *filter.Engine
	scheduler *scheduler.Scheduler
	log       *slog.Logger
}

// NewService wires the engine components.
func NewService(reg *registry.Registry, filt *filter.Engine, sched *scheduler.Scheduler, log *slog.Logger) (*Service, error) {
	if reg == nil || filt == nil || sched == nil {
		return nil, errors.New("registry, filter, and scheduler are required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		registry:  reg,
		filter:    filt,
		scheduler: sched,
		log:       log.With("component", "relay"),
	}, nil
}

// HandlePost processes one inbound message event: redact, then enqueue per
// matching enabled pairing. One pairing's state never affects another's
// buffering.
func (s *Service) HandlePost(_ context.Context, post channel.Post) error {
	if !s.registry.ForwardingEnabled() {
		return nil
	}
	if post.Text == "" && !post.HasMedia {
		return nil
	}

	pairings := s.registry.FindEnabledBySource(post.ChatID)
	if len(pairings) == 0 {
		return nil
	}

	text := ""
	if !post.HasMedia {
		text = s.filter.Redact(post.Text)
	}

	for _, pairing := range pairings {
		s.scheduler.Enqueue(pairing, scheduler.Message{
			MessageID:  post.MessageID,
			Text:       text,
			HasMedia:   post.HasMedia,
			OriginChat: post.ChatID,
		})
	}

	s.log.Debug("Post buffered", "source", post.ChatID, "message_id", post.MessageID, "pairings", len(pairings))
	return nil
}

// Run drives the listener until the context is cancelled or the listener
// fails. Pending batches are closed out on exit.
func (s *Service) Run(ctx context.Context, adapter channel.Adapter, commands channel.CommandHandler) error {
	if adapter == nil {
		return errors.New("channel adapter is required")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- adapter.Run(ctx, s.HandlePost, commands)
	}()

	s.log.Info("Relay started", "channel", adapter.Name())

	select {
	case <-ctx.Done():
		s.scheduler.Close()
		return nil
	case err := <-errCh:
		s.scheduler.Close()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
