package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"relaybot/pkg/registry"
	"relaybot/pkg/scheduler"
	"relaybot/pkg/stats"
	"relaybot/pkg/store"
	"relaybot/pkg/transport"
)

// Dispatcher turns a flushed batch into outbound sends, annotates the first
// text message with a back-link to its origin, and reacts to classified
// transport failures. One delivery attempt per batch; there is no retry here.
type Dispatcher struct {
	outbound transport.Outbound
	resolver transport.Resolver
	notifier transport.Notifier
	registry *registry.Registry
	recorder *stats.Recorder
	log      *slog.Logger
}

// New wires a dispatcher to its collaborators.
func New(outbound transport.Outbound, resolver transport.Resolver, notifier transport.Notifier, reg *registry.Registry, recorder *stats.Recorder, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		outbound: outbound,
		resolver: resolver,
		notifier: notifier,
		registry: reg,
		recorder: recorder,
		log:      log.With("component", "dispatch"),
	}
}

// Dispatch sends the batch in its detached order. Implements
// scheduler.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, pairing store.Pairing, messages []scheduler.Message) {
	if len(messages) == 0 {
		return
	}

	err := d.deliver(ctx, pairing, messages)
	if err == nil {
		if recordErr := d.recorder.Record(pairing.Source, pairing.Target, pairing.TopicID); recordErr != nil {
			d.log.Error("Failed to record delivery", "pairing_id", pairing.ID, "error", recordErr)
		}
		d.log.Info("Batch relayed", "source", pairing.Source, "target", pairing.Target, "topic_id", pairing.TopicID, "messages", len(messages))
		return
	}

	if transport.IsTopicUnavailable(err) {
		d.disablePairing(ctx, pairing, err)
		return
	}

	d.log.Error("Batch delivery failed", "pairing_id", pairing.ID, "target", pairing.Target, "kind", transport.KindOf(err), "error", err)
}

// deliver sends messages in order and stops at the first transport failure.
// Partial delivery is acceptable; earlier sends are not rolled back.
func (d *Dispatcher) deliver(ctx context.Context, pairing store.Pairing, messages []scheduler.Message) error {
	origin := messages[0].OriginChat
	handle, err := d.resolver.ChatHandle(ctx, origin)
	if err != nil {
		d.log.Debug("Origin handle unavailable, using internal link form", "origin", origin, "error", err)
		handle = ""
	}

	linkAttached := false
	for _, msg := range messages {
		if msg.HasMedia {
			media := transport.MediaRef{FromChat: msg.OriginChat, MessageID: msg.MessageID}
			if err := d.outbound.SendMedia(ctx, pairing.Target, media, pairing.TopicID); err != nil {
				return err
			}
			continue
		}

		var link *transport.LinkAnnotation
		if !linkAttached {
			link = &transport.LinkAnnotation{URL: messageLink(handle, msg.OriginChat, msg.MessageID)}
		}
		if err := d.outbound.SendText(ctx, pairing.Target, msg.Text, pairing.TopicID, link); err != nil {
			return err
		}
		if link != nil {
			linkAttached = true
		}
	}

	return nil
}

// disablePairing handles a terminal topic-unavailable failure: soft-disable
// the pairing (persisted write-through by the registry) and tell operators.
func (d *Dispatcher) disablePairing(ctx context.Context, pairing store.Pairing, cause error) {
	changed, err := d.registry.Disable(pairing.ID)
	if err != nil {
		d.log.Error("Failed to disable pairing", "pairing_id", pairing.ID, "error", err)
		return
	}

	d.log.Warn("Pairing disabled, destination topic unavailable", "pairing_id", pairing.ID, "target", pairing.Target, "topic_id", pairing.TopicID, "changed", changed, "error", cause)

	d.notifier.NotifyOperators(ctx, fmt.Sprintf(
		"Pairing %d (%d → %d, topic %s) disabled: destination topic is closed or no longer exists",
		pairing.ID, pairing.Source, pairing.Target, topicLabel(pairing.TopicID),
	))
}

// messageLink renders the jump-to-source URL for one origin message, using
// the public handle when known.
func messageLink(handle string, originChat int64, messageID int) string {
	if handle != "" {
		return fmt.Sprintf("https://t.me/%s/%d", handle, messageID)
	}

	return fmt.Sprintf("https://t.me/c/%d/%d", transport.InternalID(originChat), messageID)
}

func topicLabel(topicID int) string {
	if topicID == 0 {
		return "none"
	}

	return fmt.Sprintf("%d", topicID)
}
