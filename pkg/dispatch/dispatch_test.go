package dispatch

import (
	"context"
	"errors"
	"testing"

	"relaybot/pkg/registry"
	"relaybot/pkg/scheduler"
	"relaybot/pkg/stats"
	"relaybot/pkg/store"
	"relaybot/pkg/transport"
)

type sentText struct {
	target  int64
	text    string
	topicID int
	link    *transport.LinkAnnotation
}

type sentMedia struct {
	target  int64
	media   transport.MediaRef
	topicID int
}

type fakeOutbound struct {
	texts  []sentText
	medias []sentMedia

	failAt   int // 1-based send index to fail on, 0 means never
	failWith error
	sends    int
}

func (f *fakeOutbound) SendText(_ context.Context, target int64, text string, topicID int, link *transport.LinkAnnotation) error {
	f.sends++
	if f.failAt != 0 && f.sends >= f.failAt {
		return f.failWith
	}
	f.texts = append(f.texts, sentText{target: target, text: text, topicID: topicID, link: link})
	return nil
}

func (f *fakeOutbound) SendMedia(_ context.Context, target int64, media transport.MediaRef, topicID int) error {
	f.sends++
	if f.failAt != 0 && f.sends >= f.failAt {
		return f.failWith
	}
	f.medias = append(f.medias, sentMedia{target: target, media: media, topicID: topicID})
	return nil
}

type fakeResolver struct {
	handle string
	err    error
}

func (f *fakeResolver) Resolve(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeResolver) ChatHandle(context.Context, int64) (string, error) {
	return f.handle, f.err
}

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) NotifyOperators(_ context.Context, message string) {
	f.messages = append(f.messages, message)
}

type noopSaver struct{}

func (noopSaver) Save(store.Document) error { return nil }

type fixture struct {
	dispatcher *Dispatcher
	outbound   *fakeOutbound
	notifier   *fakeNotifier
	registry   *registry.Registry
	recorder   *stats.Recorder
	pairing    store.Pairing
}

func newFixture(t *testing.T, resolver *fakeResolver, outbound *fakeOutbound) *fixture {
	t.Helper()

	state, err := store.NewState(store.DefaultDocument(), noopSaver{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	reg := registry.New(state, nil)
	pairing, err := reg.Add(-1001234567890, -1009876543210, 58)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	notifier := &fakeNotifier{}
	recorder := stats.NewRecorder(state, nil)

	return &fixture{
		dispatcher: New(outbound, resolver, notifier, reg, recorder, nil),
		outbound:   outbound,
		notifier:   notifier,
		registry:   reg,
		recorder:   recorder,
		pairing:    pairing,
	}
}

func batch(msgs ...scheduler.Message) []scheduler.Message { return msgs }

func TestDispatchAnnotatesFirstTextOnly(t *testing.T) {
	t.Parallel()

	outbound := &fakeOutbound{}
	f := newFixture(t, &fakeResolver{handle: "testero"}, outbound)

	f.dispatcher.Dispatch(context.Background(), f.pairing, batch(
		scheduler.Message{MessageID: 10, Text: "one", OriginChat: f.pairing.Source},
		scheduler.Message{MessageID: 11, Text: "two", OriginChat: f.pairing.Source},
	))

	if len(outbound.texts) != 2 {
		t.Fatalf("texts sent = %d, want 2", len(outbound.texts))
	}
	first, second := outbound.texts[0], outbound.texts[1]
	if first.link == nil || first.link.URL != "https://t.me/testero/10" {
		t.Fatalf("first link = %#v", first.link)
	}
	if second.link != nil {
		t.Fatalf("second message must not carry a link, got %#v", second.link)
	}
	if first.topicID != 58 || second.topicID != 58 {
		t.Fatal("topic id must address every send")
	}
	if first.target != f.pairing.Target {
		t.Fatalf("target = %d, want %d", first.target, f.pairing.Target)
	}

	if f.recorder.Total() != 1 {
		t.Fatalf("stats records = %d, want 1", f.recorder.Total())
	}
}

func TestDispatchUsesInternalLinkWithoutHandle(t *testing.T) {
	t.Parallel()

	outbound := &fakeOutbound{}
	f := newFixture(t, &fakeResolver{err: errors.New("no access")}, outbound)

	f.dispatcher.Dispatch(context.Background(), f.pairing, batch(
		scheduler.Message{MessageID: 7, Text: "hi", OriginChat: -1001234567890},
	))

	if len(outbound.texts) != 1 {
		t.Fatalf("texts sent = %d, want 1", len(outbound.texts))
	}
	want := "https://t.me/c/1234567890/7"
	if outbound.texts[0].link == nil || outbound.texts[0].link.URL != want {
		t.Fatalf("link = %#v, want %s", outbound.texts[0].link, want)
	}
}

func TestDispatchSendsMediaWithoutAnnotation(t *testing.T) {
	t.Parallel()

	outbound := &fakeOutbound{}
	f := newFixture(t, &fakeResolver{handle: "testero"}, outbound)

	f.dispatcher.Dispatch(context.Background(), f.pairing, batch(
		scheduler.Message{MessageID: 5, HasMedia: true, OriginChat: f.pairing.Source},
		scheduler.Message{MessageID: 6, Text: "caption follows", OriginChat: f.pairing.Source},
	))

	if len(outbound.medias) != 1 {
		t.Fatalf("medias sent = %d, want 1", len(outbound.medias))
	}
	media := outbound.medias[0]
	if media.media.FromChat != f.pairing.Source || media.media.MessageID != 5 {
		t.Fatalf("media ref = %#v", media.media)
	}
	if media.topicID != 58 {
		t.Fatalf("media topic = %d, want 58", media.topicID)
	}

	// The link lands on the first text message even after media.
	if len(outbound.texts) != 1 || outbound.texts[0].link == nil {
		t.Fatalf("texts = %#v", outbound.texts)
	}
}

func TestTopicUnavailableDisablesPairingAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	outbound := &fakeOutbound{
		failAt:   2,
		failWith: transport.NewError(transport.KindTopicUnavailable, "message thread not found", nil),
	}
	f := newFixture(t, &fakeResolver{handle: "testero"}, outbound)

	f.dispatcher.Dispatch(context.Background(), f.pairing, batch(
		scheduler.Message{MessageID: 1, Text: "first", OriginChat: f.pairing.Source},
		scheduler.Message{MessageID: 2, Text: "second", OriginChat: f.pairing.Source},
		scheduler.Message{MessageID: 3, Text: "third", OriginChat: f.pairing.Source},
	))

	got, err := f.registry.Get(f.pairing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Enabled {
		t.Fatal("pairing must be disabled after topic-unavailable failure")
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(f.notifier.messages))
	}
	if f.recorder.Total() != 0 {
		t.Fatal("failed batch must not record stats")
	}
	// Partial delivery: the first send went through before the failure.
	if len(outbound.texts) != 1 {
		t.Fatalf("texts sent before failure = %d, want 1", len(outbound.texts))
	}
}

func TestOtherFailureLeavesPairingEnabled(t *testing.T) {
	t.Parallel()

	outbound := &fakeOutbound{
		failAt:   1,
		failWith: transport.NewError(transport.KindRateLimited, "too many requests", nil),
	}
	f := newFixture(t, &fakeResolver{handle: "testero"}, outbound)

	f.dispatcher.Dispatch(context.Background(), f.pairing, batch(
		scheduler.Message{MessageID: 1, Text: "first", OriginChat: f.pairing.Source},
	))

	got, err := f.registry.Get(f.pairing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Enabled {
		t.Fatal("non-topic failure must not disable the pairing")
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("notifications = %d, want 0", len(f.notifier.messages))
	}
	if f.recorder.Total() != 0 {
		t.Fatal("failed batch must not record stats")
	}
}
