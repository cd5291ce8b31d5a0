package registry

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"relaybot/pkg/store"
)

// ErrDuplicatePairing is returned when an equivalent (source, target, topic)
// tuple already exists, enabled or not.
var ErrDuplicatePairing = errors.New("pairing already exists")

// ErrPairingNotFound is returned for operations on an unknown pairing id.
var ErrPairingNotFound = errors.New("pairing not found")

// Registry holds the configured relay pairings and the global forwarding
// switch. It is pure data and lookup; all mutation goes through it so the
// state document is persisted write-through.
type Registry struct {
	state *store.State
	log   *slog.Logger

	mu     sync.Mutex
	lastID int64
	now    func() time.Time
}

// New creates a registry over the shared state.
func New(state *store.State, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		state: state,
		log:   log.With("component", "registry"),
		now:   time.Now,
	}
}

// Add creates a new enabled pairing. topicID zero means the target has no
// forum topic. The id is a creation-time monotonic token, unique per pairing.
func (r *Registry) Add(source int64, target int64, topicID int) (store.Pairing, error) {
	pairing := store.Pairing{
		ID:      r.nextID(),
		Source:  source,
		Target:  target,
		Enabled: true,
		TopicID: topicID,
	}

	err := r.state.Update(func(doc *store.Document) error {
		for _, existing := range doc.Pairings {
			if existing.Source == source && existing.Target == target && existing.TopicID == topicID {
				return ErrDuplicatePairing
			}
		}
		doc.Pairings = append(doc.Pairings, pairing)
		return nil
	})
	if err != nil {
		return store.Pairing{}, err
	}

	r.log.Info("Pairing created", "pairing_id", pairing.ID, "source", source, "target", target, "topic_id", topicID)
	return pairing, nil
}

// FindEnabledBySource returns the enabled pairings for a source channel in
// registry insertion order.
func (r *Registry) FindEnabledBySource(source int64) []store.Pairing {
	var matched []store.Pairing
	r.state.View(func(doc *store.Document) {
		for _, pairing := range doc.Pairings {
			if pairing.Enabled && pairing.Source == source {
				matched = append(matched, pairing)
			}
		}
	})

	return matched
}

// All returns every pairing in insertion order.
func (r *Registry) All() []store.Pairing {
	var all []store.Pairing
	r.state.View(func(doc *store.Document) {
		all = append(all, doc.Pairings...)
	})

	return all
}

// Disable marks a pairing disabled. It is idempotent and reports whether the
// call changed anything.
func (r *Registry) Disable(id int64) (bool, error) {
	return r.setEnabled(id, false)
}

// SetEnabled flips a pairing's enabled flag and reports whether it changed.
func (r *Registry) SetEnabled(id int64, enabled bool) (bool, error) {
	return r.setEnabled(id, enabled)
}

func (r *Registry) setEnabled(id int64, enabled bool) (bool, error) {
	changed := false
	err := r.state.Update(func(doc *store.Document) error {
		for i := range doc.Pairings {
			if doc.Pairings[i].ID != id {
				continue
			}
			changed = doc.Pairings[i].Enabled != enabled
			doc.Pairings[i].Enabled = enabled
			return nil
		}
		return ErrPairingNotFound
	})
	if err != nil {
		return false, err
	}

	if changed {
		r.log.Info("Pairing state changed", "pairing_id", id, "enabled", enabled)
	}
	return changed, nil
}

// Get returns a pairing by id.
func (r *Registry) Get(id int64) (store.Pairing, error) {
	var found *store.Pairing
	r.state.View(func(doc *store.Document) {
		for _, pairing := range doc.Pairings {
			if pairing.ID == id {
				p := pairing
				found = &p
				return
			}
		}
	})
	if found == nil {
		return store.Pairing{}, ErrPairingNotFound
	}

	return *found, nil
}

// ForwardingEnabled reports the global forwarding switch.
func (r *Registry) ForwardingEnabled() bool {
	enabled := false
	r.state.View(func(doc *store.Document) {
		enabled = doc.ForwardingEnabled
	})

	return enabled
}

// ToggleForwarding flips the global forwarding switch and returns the new
// value.
func (r *Registry) ToggleForwarding() (bool, error) {
	enabled := false
	err := r.state.Update(func(doc *store.Document) error {
		doc.ForwardingEnabled = !doc.ForwardingEnabled
		enabled = doc.ForwardingEnabled
		return nil
	})

	return enabled, err
}

// Admins returns the operator identifiers.
func (r *Registry) Admins() []int64 {
	var admins []int64
	r.state.View(func(doc *store.Document) {
		admins = append(admins, doc.Admins...)
	})

	return admins
}

// IsAdmin reports whether the given identifier is an operator.
func (r *Registry) IsAdmin(id int64) bool {
	return slices.Contains(r.Admins(), id)
}

// EnsureAdmins adds any missing operator identifiers. Used once at startup to
// seed admins from configuration.
func (r *Registry) EnsureAdmins(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	return r.state.Update(func(doc *store.Document) error {
		for _, id := range ids {
			if !slices.Contains(doc.Admins, id) {
				doc.Admins = append(doc.Admins, id)
			}
		}
		return nil
	})
}

// nextID returns a millisecond-timestamp token, bumped forward on collision
// so two pairings created in the same millisecond stay distinct.
func (r *Registry) nextID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}
