package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"relaybot/pkg/channel"
	"relaybot/pkg/filter"
	"relaybot/pkg/registry"
	"relaybot/pkg/stats"
)

// Resolver is the identity-resolution collaborator used by pairing commands.
type Resolver interface {
	Resolve(ctx context.Context, handleOrID string) (int64, error)
}

// TopicValidator checks a forum topic before a pairing referencing it is
// accepted.
type TopicValidator interface {
	ValidateTopic(ctx context.Context, chatID int64, topicID int) error
}

// Commands implements the operator chat interface: pairing and filter
// management, the global forwarding switch, and delivery statistics.
type Commands struct {
	registry *registry.Registry
	filter   *filter.Engine
	recorder *stats.Recorder
	resolver Resolver
	topics   TopicValidator
	log      *slog.Logger
}

// New wires the command layer.
func New(reg *registry.Registry, filt *filter.Engine, recorder *stats.Recorder, resolver Resolver, topics TopicValidator, log *slog.Logger) *Commands {
	if log == nil {
		log = slog.Default()
	}

	return &Commands{
		registry: reg,
		filter:   filt,
		recorder: recorder,
		resolver: resolver,
		topics:   topics,
		log:      log.With("component", "operator"),
	}
}

// Handle executes one command and returns the reply text. Mutating commands
// are admin-gated; configuration errors come back as replies, not failures.
func (c *Commands) Handle(ctx context.Context, cmd channel.Command) (string, error) {
	switch cmd.Name {
	case "start", "help", "menu":
		return helpText, nil
	case "addpair":
		return c.requireAdmin(cmd, func() (string, error) { return c.addPair(ctx, cmd.Args) })
	case "listpairs":
		return c.listPairs(), nil
	case "toggle":
		return c.requireAdmin(cmd, func() (string, error) { return c.togglePair(cmd.Args) })
	case "toggleall":
		return c.requireAdmin(cmd, c.toggleAll)
	case "addfilter":
		return c.requireAdmin(cmd, func() (string, error) { return c.addFilter(cmd.Args) })
	case "removefilter":
		return c.requireAdmin(cmd, func() (string, error) { return c.removeFilter(cmd.Args) })
	case "listfilters":
		return c.listFilters(), nil
	case "stats":
		return c.statsReport(), nil
	case "getid":
		return c.getID(ctx, cmd.Args)
	default:
		return "", nil
	}
}

const helpText = `Commands:
/addpair @source @target [topicId] - create a relay pairing
/listpairs - list pairings
/toggle <pairingId> - enable or disable one pairing
/toggleall - flip the global forwarding switch
/addfilter <word> - add a redaction word
/removefilter <word> - remove a redaction word
/listfilters - list redaction words
/stats - delivery statistics
/getid @channel - resolve a channel id`

func (c *Commands) requireAdmin(cmd channel.Command, fn func() (string, error)) (string, error) {
	if !c.registry.IsAdmin(cmd.SenderID) {
		c.log.Warn("Command denied", "command", cmd.Name, "sender_id", cmd.SenderID)
		return "Admins only", nil
	}

	return fn()
}

func (c *Commands) addPair(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "Usage: /addpair @source @target [topicId]", nil
	}

	source, err := c.resolver.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("Cannot resolve %s: %v", args[0], err), nil
	}
	target, err := c.resolver.Resolve(ctx, args[1])
	if err != nil {
		return fmt.Sprintf("Cannot resolve %s: %v", args[1], err), nil
	}

	topicID := 0
	if len(args) > 2 {
		topicID, err = strconv.Atoi(args[2])
		if err != nil || topicID <= 0 {
			return fmt.Sprintf("Invalid topic id %q", args[2]), nil
		}
		if err := c.topics.ValidateTopic(ctx, target, topicID); err != nil {
			return fmt.Sprintf("Topic %d not found in %s: %v", topicID, args[1], err), nil
		}
	}

	pairing, err := c.registry.Add(source, target, topicID)
	if errors.Is(err, registry.ErrDuplicatePairing) {
		return "Pairing already exists", nil
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Pairing %d created: %d → %d%s", pairing.ID, source, target, topicSuffix(topicID)), nil
}

func (c *Commands) listPairs() string {
	pairings := c.registry.All()
	if len(pairings) == 0 {
		return "No pairings configured"
	}

	var b strings.Builder
	for _, p := range pairings {
		status := "enabled"
		if !p.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "%d: %d → %d%s [%s]\n", p.ID, p.Source, p.Target, topicSuffix(p.TopicID), status)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) togglePair(args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /toggle <pairingId>", nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Sprintf("Invalid pairing id %q", args[0]), nil
	}

	pairing, err := c.registry.Get(id)
	if errors.Is(err, registry.ErrPairingNotFound) {
		return "Pairing not found", nil
	}
	if err != nil {
		return "", err
	}

	if _, err := c.registry.SetEnabled(id, !pairing.Enabled); err != nil {
		return "", err
	}
	if pairing.Enabled {
		return fmt.Sprintf("Pairing %d disabled", id), nil
	}

	return fmt.Sprintf("Pairing %d enabled", id), nil
}

func (c *Commands) toggleAll() (string, error) {
	enabled, err := c.registry.ToggleForwarding()
	if err != nil {
		return "", err
	}
	if enabled {
		return "Forwarding enabled", nil
	}

	return "Forwarding disabled", nil
}

func (c *Commands) addFilter(args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /addfilter <word>", nil
	}

	word := strings.Join(args, " ")
	err := c.filter.Add(word)
	if errors.Is(err, filter.ErrDuplicateWord) {
		return "Already in the list", nil
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Filter added: %s", strings.ToLower(word)), nil
}

func (c *Commands) removeFilter(args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /removefilter <word>", nil
	}

	word := strings.Join(args, " ")
	err := c.filter.Remove(word)
	if errors.Is(err, filter.ErrUnknownWord) {
		return "No such word", nil
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Filter removed: %s", strings.ToLower(word)), nil
}

func (c *Commands) listFilters() string {
	words := c.filter.Words()
	if len(words) == 0 {
		return "No filter words"
	}

	var b strings.Builder
	for i, word := range words {
		fmt.Fprintf(&b, "%d. %s\n", i+1, word)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) statsReport() string {
	return fmt.Sprintf(
		"Relayed batches:\nlast 10 minutes: %d\nlast hour: %d\nlast day: %d\ntotal: %d",
		c.recorder.CountSince(10*time.Minute),
		c.recorder.CountSince(time.Hour),
		c.recorder.CountSince(24*time.Hour),
		c.recorder.Total(),
	)
}

func (c *Commands) getID(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /getid @channel", nil
	}

	id, err := c.resolver.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("Cannot resolve %s: %v", args[0], err), nil
	}

	return fmt.Sprintf("ID: %d", id), nil
}

func topicSuffix(topicID int) string {
	if topicID == 0 {
		return ""
	}

	return fmt.Sprintf(" (topic %d)", topicID)
}
