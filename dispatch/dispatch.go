// Package dispatch gates command execution: a cooldown/permission
// state machine per (command, channel) pair. Cooldown timers live in
// memory only; acceptance persists the usage count through the bridge.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/store"
)

type Reason string

const (
	ReasonAccepted         Reason = "accepted"
	ReasonUnknownCommand   Reason = "unknown_command"
	ReasonDisabled         Reason = "disabled"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonCooldown         Reason = "cooldown"
)

// Invocation is one command attempt parsed from chat.
type Invocation struct {
	Command       string
	Channel       string
	Username      string
	DisplayName   string
	IsBroadcaster bool
}

// Decision is the dispatcher's accept/reject outcome. Rejections are
// silent to chat; the reason is for logs and metrics.
type Decision struct {
	Accepted bool
	Reason   Reason
	// Response is the expanded reply template, set only on acceptance.
	Response string
	Command  models.Command
}

type Dispatcher struct {
	bridge *bridge.Bridge
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastFire map[string]time.Time
}

func New(b *bridge.Bridge, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		bridge:   b,
		log:      log.With("component", "dispatch"),
		now:      time.Now,
		lastFire: make(map[string]time.Time),
	}
}

// WithClock overrides the cooldown clock. Tests use it.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch resolves one invocation. The returned error is non-nil only
// for logic errors (an unknown permission tag in a stored row) or a
// failed bridge round trip; ordinary rejections come back as a
// Decision with Accepted=false.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (Decision, error) {
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(inv.Command, "!")))
	if name == "" {
		return Decision{Reason: ReasonUnknownCommand}, nil
	}

	type lookup struct {
		cmd    models.Command
		cmdOK  bool
		user   models.User
		userOK bool
	}
	got, err := bridge.Query(ctx, d.bridge, func(ctx context.Context, s *store.Store) (lookup, error) {
		var l lookup
		l.cmd, l.cmdOK = s.GetCommand(ctx, name)
		l.user, l.userOK = s.UserStats(ctx, inv.Username)
		return l, nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("dispatch lookup: %w", err)
	}
	if !got.cmdOK {
		return d.reject(inv, name, ReasonUnknownCommand), nil
	}
	if !got.cmd.IsEnabled {
		return d.reject(inv, name, ReasonDisabled), nil
	}

	required, err := ParseLevel(got.cmd.PermissionLevel)
	if err != nil {
		// Logic error: the store should never hold an unknown tag.
		d.log.Error("invalid permission tag on stored command",
			"command", name, "tag", got.cmd.PermissionLevel)
		return Decision{}, err
	}
	invoker := Everyone
	if got.userOK {
		invoker = LevelFor(got.user, inv.IsBroadcaster)
	} else if inv.IsBroadcaster {
		invoker = Broadcaster
	}
	if invoker < required {
		return d.reject(inv, name, ReasonPermissionDenied), nil
	}

	// Check-then-set is one step under the lock.
	key := name + "\x00" + strings.ToLower(strings.TrimSpace(inv.Channel))
	cool := time.Duration(got.cmd.Cooldown) * time.Second
	now := d.now()
	d.mu.Lock()
	if last, ok := d.lastFire[key]; ok && cool > 0 && now.Sub(last) < cool {
		d.mu.Unlock()
		return d.reject(inv, name, ReasonCooldown), nil
	}
	d.lastFire[key] = now
	d.mu.Unlock()

	d.bridge.Post(func(ctx context.Context, s *store.Store) error {
		return s.IncrementCommandUsage(ctx, name)
	})

	d.log.Info("command accepted",
		"command", name, "channel", inv.Channel, "user", inv.Username)
	return Decision{
		Accepted: true,
		Reason:   ReasonAccepted,
		Response: expandResponse(got.cmd.Response, inv),
		Command:  got.cmd,
	}, nil
}

func (d *Dispatcher) reject(inv Invocation, name string, reason Reason) Decision {
	d.log.Debug("command rejected",
		"command", name, "channel", inv.Channel, "user", inv.Username, "reason", string(reason))
	return Decision{Reason: reason}
}

func expandResponse(tpl string, inv Invocation) string {
	name := inv.DisplayName
	if name == "" {
		name = inv.Username
	}
	out := strings.ReplaceAll(tpl, "{user}", name)
	out = strings.ReplaceAll(out, "{channel}", inv.Channel)
	return out
}
