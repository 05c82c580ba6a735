package dispatch

import (
	"fmt"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
)

// Level is the ordered permission tag gating command execution.
type Level int

const (
	Everyone Level = iota
	Regular
	Subscriber
	VIP
	Moderator
	Broadcaster
)

var levelNames = map[Level]string{
	Everyone:    "everyone",
	Regular:     "regular",
	Subscriber:  "subscriber",
	VIP:         "vip",
	Moderator:   "moderator",
	Broadcaster: "broadcaster",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps a stored permission tag to its Level. An unknown tag
// is a logic error: stored rows only ever carry the known tags, so a
// mismatch is reported loudly rather than silently defaulted.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "everyone", "":
		return Everyone, nil
	case "regular":
		return Regular, nil
	case "subscriber":
		return Subscriber, nil
	case "vip":
		return VIP, nil
	case "moderator":
		return Moderator, nil
	case "broadcaster":
		return Broadcaster, nil
	default:
		return Everyone, fmt.Errorf("unknown permission level %q", s)
	}
}

// LevelFor resolves a user's effective level from their role flags.
// Unknown users resolve to Everyone.
func LevelFor(u models.User, isBroadcaster bool) Level {
	switch {
	case isBroadcaster:
		return Broadcaster
	case u.IsModerator:
		return Moderator
	case u.IsVIP:
		return VIP
	case u.IsSubscriber:
		return Subscriber
	case u.IsRegular:
		return Regular
	default:
		return Everyone
	}
}
