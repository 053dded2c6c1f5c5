package supervisor

import (
	"fmt"
	"time"
)

// State is the supervisor's run state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateForeground
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateForeground:
		return "foreground"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Class is the foreground classification requested from the platform.
type Class string

const (
	// ClassDataSync asks for the data-sync classification, which the
	// platform may refuse.
	ClassDataSync Class = "data-sync"

	// ClassNone asks for a plain grant with no classification.
	ClassNone Class = "none"
)

// Indicator is the persistent user-visible status shown while the process
// holds its foreground grant.
type Indicator struct {
	ID          int    `json:"id"`
	Channel     string `json:"channel"`
	ChannelName string `json:"channelName"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Importance  string `json:"importance"`
	Ongoing     bool   `json:"ongoing"`
	Cancelable  bool   `json:"cancelable"`
}

// DefaultIndicator returns the fixed indicator with the given title and text.
func DefaultIndicator(title, text string) Indicator {
	return Indicator{
		ID:          1001,
		Channel:     "relay_keep_alive",
		ChannelName: "Relay Background Service",
		Title:       title,
		Text:        text,
		Importance:  "low",
		Ongoing:     true,
		Cancelable:  false,
	}
}

// Snapshot is a read-only view of the supervisor.
type Snapshot struct {
	State State `json:"state"`

	// Degraded is set when the process keeps running after the platform
	// refused every promotion attempt.
	Degraded bool `json:"degraded"`

	// Class is the granted classification. Empty unless State is
	// StateForeground.
	Class Class     `json:"class,omitempty"`
	Since time.Time `json:"since"`
}
