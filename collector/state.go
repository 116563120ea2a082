package collector

import "fmt"

// State is a phase of a collection run.
type State int

const (
	StateInitializing State = iota
	StateScouting
	StateListing
	StateCollectingDetails
	StateFinalizing
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateInitializing:      "initializing",
	StateScouting:          "scouting",
	StateListing:           "listing",
	StateCollectingDetails: "collecting_details",
	StateFinalizing:        "finalizing",
	StateClosed:            "closed",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

var transitions = map[State][]State{
	StateInitializing:      {StateScouting, StateFailed},
	StateScouting:          {StateListing, StateFailed},
	StateListing:           {StateCollectingDetails, StateFailed},
	StateCollectingDetails: {StateFinalizing, StateFailed},
	StateFinalizing:        {StateClosed, StateFailed},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
