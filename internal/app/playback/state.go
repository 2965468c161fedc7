// Package playback provides the single-writer playback controller, its
// adapter surface, and the reconciliation monitor.
package playback

import "strings"

// TransportState represents a playback phase, either as intended by the
// controller or as observed from the device.
type TransportState int

const (
	Stopped TransportState = iota // Nothing playing
	Playing                       // Track is playing
	Paused                        // Track is paused
)

// String returns the string representation of the transport state.
func (s TransportState) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Playing:
		return "PLAYING"
	case Paused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// ParseTransportState maps a device-reported state string onto a
// TransportState. "TRANSITIONING" counts as playing so the monitor does
// not mistake a track change in progress for a track that ended.
func ParseTransportState(s string) TransportState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PLAYING", "TRANSITIONING":
		return Playing
	case "PAUSED", "PAUSED_PLAYBACK":
		return Paused
	default:
		return Stopped
	}
}
