// Package snapshot provides the playback Snapshot domain entity.
package snapshot

// State represents the playback state reported by a screen.
type State int

const (
	StateIdle          State = iota // Nothing loaded (also reported when the screen is off)
	StateStarting                   // Player is starting a video
	StateBuffering                  // Player is buffering
	StatePlaying                    // Video is playing
	StatePaused                     // Video is paused
	StateStopped                    // Playback stopped, app still open
	StateAdvertisement              // An ad is playing
)

// Lounge state codes as they appear on the control channel.
const (
	codeStarting      = -1
	codeStopped       = 0
	codePlaying       = 1
	codePaused        = 2
	codeBuffering     = 3
	codeAdvertisement = 1081
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateAdvertisement:
		return "advertisement"
	default:
		return "unknown"
	}
}

// StateFromCode converts a control channel state code into a State.
// Unknown codes map to StateIdle.
func StateFromCode(code int) State {
	switch code {
	case codeStarting:
		return StateStarting
	case codeStopped:
		return StateStopped
	case codePlaying:
		return StatePlaying
	case codePaused:
		return StatePaused
	case codeBuffering:
		return StateBuffering
	case codeAdvertisement:
		return StateAdvertisement
	default:
		return StateIdle
	}
}

// Code returns the control channel state code for the state.
func (s State) Code() int {
	switch s {
	case StateStarting:
		return codeStarting
	case StateStopped:
		return codeStopped
	case StatePlaying:
		return codePlaying
	case StatePaused:
		return codePaused
	case StateBuffering:
		return codeBuffering
	case StateAdvertisement:
		return codeAdvertisement
	default:
		return -2
	}
}

// Snapshot is one observation of the remote playback state.
// Snapshots are values: a new notification replaces the previous one wholesale.
type Snapshot struct {
	State    State   // Playback state
	MediaID  string  // Video ID (empty when nothing is loaded)
	Position float64 // Current position in seconds
	Duration float64 // Duration in seconds
}

// HasMedia returns true if the snapshot refers to a video.
func (s *Snapshot) HasMedia() bool {
	return s != nil && s.MediaID != ""
}

// Clone returns a copy of the snapshot, or nil for a nil snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
