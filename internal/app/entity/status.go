package entity

import (
	"time"

	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

// State is the observable player state.
type State string

const (
	StateOff     State = "off"     // No session or unknown state
	StateOn      State = "on"      // Session present but stopped
	StatePlaying State = "playing" // Playing, starting, buffering or showing an ad
	StatePaused  State = "paused"  // Paused
)

// Feature is a command supported by the player.
type Feature string

const (
	FeaturePause    Feature = "pause"
	FeaturePlay     Feature = "play"
	FeaturePrevious Feature = "previous_track"
	FeatureNext     Feature = "next_track"
	FeatureSeek     Feature = "seek"
)

// SupportedFeatures returns the commands every player supports.
func SupportedFeatures() []Feature {
	return []Feature{FeaturePause, FeaturePlay, FeaturePrevious, FeatureNext, FeatureSeek}
}

// DeviceInfo describes the screen as a device.
type DeviceInfo struct {
	Identifier   string
	Manufacturer string
	Name         string
}

// Status is the observable state of a player.
type Status struct {
	UniqueID          string
	Name              string
	State             State
	Phase             string
	MediaID           string
	Title             string
	Channel           string
	Position          *int
	PositionUpdatedAt *time.Time
	Duration          *int
	ImageURL          string
	MediaURL          string
}

// stateOf maps a snapshot to the observable state.
func stateOf(s *snapshot.Snapshot) State {
	if s == nil {
		return StateOff
	}
	switch s.State {
	case snapshot.StatePlaying, snapshot.StateStarting, snapshot.StateBuffering, snapshot.StateAdvertisement:
		return StatePlaying
	case snapshot.StatePaused:
		return StatePaused
	case snapshot.StateStopped:
		return StateOn
	default:
		return StateOff
	}
}
