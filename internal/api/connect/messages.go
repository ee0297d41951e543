package connect

import (
	"time"

	"github.com/osa030/ytlounge/internal/app/entity"
)

// UpdateType tells a watcher whether an update is the initial state.
type UpdateType string

const (
	UpdateTypeInitialState UpdateType = "initial_state"
	UpdateTypeStatus       UpdateType = "status"
)

// PlayerInfo describes a player and its current status.
type PlayerInfo struct {
	PlayerID          string     `json:"player_id"`
	Name              string     `json:"name"`
	State             string     `json:"state"`
	Phase             string     `json:"phase"`
	MediaID           string     `json:"media_id,omitempty"`
	Title             string     `json:"title,omitempty"`
	Channel           string     `json:"channel,omitempty"`
	Position          *int       `json:"position,omitempty"`
	PositionUpdatedAt *time.Time `json:"position_updated_at,omitempty"`
	Duration          *int       `json:"duration,omitempty"`
	ImageURL          string     `json:"image_url,omitempty"`
	MediaURL          string     `json:"media_url,omitempty"`
	Features          []string   `json:"features,omitempty"`
}

type ListPlayersRequest struct{}

type ListPlayersResponse struct {
	Players []*PlayerInfo `json:"players"`
}

type GetPlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type GetPlayerResponse struct {
	Player *PlayerInfo `json:"player"`
	Device *DeviceInfo `json:"device"`
}

type DeviceInfo struct {
	Identifier   string `json:"identifier"`
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
}

// CommandRequest targets Play, Pause, Previous and Next.
type CommandRequest struct {
	PlayerID string `json:"player_id"`
}

type SeekRequest struct {
	PlayerID string  `json:"player_id"`
	Position float64 `json:"position"` // Seconds
}

type ReconnectRequest struct {
	PlayerID string `json:"player_id"`
}

// CommandResponse reports the outcome of a command.
type CommandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WatchPlayerRequest subscribes to one player, or to all when PlayerID is empty.
type WatchPlayerRequest struct {
	PlayerID string `json:"player_id,omitempty"`
}

type PlayerUpdate struct {
	Type       UpdateType  `json:"type"`
	SequenceNo uint64      `json:"sequence_no"`
	Player     *PlayerInfo `json:"player"`
}

func playerInfo(s entity.Status) *PlayerInfo {
	features := entity.SupportedFeatures()
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = string(f)
	}
	return &PlayerInfo{
		PlayerID:          s.UniqueID,
		Name:              s.Name,
		State:             string(s.State),
		Phase:             s.Phase,
		MediaID:           s.MediaID,
		Title:             s.Title,
		Channel:           s.Channel,
		Position:          s.Position,
		PositionUpdatedAt: s.PositionUpdatedAt,
		Duration:          s.Duration,
		ImageURL:          s.ImageURL,
		MediaURL:          s.MediaURL,
		Features:          names,
	}
}
