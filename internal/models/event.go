package models

import "encoding/json"

// EventType identifies a room channel event.
type EventType string

const (
	EventPlayerJoined EventType = "PLAYER_JOINED"
	EventPlayerLeft   EventType = "PLAYER_LEFT"
	EventPlayerReady  EventType = "PLAYER_READY"
	EventGameStarted  EventType = "GAME_STARTED"
	EventRoomDeleted  EventType = "ROOM_DELETED"
	EventError        EventType = "ERROR"
)

// RoomEvent is the wire format pushed to every socket admitted to a
// room channel.
type RoomEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// PlayerJoinedData carries the display snapshot of the joining player.
type PlayerJoinedData struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// PlayerLeftData identifies the departed player.
type PlayerLeftData struct {
	UserID string `json:"userId"`
}

// PlayerReadyData carries a ready-flag change.
type PlayerReadyData struct {
	UserID  string `json:"userId"`
	IsReady bool   `json:"isReady"`
}

// GameStartedData forwards the game service's session payload verbatim.
type GameStartedData struct {
	Payload json.RawMessage `json:"payload"`
}

// JoinChannelRequest is the single admission message a socket sends
// after the handshake, naming the room channel it wants.
type JoinChannelRequest struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}
