package models

import "encoding/json"

// RoomStatus is the lifecycle state of a room. Rooms only ever move
// waiting -> playing; a failed game start moves them back.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
)

// GameMode selects the rule set the match will run with.
type GameMode string

const (
	ModeClassic  GameMode = "classic"
	ModeAdvanced GameMode = "advanced"
)

// ValidGameMode reports whether m is one of the supported modes.
func ValidGameMode(m GameMode) bool {
	return m == ModeClassic || m == ModeAdvanced
}

// Player is a room member. Players have no identity outside the room
// that embeds them; name and image are snapshotted from the auth token
// at join time.
type Player struct {
	UserID   string `bson:"userId" json:"userId"`
	Name     string `bson:"name" json:"name"`
	ImageURL string `bson:"imageUrl" json:"imageUrl"`
	IsHost   bool   `bson:"isHost" json:"isHost"`
	IsReady  bool   `bson:"isReady" json:"isReady"`
}

// Room is the aggregate stored one document per room. Code and Name are
// globally unique (enforced by store indexes) and immutable after
// creation. Players keeps join order.
type Room struct {
	ID           string          `bson:"_id" json:"id"`
	Code         string          `bson:"code" json:"code"`
	Name         string          `bson:"name" json:"name"`
	GameMode     GameMode        `bson:"gameMode" json:"gameMode"`
	RoomCapacity int             `bson:"roomCapacity" json:"roomCapacity"`
	Status       RoomStatus      `bson:"status" json:"status"`
	Players      []Player        `bson:"players" json:"players"`
	GameData     json.RawMessage `bson:"gameData,omitempty" json:"gameData,omitempty"`
}

// FindPlayer returns the player with the given user id, or nil.
func (r *Room) FindPlayer(userID string) *Player {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// Host returns the room's host player. Every room has exactly one.
func (r *Room) Host() *Player {
	for i := range r.Players {
		if r.Players[i].IsHost {
			return &r.Players[i]
		}
	}
	return nil
}

// AllReady reports whether every player has toggled ready.
func (r *Room) AllReady() bool {
	for i := range r.Players {
		if !r.Players[i].IsReady {
			return false
		}
	}
	return true
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	Name         string   `json:"name" binding:"required"`
	GameMode     GameMode `json:"gameMode" binding:"required"`
	RoomCapacity int      `json:"roomCapacity" binding:"required,min=1"`
}

// SetReadyRequest is the request body for the ready toggle. Ready is a
// pointer so a missing field is distinguishable from false.
type SetReadyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}
