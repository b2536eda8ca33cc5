package lobby

import (
	"context"
	"encoding/json"

	"github.com/openlobby/lobby-service/internal/models"
)

// Store is the persistence boundary for rooms. One document per room,
// uniquely indexed on code and name.
//
// The conditional mutators are the concurrency linchpin: each one
// applies its mutation in a single atomic read-check-write against the
// stored document, only if its predicate holds at that instant. They
// return ErrNotFound both when the room is absent and when the
// predicate failed; callers that need to tell those apart do a
// follow-up read.
type Store interface {
	// Insert creates the room, failing with *ConflictError naming the
	// colliding field when code or name is already taken.
	Insert(ctx context.Context, room *models.Room) (*models.Room, error)

	FindByID(ctx context.Context, id string) (*models.Room, error)

	// FindByCodeOrName matches code or name, case-insensitively and on
	// partial input.
	FindByCodeOrName(ctx context.Context, pattern string) (*models.Room, error)

	// FindRoomWithPlayer returns the room whose player list contains
	// userID, if any. At most one exists system-wide.
	FindRoomWithPlayer(ctx context.Context, userID string) (*models.Room, error)

	List(ctx context.Context) ([]models.Room, error)

	DeleteByID(ctx context.Context, id string) (*models.Room, error)

	// AppendPlayer adds p iff the room is waiting, below capacity, and
	// p's user is not already one of its players. A unique index over
	// every room's player list additionally rejects the append with
	// *ConflictError when p's user is a player of a different room;
	// a duplicate within the target room is a predicate failure
	// (ErrNotFound), since cross-document indexes cannot see it.
	AppendPlayer(ctx context.Context, roomID string, p models.Player) (*models.Room, error)

	// SetPlayerReady sets the ready flag of the given player iff the
	// room is waiting and userID is one of its players.
	SetPlayerReady(ctx context.Context, roomID, userID string, ready bool) (*models.Room, error)

	// PullPlayer removes the given player iff the room is waiting.
	PullPlayer(ctx context.Context, roomID, userID string) (*models.Room, error)

	// SwapStatus moves the room from one status to another iff it still
	// holds the expected one. Guards duplicate game starts.
	SwapStatus(ctx context.Context, roomID string, from, to models.RoomStatus) (*models.Room, error)

	// SetGameData records the game service's session payload so late
	// channel joiners can be replayed a GAME_STARTED event.
	SetGameData(ctx context.Context, roomID string, data json.RawMessage) (*models.Room, error)
}

// Notifier delivers events to the sockets admitted to a room channel.
type Notifier interface {
	Broadcast(roomID string, ev models.RoomEvent)
	// CloseChannel force-disconnects every socket on the channel. Used
	// after ROOM_DELETED delivery.
	CloseChannel(roomID string)
}

// GameStarter hands a room off to the external game-execution service
// and returns its session payload.
type GameStarter interface {
	Start(ctx context.Context, room *models.Room) (json.RawMessage, error)
}
