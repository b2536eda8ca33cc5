package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/lobby-service/internal/lobby"
	"github.com/openlobby/lobby-service/internal/models"
)

// stubStore serves a single fixed room; only FindByID is exercised by
// channel admission.
type stubStore struct {
	lobby.Store
	room *models.Room
}

func (s *stubStore) FindByID(_ context.Context, id string) (*models.Room, error) {
	if s.room != nil && s.room.ID == id {
		return s.room, nil
	}
	return nil, lobby.ErrNotFound
}

func newTestClient(userID string) *client {
	return &client{
		id:    "conn-" + userID,
		ident: models.Identity{ID: userID, Name: "Player " + userID},
		send:  make(chan []byte, 16),
		rooms: make(map[string]bool),
	}
}

func receiveEvent(t *testing.T, c *client) models.RoomEvent {
	t.Helper()
	select {
	case data := <-c.send:
		var ev models.RoomEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	default:
		t.Fatal("no event queued")
		return models.RoomEvent{}
	}
}

func waitingRoom() *models.Room {
	return &models.Room{
		ID:           "room-1",
		Code:         "ABCDE",
		Name:         "Alpha",
		GameMode:     models.ModeClassic,
		RoomCapacity: 8,
		Status:       models.StatusWaiting,
		Players: []models.Player{
			{UserID: "user-0", Name: "Host", IsHost: true, IsReady: true},
			{UserID: "user-1", Name: "Guest"},
		},
	}
}

func TestAdmitRequiresStoreMembership(t *testing.T) {
	hub := NewHub(&stubStore{room: waitingRoom()}, nil)

	member := newTestClient("user-1")
	hub.admit(member, "room-1")
	assert.True(t, member.rooms["room-1"])

	stranger := newTestClient("user-9")
	hub.admit(stranger, "room-1")
	assert.False(t, stranger.rooms["room-1"])
	ev := receiveEvent(t, stranger)
	assert.Equal(t, models.EventError, ev.Type)
}

func TestAdmitUnknownRoom(t *testing.T) {
	hub := NewHub(&stubStore{}, nil)

	cl := newTestClient("user-1")
	hub.admit(cl, "missing")
	assert.Empty(t, cl.rooms)
	ev := receiveEvent(t, cl)
	assert.Equal(t, models.EventError, ev.Type)
}

func TestAdmitReplaysGameStartedToReconnectingClients(t *testing.T) {
	room := waitingRoom()
	room.Status = models.StatusPlaying
	room.GameData = json.RawMessage(`{"gameId":"g-7"}`)
	hub := NewHub(&stubStore{room: room}, nil)

	cl := newTestClient("user-1")
	hub.admit(cl, "room-1")

	ev := receiveEvent(t, cl)
	assert.Equal(t, models.EventGameStarted, ev.Type)
}

func TestBroadcastReachesAdmittedClientsOnly(t *testing.T) {
	hub := NewHub(&stubStore{room: waitingRoom()}, nil)
	a := newTestClient("user-0")
	b := newTestClient("user-1")
	hub.admit(a, "room-1")
	hub.admit(b, "room-1")
	outsider := newTestClient("user-9")

	hub.Broadcast("room-1", models.RoomEvent{
		Type: models.EventPlayerReady,
		Data: models.PlayerReadyData{UserID: "user-1", IsReady: true},
	})

	assert.Equal(t, models.EventPlayerReady, receiveEvent(t, a).Type)
	assert.Equal(t, models.EventPlayerReady, receiveEvent(t, b).Type)
	assert.Empty(t, outsider.send)
}

func TestCloseChannelDisconnectsMembers(t *testing.T) {
	hub := NewHub(&stubStore{room: waitingRoom()}, nil)
	cl := newTestClient("user-1")
	hub.admit(cl, "room-1")

	hub.Broadcast("room-1", models.RoomEvent{Type: models.EventRoomDeleted})
	hub.CloseChannel("room-1")

	// the queued ROOM_DELETED is still delivered, then the channel ends
	assert.Equal(t, models.EventRoomDeleted, receiveEvent(t, cl).Type)
	_, open := <-cl.send
	assert.False(t, open, "send channel is closed so the write pump hangs up")
	assert.Empty(t, cl.rooms)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.channels["room-1"])
}

func TestDropNotifiesRemainingMembers(t *testing.T) {
	hub := NewHub(&stubStore{room: waitingRoom()}, nil)
	a := newTestClient("user-0")
	b := newTestClient("user-1")
	hub.admit(a, "room-1")
	hub.admit(b, "room-1")

	hub.drop(b)

	ev := receiveEvent(t, a)
	assert.Equal(t, models.EventPlayerLeft, ev.Type)
	assert.Empty(t, b.rooms)
}
