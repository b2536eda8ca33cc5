package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/lobby-service/internal/models"
)

// memStore implements Store in memory with the same contract as the
// Mongo implementation: every conditional mutator is atomic (one mutex
// section), no-match is ErrNotFound, and uniqueness of code, name and
// player membership is enforced like the real indexes do.
type memStore struct {
	mu     sync.Mutex
	nextID int
	rooms  map[string]*models.Room

	// insertErr, when set, is consulted once per Insert before the
	// write. Used to simulate store-reported conflicts.
	insertErr func(*models.Room) error
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]*models.Room)}
}

func clone(r *models.Room) *models.Room {
	cp := *r
	cp.Players = append([]models.Player(nil), r.Players...)
	return &cp
}

func (s *memStore) Insert(_ context.Context, room *models.Room) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		if err := s.insertErr(room); err != nil {
			return nil, err
		}
	}
	for _, existing := range s.rooms {
		if existing.Code == room.Code {
			return nil, &ConflictError{Field: "code"}
		}
		if existing.Name == room.Name {
			return nil, &ConflictError{Field: "name"}
		}
		for _, p := range room.Players {
			if existing.FindPlayer(p.UserID) != nil {
				return nil, &ConflictError{Field: "player"}
			}
		}
	}

	s.nextID++
	cp := clone(room)
	cp.ID = fmt.Sprintf("room-%d", s.nextID)
	s.rooms[cp.ID] = cp
	return clone(cp), nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(room), nil
}

func (s *memStore) FindByCodeOrName(_ context.Context, pattern string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(pattern)
	for _, room := range s.rooms {
		if strings.Contains(strings.ToLower(room.Code), needle) ||
			strings.Contains(strings.ToLower(room.Name), needle) {
			return clone(room), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) FindRoomWithPlayer(_ context.Context, userID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.FindPlayer(userID) != nil {
			return clone(room), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) List(_ context.Context) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Room{}
	for _, room := range s.rooms {
		out = append(out, *clone(room))
	}
	return out, nil
}

func (s *memStore) DeleteByID(_ context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.rooms, id)
	return room, nil
}

func (s *memStore) AppendPlayer(_ context.Context, roomID string, p models.Player) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the real index semantics exactly: the unique multikey
	// index only sees values in other documents, so membership in a
	// different room is a conflict while a duplicate inside the target
	// room is a failed predicate (the $ne guard), not a conflict.
	for id, room := range s.rooms {
		if id != roomID && room.FindPlayer(p.UserID) != nil {
			return nil, &ConflictError{Field: "player"}
		}
	}
	room, ok := s.rooms[roomID]
	if !ok || room.Status != models.StatusWaiting ||
		room.FindPlayer(p.UserID) != nil ||
		len(room.Players) >= room.RoomCapacity {
		return nil, ErrNotFound
	}
	room.Players = append(room.Players, p)
	return clone(room), nil
}

func (s *memStore) SetPlayerReady(_ context.Context, roomID, userID string, ready bool) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok || room.Status != models.StatusWaiting {
		return nil, ErrNotFound
	}
	player := room.FindPlayer(userID)
	if player == nil {
		return nil, ErrNotFound
	}
	player.IsReady = ready
	return clone(room), nil
}

func (s *memStore) PullPlayer(_ context.Context, roomID, userID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok || room.Status != models.StatusWaiting || room.FindPlayer(userID) == nil {
		return nil, ErrNotFound
	}
	players := room.Players[:0:0]
	for _, p := range room.Players {
		if p.UserID != userID {
			players = append(players, p)
		}
	}
	room.Players = players
	return clone(room), nil
}

func (s *memStore) SwapStatus(_ context.Context, roomID string, from, to models.RoomStatus) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok || room.Status != from {
		return nil, ErrNotFound
	}
	room.Status = to
	return clone(room), nil
}

func (s *memStore) SetGameData(_ context.Context, roomID string, data json.RawMessage) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	room.GameData = data
	return clone(room), nil
}

// TestMemStoreAppendPlayerMatchesIndexSemantics pins the fake to the
// real store's behavior: a duplicate inside the target room fails the
// append predicate, membership in another room is a uniqueness
// conflict.
func TestMemStoreAppendPlayerMatchesIndexSemantics(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	first, err := s.Insert(ctx, &models.Room{
		Code: "AAAAA", Name: "first", GameMode: models.ModeClassic,
		RoomCapacity: 4, Status: models.StatusWaiting,
		Players: []models.Player{{UserID: "host-1", IsHost: true, IsReady: true}},
	})
	require.NoError(t, err)
	second, err := s.Insert(ctx, &models.Room{
		Code: "BBBBB", Name: "second", GameMode: models.ModeClassic,
		RoomCapacity: 4, Status: models.StatusWaiting,
		Players: []models.Player{{UserID: "host-2", IsHost: true, IsReady: true}},
	})
	require.NoError(t, err)

	_, err = s.AppendPlayer(ctx, first.ID, models.Player{UserID: "user-1"})
	require.NoError(t, err)

	// same room again: failed predicate, no conflict
	_, err = s.AppendPlayer(ctx, first.ID, models.Player{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrNotFound)

	// another room: the cross-document unique index fires
	_, err = s.AppendPlayer(ctx, second.ID, models.Player{UserID: "user-1"})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)

	room, err := s.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, room.Players, 2)
}

// recorder captures broadcasts and channel closes for assertions.
type recorder struct {
	mu     sync.Mutex
	events map[string][]models.RoomEvent
	closed []string
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]models.RoomEvent)}
}

func (r *recorder) Broadcast(roomID string, ev models.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[roomID] = append(r.events[roomID], ev)
}

func (r *recorder) CloseChannel(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, roomID)
}

func (r *recorder) eventTypes(roomID string) []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []models.EventType
	for _, ev := range r.events[roomID] {
		types = append(types, ev.Type)
	}
	return types
}

// starter is a scripted GameStarter.
type starter struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (g *starter) Start(context.Context, *models.Room) (json.RawMessage, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.payload, nil
}
