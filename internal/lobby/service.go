package lobby

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/openlobby/lobby-service/internal/models"
)

// MinPlayersToStart is the smallest lobby a match can run with.
const MinPlayersToStart = 6

// Start-gate rejections. All leave the room untouched.
var (
	ErrPlayersNotReady  = errors.New("not all players are ready")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrAlreadyStarted   = errors.New("game already started")
	ErrPlayerNotInRoom  = errors.New("player not found in this room")
)

// Service implements room membership and lifecycle on top of the
// store's conditional updates. Every state-dependent mutation is a
// single atomic store operation; the service never decides on a read
// and writes afterwards.
type Service struct {
	store  Store
	games  GameStarter
	notify Notifier
}

func NewService(store Store, games GameStarter, notify Notifier) *Service {
	return &Service{store: store, games: games, notify: notify}
}

// CreateRoom inserts a new room with the caller as its sole, already
// ready host. Code collisions are retried with a fresh code; a name
// collision is the caller's to resolve.
func (s *Service) CreateRoom(ctx context.Context, ident models.Identity, req models.CreateRoomRequest) (*models.Room, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if !models.ValidGameMode(req.GameMode) {
		return nil, &ValidationError{Field: "gameMode", Reason: "must be classic or advanced"}
	}
	if req.RoomCapacity < 1 {
		return nil, &ValidationError{Field: "roomCapacity", Reason: "must be a positive integer"}
	}

	if existing, err := s.store.FindRoomWithPlayer(ctx, ident.ID); err == nil {
		return nil, &ConflictError{Field: "player", Detail: "already in room " + existing.Code}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	room := &models.Room{
		Name:         req.Name,
		GameMode:     req.GameMode,
		RoomCapacity: req.RoomCapacity,
		Status:       models.StatusWaiting,
		Players: []models.Player{{
			UserID:   ident.ID,
			Name:     ident.Name,
			ImageURL: ident.ImageURL,
			IsHost:   true,
			IsReady:  true,
		}},
	}

	// Collisions on a 5-character code are ~1/32^5 per draw; looping
	// until the unique index accepts one is the policy, not a hack.
	for {
		room.Code = GenerateCode()
		created, err := s.store.Insert(ctx, room)
		var conflict *ConflictError
		if errors.As(err, &conflict) && conflict.Field == "code" {
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Printf("room created: %s (code %s) by %s", created.ID, created.Code, ident.ID)
		return created, nil
	}
}

// GetRoom loads a room by id.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.FindByID(ctx, roomID)
}

// ListRooms returns every room.
func (s *Service) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.store.List(ctx)
}

// SearchRoom finds a room by (partial, case-insensitive) code or name.
func (s *Service) SearchRoom(ctx context.Context, pattern string) (*models.Room, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &ValidationError{Field: "codeOrName", Reason: "required"}
	}
	return s.store.FindByCodeOrName(ctx, pattern)
}

// JoinRoom appends the caller to the room's player list. A caller who
// is already a player of this room gets the current state back
// (idempotent double-submit); a caller who is a player of any other
// room is rejected. The append itself only succeeds while the room is
// waiting and below capacity.
func (s *Service) JoinRoom(ctx context.Context, roomID string, ident models.Identity) (*models.Room, error) {
	if existing, err := s.store.FindRoomWithPlayer(ctx, ident.ID); err == nil {
		if existing.ID == roomID {
			return existing, nil
		}
		return nil, &ConflictError{Field: "player", Detail: "already in room " + existing.Code}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	player := models.Player{
		UserID:   ident.ID,
		Name:     ident.Name,
		ImageURL: ident.ImageURL,
	}

	for {
		room, err := s.store.AppendPlayer(ctx, roomID, player)
		if err == nil {
			s.notify.Broadcast(roomID, models.RoomEvent{
				Type: models.EventPlayerJoined,
				Data: models.PlayerJoinedData{UserID: ident.ID, Name: ident.Name, ImageURL: ident.ImageURL},
			})
			return room, nil
		}

		// The unique player index caught a join that raced past the
		// pre-check: this identity is a player somewhere already.
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			existing, readErr := s.store.FindRoomWithPlayer(ctx, ident.ID)
			if errors.Is(readErr, ErrNotFound) {
				continue // membership vanished again; the append is safe to retry
			}
			if readErr != nil {
				return nil, readErr
			}
			if existing.ID == roomID {
				return existing, nil
			}
			return nil, &ConflictError{Field: "player", Detail: "already in room " + existing.Code}
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		// The conditional append matched nothing; a follow-up read tells
		// the caller which precondition failed.
		current, readErr := s.store.FindByID(ctx, roomID)
		if readErr != nil {
			return nil, readErr
		}
		if current.FindPlayer(ident.ID) != nil {
			// A double-submitted join raced past the pre-check and the
			// other copy won; same idempotent success as above.
			return current, nil
		}
		if current.Status != models.StatusWaiting {
			return nil, &StateError{Op: "join", Status: string(current.Status)}
		}
		if len(current.Players) >= current.RoomCapacity {
			return nil, ErrRoomFull
		}
		// Predicate raced with a concurrent leave or revert; the append
		// is safe to retry.
	}
}

// SetReady sets the caller's ready flag. Only valid while the room is
// waiting and the caller is one of its players; the store checks both
// in the same atomic step as the write.
func (s *Service) SetReady(ctx context.Context, roomID string, ident models.Identity, ready bool) (*models.Room, error) {
	room, err := s.store.SetPlayerReady(ctx, roomID, ident.ID, ready)
	if err != nil {
		return nil, err
	}
	s.notify.Broadcast(roomID, models.RoomEvent{
		Type: models.EventPlayerReady,
		Data: models.PlayerReadyData{UserID: ident.ID, IsReady: ready},
	})
	return room, nil
}

// RemovePlayer removes targetUserID from the room. Callers may remove
// themselves; the host may remove anyone. Removing the host deletes
// the whole room. The returned bool reports whether the room was
// deleted.
func (s *Service) RemovePlayer(ctx context.Context, roomID string, caller models.Identity, targetUserID string) (*models.Room, bool, error) {
	if targetUserID == "" {
		targetUserID = caller.ID
	}

	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	target := room.FindPlayer(targetUserID)
	if target == nil {
		return nil, false, ErrPlayerNotInRoom
	}
	// Host status never transfers, so authorizing on this read is safe
	// even if membership changes underneath us.
	host := room.Host()
	if caller.ID != targetUserID && (host == nil || host.UserID != caller.ID) {
		return nil, false, ErrForbidden
	}

	if target.IsHost {
		deleted, err := s.store.DeleteByID(ctx, roomID)
		if err != nil {
			return nil, false, err
		}
		log.Printf("room %s deleted: host %s left", roomID, targetUserID)
		s.notify.Broadcast(roomID, models.RoomEvent{Type: models.EventRoomDeleted})
		s.notify.CloseChannel(roomID)
		return deleted, true, nil
	}

	updated, err := s.store.PullPlayer(ctx, roomID, targetUserID)
	if errors.Is(err, ErrNotFound) {
		current, readErr := s.store.FindByID(ctx, roomID)
		if readErr != nil {
			return nil, false, readErr
		}
		if current.Status != models.StatusWaiting {
			return nil, false, &StateError{Op: "leave", Status: string(current.Status)}
		}
		return nil, false, ErrPlayerNotInRoom
	}
	if err != nil {
		return nil, false, err
	}
	s.notify.Broadcast(roomID, models.RoomEvent{
		Type: models.EventPlayerLeft,
		Data: models.PlayerLeftData{UserID: targetUserID},
	})
	return updated, false, nil
}

// DeleteRoom unconditionally deletes a room. Administrative only.
func (s *Service) DeleteRoom(ctx context.Context, roomID string, caller models.Identity) (*models.Room, error) {
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}
	deleted, err := s.store.DeleteByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	log.Printf("room %s deleted by admin %s", roomID, caller.ID)
	s.notify.Broadcast(roomID, models.RoomEvent{Type: models.EventRoomDeleted})
	s.notify.CloseChannel(roomID)
	return deleted, nil
}

// StartGame transitions the room waiting -> playing and hands it off to
// the game service. The transition is an atomic status swap so a racing
// duplicate start loses; a failed handoff swaps the status back before
// the error is surfaced, so callers never observe a playing room with
// no game behind it.
func (s *Service) StartGame(ctx context.Context, roomID string, caller models.Identity) error {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	host := room.Host()
	if host == nil || host.UserID != caller.ID {
		return ErrForbidden
	}
	if !room.AllReady() {
		return ErrPlayersNotReady
	}
	if len(room.Players) < MinPlayersToStart {
		return ErrNotEnoughPlayers
	}

	snapshot, err := s.store.SwapStatus(ctx, roomID, models.StatusWaiting, models.StatusPlaying)
	if errors.Is(err, ErrNotFound) {
		current, readErr := s.store.FindByID(ctx, roomID)
		if readErr != nil {
			return readErr
		}
		if current.Status == models.StatusPlaying {
			return ErrAlreadyStarted
		}
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	payload, err := s.games.Start(ctx, snapshot)
	if err != nil {
		// Best-effort revert; without it the room is stranded in playing
		// with no active game.
		if _, revertErr := s.store.SwapStatus(ctx, roomID, models.StatusPlaying, models.StatusWaiting); revertErr != nil {
			log.Printf("room %s: failed to revert status after start failure: %v", roomID, revertErr)
		}
		return &UpstreamError{Err: err}
	}

	if _, err := s.store.SetGameData(ctx, roomID, payload); err != nil {
		log.Printf("room %s: failed to persist game payload: %v", roomID, err)
	}
	log.Printf("room %s: game started by host %s with %d players", roomID, caller.ID, len(snapshot.Players))
	s.notify.Broadcast(roomID, models.RoomEvent{
		Type: models.EventGameStarted,
		Data: models.GameStartedData{Payload: payload},
	})
	return nil
}
