package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlobby/lobby-service/internal/lobby"
	"github.com/openlobby/lobby-service/internal/models"
)

const roomsCollection = "rooms"

// RoomStore implements lobby.Store on a MongoDB collection. Every
// conditional mutator is one FindOneAndUpdate: the filter is the
// predicate, the update document the mutation, and the server applies
// them indivisibly. Concurrent writers against the same room serialize
// there, never in this process.
type RoomStore struct {
	collection *mongo.Collection
}

func NewRoomStore(m *Mongo) *RoomStore {
	return &RoomStore{collection: m.database.Collection(roomsCollection)}
}

func (s *RoomStore) Insert(ctx context.Context, room *models.Room) (*models.Room, error) {
	doc := *room
	doc.ID = uuid.New().String()

	if _, err := s.collection.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &lobby.ConflictError{Field: duplicateField(err)}
		}
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}
	return &doc, nil
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *RoomStore) FindByCodeOrName(ctx context.Context, pattern string) (*models.Room, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"code": re},
		bson.M{"name": re},
	}})
}

func (s *RoomStore) FindRoomWithPlayer(ctx context.Context, userID string) (*models.Room, error) {
	return s.findOne(ctx, bson.M{"players.userId": userID})
}

func (s *RoomStore) List(ctx context.Context) ([]models.Room, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := []models.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func (s *RoomStore) DeleteByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		return nil, translate(err, "delete room")
	}
	return &room, nil
}

func (s *RoomStore) AppendPlayer(ctx context.Context, roomID string, p models.Player) (*models.Room, error) {
	// The $ne guard keeps a double-submitted join out of this room's
	// array; the unique player index only catches duplicates across
	// documents, not inside one.
	return s.updateWhere(ctx,
		bson.M{
			"_id":            roomID,
			"status":         models.StatusWaiting,
			"players.userId": bson.M{"$ne": p.UserID},
			"$expr":          bson.M{"$lt": bson.A{bson.M{"$size": "$players"}, "$roomCapacity"}},
		},
		bson.M{"$push": bson.M{"players": p}},
	)
}

func (s *RoomStore) SetPlayerReady(ctx context.Context, roomID, userID string, ready bool) (*models.Room, error) {
	return s.updateWhere(ctx,
		bson.M{
			"_id":            roomID,
			"status":         models.StatusWaiting,
			"players.userId": userID,
		},
		bson.M{"$set": bson.M{"players.$.isReady": ready}},
	)
}

func (s *RoomStore) PullPlayer(ctx context.Context, roomID, userID string) (*models.Room, error) {
	return s.updateWhere(ctx,
		bson.M{
			"_id":            roomID,
			"status":         models.StatusWaiting,
			"players.userId": userID,
		},
		bson.M{"$pull": bson.M{"players": bson.M{"userId": userID}}},
	)
}

func (s *RoomStore) SwapStatus(ctx context.Context, roomID string, from, to models.RoomStatus) (*models.Room, error) {
	return s.updateWhere(ctx,
		bson.M{"_id": roomID, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
}

func (s *RoomStore) SetGameData(ctx context.Context, roomID string, data json.RawMessage) (*models.Room, error) {
	return s.updateWhere(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"gameData": data}},
	)
}

func (s *RoomStore) findOne(ctx context.Context, filter bson.M) (*models.Room, error) {
	var room models.Room
	if err := s.collection.FindOne(ctx, filter).Decode(&room); err != nil {
		return nil, translate(err, "find room")
	}
	return &room, nil
}

// updateWhere is the conditional-update primitive: filter and update
// run as one atomic server-side operation, returning the post-update
// document. No match (absent room or failed predicate) is ErrNotFound.
func (s *RoomStore) updateWhere(ctx context.Context, filter, update bson.M) (*models.Room, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var room models.Room
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room); err != nil {
		return nil, translate(err, "update room")
	}
	return &room, nil
}

func translate(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return lobby.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return &lobby.ConflictError{Field: duplicateField(err)}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// duplicateField names the unique index an insert tripped over. The
// driver only exposes it through the server's error message.
func duplicateField(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "name_1") {
		return "name"
	}
	if strings.Contains(msg, "code_1") {
		return "code"
	}
	if strings.Contains(msg, "players.userId_1") {
		return "player"
	}
	return "room"
}
