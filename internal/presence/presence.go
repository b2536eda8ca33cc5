// Package presence mirrors live channel membership into Redis. It is a
// cache of who is connected, never a source of truth: room membership
// and capacity decisions always go to the room store.
package presence

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// Tracker maintains one set per room keyed room:<id>:presence. All
// operations are best-effort; a failed write is logged and dropped.
type Tracker struct {
	client *redis.Client
}

// Connect initializes the Redis client and verifies the connection.
func Connect(addr, password string, db int) (*Tracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Tracker{client: client}, nil
}

// Close closes the Redis connection.
func (t *Tracker) Close() error {
	return t.client.Close()
}

// Join records userID as present on the room's channel.
func (t *Tracker) Join(ctx context.Context, roomID, userID string) {
	key := presenceKey(roomID)
	if err := t.client.SAdd(ctx, key, userID).Err(); err != nil {
		log.Printf("presence: failed to add %s to %s: %v", userID, key, err)
		return
	}
	t.client.Expire(ctx, key, presenceTTL)
}

// Leave removes userID from the room's presence set.
func (t *Tracker) Leave(ctx context.Context, roomID, userID string) {
	if err := t.client.SRem(ctx, presenceKey(roomID), userID).Err(); err != nil {
		log.Printf("presence: failed to remove %s from room %s: %v", userID, roomID, err)
	}
}

// Clear drops the whole presence set, used when a room is deleted.
func (t *Tracker) Clear(ctx context.Context, roomID string) {
	if err := t.client.Del(ctx, presenceKey(roomID)).Err(); err != nil {
		log.Printf("presence: failed to clear room %s: %v", roomID, err)
	}
}

func presenceKey(roomID string) string {
	return "room:" + roomID + ":presence"
}
