package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomMarker keeps best-effort liveness keys for live rooms.
// Notes:
//   - Room state itself stays in process memory; the keys only mark which
//     codes are in use (and could be extended to route cross-instance
//     lookups or feed dashboards).
//   - Failures are ignored; the in-memory registry stays authoritative.
type RoomMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomMarker(client *redis.Client, ttl time.Duration) *RoomMarker {
	return &RoomMarker{client: client, ttl: ttl}
}

func (m *RoomMarker) MarkLive(code string) {
	_ = m.client.Set(context.Background(), m.key(code), "1", m.ttl).Err()
}

func (m *RoomMarker) ClearLive(code string) {
	_ = m.client.Del(context.Background(), m.key(code)).Err()
}

func (m *RoomMarker) key(code string) string {
	return "trivia:room:" + code
}
