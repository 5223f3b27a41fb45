package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-party-service/internal/domain"
)

// codeAlphabet excludes easily confused characters (0, O, I, 1, L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeLength       = 6
	maxCodeAttempts  = 10000
	defaultRetention = time.Hour
)

// Marker is notified when rooms go live or are reclaimed, so an external
// store (Redis) can track liveness best-effort.
type Marker interface {
	MarkLive(code string)
	ClearLive(code string)
}

// TimerGuard reports whether a room currently has an armed timer. The
// reclamation sweep never touches armed rooms; a room with a live deadline
// timer is by construction never Finished or Abandoned.
type TimerGuard interface {
	Armed(code string) bool
}

// Registry owns the set of live rooms: the code-to-room and
// participant-to-room maps, collision-free code allocation, and periodic
// reclamation of stale rooms.
type Registry struct {
	bank      BankSource
	settings  domain.Settings
	retention time.Duration
	now       func() time.Time

	mu              sync.RWMutex
	rooms           map[string]*Room
	participantRoom map[string]string
	rng             *rand.Rand
	marker          Marker
	guard           TimerGuard
}

// NewRegistry creates an empty registry. Rooms older than retention are
// reclaimed regardless of state; zero retention means one hour.
func NewRegistry(bank BankSource, settings domain.Settings, retention time.Duration) *Registry {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Registry{
		bank:            bank,
		settings:        settings,
		retention:       retention,
		now:             time.Now,
		rooms:           make(map[string]*Room),
		participantRoom: make(map[string]string),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetMarker installs the liveness marker hook.
func (g *Registry) SetMarker(m Marker) { g.marker = m }

// SetTimerGuard installs the guard consulted by the reclamation sweep.
func (g *Registry) SetTimerGuard(t TimerGuard) { g.guard = t }

// CreateRoom allocates a fresh unique code, draws the room's question
// sequence, and registers the host as sole participant.
func (g *Registry) CreateRoom(ctx context.Context, hostName string) (code, hostID string, err error) {
	pool, err := g.bank.Questions(ctx)
	if err != nil {
		return "", "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	code, err = g.uniqueCodeLocked()
	if err != nil {
		return "", "", err
	}
	questions := DrawQuestions(pool, g.settings.TotalQuestions, g.rng)

	hostID = uuid.NewString()
	room := NewRoomWithClock(code, hostID, hostName, questions, g.settings, g.now)
	g.rooms[code] = room
	g.participantRoom[hostID] = code
	if g.marker != nil {
		g.marker.MarkLive(code)
	}
	return code, hostID, nil
}

// JoinRoom adds a participant to an existing room in Waiting.
func (g *Registry) JoinRoom(code, displayName string) (string, error) {
	g.mu.RLock()
	room, ok := g.rooms[code]
	g.mu.RUnlock()
	if !ok {
		return "", domain.ErrRoomNotFound
	}

	participantID, err := room.Join(displayName)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[code]; !ok {
		// Room was reclaimed while the join was in flight.
		return "", domain.ErrRoomNotFound
	}
	g.participantRoom[participantID] = code
	return participantID, nil
}

// RemoveParticipant deletes a participant and purges their room mapping,
// promoting a new host or abandoning the room as needed.
func (g *Registry) RemoveParticipant(participantID string) (code string, removed domain.PlayerView, wasHost, empty bool, err error) {
	g.mu.Lock()
	code, ok := g.participantRoom[participantID]
	if !ok {
		g.mu.Unlock()
		return "", domain.PlayerView{}, false, false, domain.ErrParticipantNotFound
	}
	delete(g.participantRoom, participantID)
	room := g.rooms[code]
	g.mu.Unlock()

	if room == nil {
		return "", domain.PlayerView{}, false, false, domain.ErrRoomNotFound
	}
	removed, wasHost, empty, err = room.Remove(participantID)
	return code, removed, wasHost, empty, err
}

// Room looks up a live room by code.
func (g *Registry) Room(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[code]
	return room, ok
}

// ParticipantRoom resolves a participant id to their room code.
func (g *Registry) ParticipantRoom(participantID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	code, ok := g.participantRoom[participantID]
	return code, ok
}

// Stats aggregates counts across live rooms for the admin surface.
func (g *Registry) Stats() domain.RegistryStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := domain.RegistryStats{TotalRooms: len(g.rooms)}
	for _, room := range g.rooms {
		switch room.State() {
		case domain.StateQuestion, domain.StateResults:
			stats.ActiveRooms++
		}
		stats.TotalParticipants += room.ParticipantCount()
	}
	return stats
}

// Reclaim removes rooms that are Finished, Abandoned, or older than the
// retention window, and purges their participant mappings. Rooms with an
// armed timer are skipped; they are mid-transition by definition. Idempotent
// and safe to call concurrently with room operations.
func (g *Registry) Reclaim() int {
	cutoff := g.now().Add(-g.retention)

	g.mu.Lock()
	defer g.mu.Unlock()

	reclaimed := 0
	for code, room := range g.rooms {
		if g.guard != nil && g.guard.Armed(code) {
			continue
		}
		state := room.State()
		stale := room.CreatedAt().Before(cutoff)
		if state != domain.StateFinished && state != domain.StateAbandoned && !stale {
			continue
		}

		for _, id := range room.ParticipantIDs() {
			delete(g.participantRoom, id)
		}
		delete(g.rooms, code)
		if g.marker != nil {
			g.marker.ClearLive(code)
		}
		reclaimed++
		log.Printf("reclaimed room %s (state=%s)", code, state)
	}
	return reclaimed
}

// RunReclaim sweeps on a fixed interval until ctx is canceled.
func (g *Registry) RunReclaim(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Reclaim()
		}
	}
}

func (g *Registry) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := make([]byte, codeLength)
		for i := range code {
			code[i] = codeAlphabet[g.rng.Intn(len(codeAlphabet))]
		}
		if _, taken := g.rooms[string(code)]; !taken {
			return string(code), nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}
