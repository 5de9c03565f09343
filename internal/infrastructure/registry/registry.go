package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vaporchat/vapor/internal/domain"
	"github.com/vaporchat/vapor/internal/infrastructure/validate"
)

// Hasher derives and verifies salted password hashes.
type Hasher interface {
	Derive(password string) (salt, hash string, err error)
	Verify(password, salt, expectedHash string) bool
}

type Options struct {
	// MessageCapacity caps per-room history; oldest messages are evicted.
	// Zero means a default of 500.
	MessageCapacity uint
	// WipeHistoryOnLeave clears the room history for the remaining
	// participants whenever anyone exits or disconnects.
	WipeHistoryOnLeave bool
	// IdleExpiry is how long a room with no bound connections may sit
	// untouched before EvictIdle reclaims it.
	IdleExpiry time.Duration
}

// binding associates a live connection with a session/room pair. A
// connection holds at most one binding at a time.
type binding struct {
	sessionID string
	roomID    string
}

// Registry is the single source of truth for rooms, sessions, and messages.
// Every operation runs to completion under one mutex, so per-room state
// changes are totally ordered and never observed mid-mutation.
type Registry struct {
	mu         sync.Mutex
	rooms      map[string]*domain.Room
	sessions   map[string]*domain.Session
	bindings   map[string]binding   // connection id -> session/room
	lastAccess map[string]time.Time // room id -> last touch
	hasher     Hasher
	opts       Options
}

// JoinResult is returned by CreateRoom and JoinRoom; the caller hands the
// session id to the client for the websocket bind.
type JoinResult struct {
	RoomID    string
	RoomName  string
	SessionID string
}

// Departure describes the cleanup performed for one leaving connection, so
// the gateway knows which notifications to fan out.
type Departure struct {
	RoomID       string
	SessionID    string
	RoomDeleted  bool
	HistoryWiped bool
}

var (
	validateRoomName    = validate.Field("room name", validate.Required(), validate.MaxLength(64))
	validateDisplayName = validate.Field("display name", validate.Required(), validate.MaxLength(64))
	validatePassword    = validate.Field("password", validate.Required(), validate.MaxLength(128))
)

func New(hasher Hasher, opts Options) *Registry {
	if opts.MessageCapacity == 0 {
		opts.MessageCapacity = 500
	}
	return &Registry{
		rooms:      make(map[string]*domain.Room),
		sessions:   make(map[string]*domain.Session),
		bindings:   make(map[string]binding),
		lastAccess: make(map[string]time.Time),
		hasher:     hasher,
		opts:       opts,
	}
}

// CreateRoom stores a new room with the creator as its first participant.
// Duplicate names are allowed; name-based joins resolve to an unspecified
// match, so callers should prefer joining by id.
func (r *Registry) CreateRoom(name, password, displayName string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	password = strings.TrimSpace(password)
	displayName = strings.TrimSpace(displayName)

	for _, check := range []struct {
		v     validate.Validator
		value string
	}{
		{validateRoomName, name},
		{validatePassword, password},
		{validateDisplayName, displayName},
	} {
		if err := check.v(check.value); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}

	// CPU-bound, kept outside the lock.
	salt, hash, err := r.hasher.Derive(password)
	if err != nil {
		return nil, err
	}

	room := domain.NewRoom(name, salt, hash, displayName)
	session := domain.NewSession(room.ID, displayName)
	room.AddParticipant(session.ID, displayName)

	r.mu.Lock()
	r.rooms[room.ID] = room
	r.sessions[session.ID] = session
	r.touch(room.ID)
	r.mu.Unlock()

	return &JoinResult{RoomID: room.ID, RoomName: room.Name, SessionID: session.ID}, nil
}

// JoinRoom resolves a room by id when given, falling back to a
// case-insensitive trimmed name match, verifies the password, and admits the
// caller with a fresh session.
func (r *Registry) JoinRoom(roomID, roomName, password, displayName string) (*JoinResult, error) {
	password = strings.TrimSpace(password)
	displayName = strings.TrimSpace(displayName)

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := validateDisplayName(displayName); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	r.mu.Lock()
	room := r.resolveRoom(roomID, roomName)
	if room == nil {
		r.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	id, salt, hash := room.ID, room.PasswordSalt, room.PasswordHash
	r.mu.Unlock()

	// Password verification is as expensive as derivation; never hold the
	// lock across it.
	if !r.hasher.Verify(password, salt, hash) {
		return nil, domain.ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The room may have emptied out and been deleted while we were hashing.
	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	session := domain.NewSession(room.ID, displayName)
	room.AddParticipant(session.ID, displayName)
	r.sessions[session.ID] = session
	r.touch(room.ID)

	return &JoinResult{RoomID: room.ID, RoomName: room.Name, SessionID: session.ID}, nil
}

// Bind associates a live connection with a validated session/room pair and
// returns the room name plus a history snapshot for the initial sync.
func (r *Registry) Bind(connID, roomID, sessionID string) (string, []domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, roomOK := r.rooms[roomID]
	session, sessionOK := r.sessions[sessionID]
	if !roomOK || !sessionOK || session.RoomID != roomID {
		return "", nil, domain.ErrUnauthorized
	}

	r.bindings[connID] = binding{sessionID: sessionID, roomID: roomID}
	if p, ok := room.Participants[sessionID]; ok {
		p.ConnectionID = connID
	}
	r.touch(roomID)

	history := make([]domain.Message, len(room.Messages))
	copy(history, room.Messages)

	return room.Name, history, nil
}

// PostMessage appends a message for a bound connection and returns it for
// fan-out. An unbound connection or empty content is a silent no-op.
func (r *Registry) PostMessage(connID, content string) (*domain.Message, string, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[connID]
	if !ok {
		return nil, "", nil
	}
	room, roomOK := r.rooms[b.roomID]
	session, sessionOK := r.sessions[b.sessionID]
	if !roomOK || !sessionOK {
		return nil, "", nil
	}

	msg := domain.NewMessage(session.ID, session.DisplayName, text)
	room.Messages = append(room.Messages, msg)
	if excess := len(room.Messages) - int(r.opts.MessageCapacity); excess > 0 {
		room.Messages = room.Messages[excess:]
	}
	r.touch(room.ID)

	return &msg, room.ID, nil
}

// Vaporize irreversibly clears the room's history. Idempotent; an unknown
// room is a no-op.
func (r *Registry) Vaporize(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.ClearMessages()
		r.touch(roomID)
	}
}

// ExitRoom removes the connection's session from its room, wipes history per
// policy, and deletes the room once empty. The second return is false when
// the connection was never bound (cleanup already ran, or never joined).
func (r *Registry) ExitRoom(connID string) (*Departure, bool) {
	return r.removeAndClear(connID)
}

// HandleDisconnect performs the same cleanup as ExitRoom for a connection
// that vanished without an explicit exit. Safe to invoke more than once.
func (r *Registry) HandleDisconnect(connID string) (*Departure, bool) {
	return r.removeAndClear(connID)
}

func (r *Registry) removeAndClear(connID string) (*Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[connID]
	if !ok {
		return nil, false
	}
	delete(r.bindings, connID)
	delete(r.sessions, b.sessionID)

	dep := &Departure{RoomID: b.roomID, SessionID: b.sessionID}

	room, ok := r.rooms[b.roomID]
	if !ok {
		return dep, true
	}

	room.RemoveParticipant(b.sessionID)
	if r.opts.WipeHistoryOnLeave {
		room.ClearMessages()
		dep.HistoryWiped = true
	}
	if len(room.Participants) == 0 {
		delete(r.rooms, room.ID)
		delete(r.lastAccess, room.ID)
		dep.RoomDeleted = true
	} else {
		r.touch(room.ID)
	}

	return dep, true
}

// EvictIdle reclaims rooms that have sat untouched past the idle expiry and
// have no live connection bound to any participant. Rooms created over HTTP
// by clients that never opened a websocket are the usual victims. Returns
// the number of rooms removed.
func (r *Registry) EvictIdle(now time.Time) int {
	if r.opts.IdleExpiry <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	cutoff := now.Add(-r.opts.IdleExpiry)
	for id, last := range r.lastAccess {
		if !last.Before(cutoff) {
			continue
		}
		room, ok := r.rooms[id]
		if !ok {
			delete(r.lastAccess, id)
			continue
		}
		if anyBound(room) {
			continue
		}
		for sessionID := range room.Participants {
			delete(r.sessions, sessionID)
		}
		delete(r.rooms, id)
		delete(r.lastAccess, id)
		evicted++
	}
	return evicted
}

// Counts reports the current room and session totals, for expvar gauges.
func (r *Registry) Counts() (rooms, sessions int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms), len(r.sessions)
}

func (r *Registry) resolveRoom(roomID, roomName string) *domain.Room {
	if roomID != "" {
		if room, ok := r.rooms[roomID]; ok {
			return room
		}
	}
	if strings.TrimSpace(roomName) == "" {
		return nil
	}
	// First match wins; map order makes this unspecified when names collide.
	for _, room := range r.rooms {
		if room.NameMatches(roomName) {
			return room
		}
	}
	return nil
}

func anyBound(room *domain.Room) bool {
	for _, p := range room.Participants {
		if p.ConnectionID != "" {
			return true
		}
	}
	return false
}

func (r *Registry) touch(roomID string) {
	r.lastAccess[roomID] = time.Now()
}
