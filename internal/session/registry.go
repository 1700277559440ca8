package session

import (
	"errors"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomInactive = errors.New("room is no longer active")
	ErrRoomFull     = errors.New("room is full")
)

// Registry owns every live room plus two auxiliary indexes:
// player id -> room code and socket id -> player id. All three are mutated
// under one mutex so no caller can observe a half-updated room/index pair.
// Every method hands out snapshot copies, never the live structs.
type Registry struct {
	log *slog.Logger

	mu         sync.Mutex
	rooms      map[string]*Room
	playerRoom map[string]string
	connPlayer map[string]string
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:        log,
		rooms:      make(map[string]*Room),
		playerRoom: make(map[string]string),
		connPlayer: make(map[string]string),
	}
}

// newRoomCode takes the first six hex chars of a v4 uuid, uppercased.
func newRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// CreateRoom allocates a fresh room with hostName as its host. If romName
// is non-empty the host starts ready with the image marked loaded.
func (r *Registry) CreateRoom(hostName, romName string) (*Room, *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := newRoomCode()
	for r.rooms[code] != nil {
		code = newRoomCode()
	}

	now := time.Now().UTC()
	host := &Player{
		ID:       uuid.NewString(),
		Name:     hostName,
		IsHost:   true,
		Status:   StatusConnecting,
		ROMName:  romName,
		JoinedAt: now,
	}
	if romName != "" {
		host.ROMLoaded = true
		host.Status = StatusReady
	}

	room := &Room{
		Code:         code,
		HostID:       host.ID,
		Players:      []*Player{host},
		MaxPlayers:   MaxPlayers,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.rooms[code] = room
	r.playerRoom[host.ID] = code

	r.log.Info("room.created", "room", code, "host", hostName)
	return room.clone(), host.clone()
}

// JoinRoom appends a new player to the room with the given code. The code
// is matched case-insensitively.
func (r *Registry) JoinRoom(code, playerName, romName string) (*Room, *Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[strings.ToUpper(code)]
	if room == nil {
		return nil, nil, ErrRoomNotFound
	}
	if !room.IsActive {
		return nil, nil, ErrRoomInactive
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, nil, ErrRoomFull
	}

	player := &Player{
		ID:       uuid.NewString(),
		Name:     playerName,
		Status:   StatusConnecting,
		ROMName:  romName,
		JoinedAt: time.Now().UTC(),
	}
	if romName != "" {
		player.ROMLoaded = true
		player.Status = StatusReady
	}

	room.Players = append(room.Players, player)
	room.LinkCable = len(room.Players) == room.MaxPlayers
	room.LastActivity = time.Now().UTC()
	r.playerRoom[player.ID] = room.Code

	r.log.Info("room.joined", "room", room.Code, "player", playerName)
	return room.clone(), player.clone(), nil
}

// LeaveRoom removes the player from its room. Returns the updated room, or
// nil if the player was unknown or the room emptied and was deleted.
func (r *Registry) LeaveRoom(playerID string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(playerID)
}

func (r *Registry) leaveLocked(playerID string) *Room {
	code, ok := r.playerRoom[playerID]
	if !ok {
		return nil
	}
	room := r.rooms[code]
	if room == nil {
		delete(r.playerRoom, playerID)
		return nil
	}

	kept := room.Players[:0]
	for _, p := range room.Players {
		if p.ID == playerID {
			if p.SocketID != "" {
				delete(r.connPlayer, p.SocketID)
			}
			continue
		}
		kept = append(kept, p)
	}
	room.Players = kept
	delete(r.playerRoom, playerID)

	room.LinkCable = len(room.Players) == room.MaxPlayers
	room.LastActivity = time.Now().UTC()

	if len(room.Players) == 0 {
		delete(r.rooms, code)
		r.log.Info("room.removed_empty", "room", code)
		return nil
	}

	// Host handoff: the longest-tenured remaining player takes over.
	if room.HostID == playerID {
		room.Players[0].IsHost = true
		room.HostID = room.Players[0].ID
	}
	return room.clone()
}

// GetRoom looks up a room by its code, case-insensitively.
func (r *Registry) GetRoom(code string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[strings.ToUpper(code)]
	if room == nil {
		return nil, false
	}
	return room.clone(), true
}

// GetPlayerRoom returns the room a player belongs to.
func (r *Registry) GetPlayerRoom(playerID string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.playerRoomLocked(playerID)
	if room == nil {
		return nil, false
	}
	return room.clone(), true
}

func (r *Registry) playerRoomLocked(playerID string) *Room {
	code, ok := r.playerRoom[playerID]
	if !ok {
		return nil
	}
	return r.rooms[code]
}

// ListAvailableRooms yields active, below-capacity rooms, newest first,
// truncated to limit. The sequence is a snapshot and may be ranged over
// more than once.
func (r *Registry) ListAvailableRooms(limit int) iter.Seq[*Room] {
	r.mu.Lock()
	var open []*Room
	for _, room := range r.rooms {
		if room.IsActive && len(room.Players) < room.MaxPlayers {
			open = append(open, room.clone())
		}
	}
	r.mu.Unlock()

	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	if limit >= 0 && len(open) > limit {
		open = open[:limit]
	}

	return func(yield func(*Room) bool) {
		for _, room := range open {
			if !yield(room) {
				return
			}
		}
	}
}

// UpdatePlayerStatus sets the player's status and bumps room activity.
func (r *Registry) UpdatePlayerStatus(playerID string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.playerRoomLocked(playerID)
	if room == nil {
		return false
	}
	p := room.player(playerID)
	if p == nil {
		return false
	}
	p.Status = status
	room.LastActivity = time.Now().UTC()
	return true
}

// BindConnection associates a live socket with a player and forces its
// status to connected. Rebinding replaces any previous socket and drops the
// stale index entry.
func (r *Registry) BindConnection(connID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.playerRoomLocked(playerID)
	if room == nil {
		return false
	}
	p := room.player(playerID)
	if p == nil {
		return false
	}

	if p.SocketID != "" {
		delete(r.connPlayer, p.SocketID)
	}
	r.connPlayer[connID] = playerID
	p.SocketID = connID
	p.Status = StatusConnected
	room.LastActivity = time.Now().UTC()

	r.log.Info("socket.bound", "socket", connID, "player", p.Name, "room", room.Code)
	return true
}

// UnbindConnection clears the player's socket and marks it disconnected.
// The player stays in the room; the returned snapshots let the caller
// notify remaining members.
func (r *Registry) UnbindConnection(connID string) (*Room, *Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.connPlayer[connID]
	if !ok {
		return nil, nil, false
	}
	room := r.playerRoomLocked(playerID)
	if room == nil {
		delete(r.connPlayer, connID)
		return nil, nil, false
	}
	p := room.player(playerID)
	if p == nil {
		delete(r.connPlayer, connID)
		return nil, nil, false
	}

	p.SocketID = ""
	p.Status = StatusDisconnected
	delete(r.connPlayer, connID)

	r.log.Info("socket.unbound", "socket", connID, "player", p.Name, "room", room.Code)
	return room.clone(), p.clone(), true
}

// ResolveConnection returns the room and player a socket is bound to.
func (r *Registry) ResolveConnection(connID string) (*Room, *Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.connPlayer[connID]
	if !ok {
		return nil, nil, false
	}
	room := r.playerRoomLocked(playerID)
	if room == nil {
		return nil, nil, false
	}
	p := room.player(playerID)
	if p == nil {
		return nil, nil, false
	}
	return room.clone(), p.clone(), true
}

// StoreSave records an opaque save blob on the player.
func (r *Registry) StoreSave(playerID string, save SaveState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.playerRoomLocked(playerID)
	if room == nil {
		return false
	}
	p := room.player(playerID)
	if p == nil {
		return false
	}
	p.Save = &save
	return true
}

// LoadSave returns the player's stored save blob, if any.
func (r *Registry) LoadSave(playerID string) (SaveState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.playerRoomLocked(playerID)
	if room == nil {
		return SaveState{}, false
	}
	p := room.player(playerID)
	if p == nil || p.Save == nil {
		return SaveState{}, false
	}
	return *p.Save, true
}

// RemoveRoom evicts every member and deletes the room. Used by explicit
// deletion requests and the expiry sweeper.
func (r *Registry) RemoveRoom(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[strings.ToUpper(code)]
	if room == nil {
		return
	}
	members := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		members = append(members, p.ID)
	}
	for _, id := range members {
		r.leaveLocked(id)
	}
	// leaveLocked deletes the room with the last member; this covers a room
	// that somehow had no members at all.
	delete(r.rooms, room.Code)
}

// ExpiredRooms returns codes of rooms idle since before cutoff, plus any
// room flagged inactive.
func (r *Registry) ExpiredRooms(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for code, room := range r.rooms {
		if room.LastActivity.Before(cutoff) || !room.IsActive {
			out = append(out, code)
		}
	}
	return out
}
