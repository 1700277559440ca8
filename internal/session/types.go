package session

import (
	"strings"
	"time"
)

// Status is a player's lifecycle state. A player starts at connecting,
// moves to connected when a socket is bound, and may declare ready/playing
// itself. Disconnected is reachable from anywhere and is reversible by
// binding a new socket.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReady        Status = "ready"
	StatusPlaying      Status = "playing"
	StatusDisconnected Status = "disconnected"
)

// ParseStatus maps a wire status name to a Status, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(s)) {
	case StatusConnecting:
		return StatusConnecting, true
	case StatusConnected:
		return StatusConnected, true
	case StatusReady:
		return StatusReady, true
	case StatusPlaying:
		return StatusPlaying, true
	case StatusDisconnected:
		return StatusDisconnected, true
	}
	return "", false
}

// Link cable actions relayed between players. The engine never interprets
// these; they are exported so clients and tests share one vocabulary.
const (
	ActionTradeRequest   = "trade_request"
	ActionBattleRequest  = "battle_request"
	ActionTradePokemon   = "trade_pokemon"
	ActionBattleStart    = "battle_start"
	ActionBattleAction   = "battle_action"
	ActionTradeComplete  = "trade_complete"
	ActionBattleComplete = "battle_complete"
	ActionSyncData       = "sync_data"
)

// SaveState is an opaque emulator snapshot kept on a player. Data and
// Screenshot are base64 strings the engine never decodes.
type SaveState struct {
	Data       string `json:"data,omitempty" bson:"data,omitempty"`
	Screenshot string `json:"screenshot,omitempty" bson:"screenshot,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// Player is one seat in a room. Identity is independent of any socket;
// SocketID is empty while no transport is bound.
type Player struct {
	ID        string     `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name"`
	IsHost    bool       `json:"is_host" bson:"is_host"`
	Status    Status     `json:"status" bson:"status"`
	SocketID  string     `json:"socket_id,omitempty" bson:"socket_id,omitempty"`
	ROMLoaded bool       `json:"rom_loaded" bson:"rom_loaded"`
	ROMName   string     `json:"rom_name,omitempty" bson:"rom_name,omitempty"`
	Save      *SaveState `json:"save_state,omitempty" bson:"save_state,omitempty"`
	JoinedAt  time.Time  `json:"joined_at" bson:"joined_at"`
}

func (p *Player) clone() *Player {
	cp := *p
	if p.Save != nil {
		s := *p.Save
		cp.Save = &s
	}
	return &cp
}

// MaxPlayers is the fixed room capacity: one link cable, two ends.
const MaxPlayers = 2

// Room is a two-player session container. Players are kept in join order,
// so Players[0] is always the longest-tenured member. LinkCable is derived:
// true exactly when both seats are filled.
type Room struct {
	Code         string    `json:"id" bson:"_id"`
	HostID       string    `json:"host_id" bson:"host_id"`
	Players      []*Player `json:"players" bson:"players"`
	MaxPlayers   int       `json:"max_players" bson:"max_players"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	LinkCable    bool      `json:"link_cable_connected" bson:"link_cable_connected"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	LastActivity time.Time `json:"last_activity" bson:"last_activity"`
}

func (r *Room) clone() *Room {
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp.Players[i] = p.clone()
	}
	return &cp
}

func (r *Room) player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
