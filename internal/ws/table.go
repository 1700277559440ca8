package ws

import (
	"encoding/json"
	"sync"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/session"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Table maps socket ids to live connections, independent of room
// membership. A socket that fails a send is dropped on the spot: a broken
// pipe is an implicit disconnect.
type Table struct {
	log *slog.Logger
	reg *session.Registry

	mu    sync.RWMutex
	conns map[string]Handle
}

func NewTable(log *slog.Logger, reg *session.Registry) *Table {
	return &Table{log: log, reg: reg, conns: make(map[string]Handle)}
}

// Register adds a live connection under its socket id.
func (t *Table) Register(socketID string, h Handle) {
	t.mu.Lock()
	t.conns[socketID] = h
	t.mu.Unlock()
	t.log.Info("ws.registered", "socket", socketID)
}

// Unregister forgets a connection. The handle is not closed here; its
// owner does that.
func (t *Table) Unregister(socketID string) {
	t.mu.Lock()
	delete(t.conns, socketID)
	t.mu.Unlock()
}

// Send delivers one message to one socket. Returns false if the socket is
// unknown or the enqueue fails; a failed socket is auto-unregistered.
func (t *Table) Send(socketID string, msg Message) bool {
	t.mu.RLock()
	h := t.conns[socketID]
	t.mu.RUnlock()
	if h == nil {
		return false
	}

	b, err := json.Marshal(msg)
	if err != nil {
		t.log.Error("ws.marshal", "socket", socketID, "err", err)
		return false
	}
	if !h.Enqueue(b) {
		t.log.Warn("ws.delivery_failed", "socket", socketID)
		t.Unregister(socketID)
		_ = h.Close()
		return false
	}
	return true
}

// BroadcastToRoom sends msg to every room member with a live, non-excluded
// socket. Silent no-op if the room is gone. Returns how many deliveries
// succeeded.
func (t *Table) BroadcastToRoom(roomCode string, msg Message, excludeSocket string) int {
	room, ok := t.reg.GetRoom(roomCode)
	if !ok {
		return 0
	}

	sent := 0
	for _, p := range room.Players {
		if p.SocketID == "" || p.SocketID == excludeSocket {
			continue
		}
		if t.Send(p.SocketID, msg) {
			sent++
		}
	}
	t.log.Debug("ws.broadcast", "room", roomCode, "sent", sent)
	return sent
}
