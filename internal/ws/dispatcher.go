package ws

import (
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/session"
	"github.com/Darius0048/Pokemon-emu/pkg/metrics"
)

// inbound is the tagged client envelope. Data stays raw until the type is
// known, then decodes into one of the closed payload structs below, so a
// malformed message fails at parse time instead of deep in a handler.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinRoomData struct {
	PlayerID string `json:"player_id"`
}

type playerStatusData struct {
	Status string `json:"status"`
}

type linkCableData struct {
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type saveStateData struct {
	Action     string `json:"action"`
	SaveData   string `json:"save_data"`
	Screenshot string `json:"screenshot"`
	Timestamp  int64  `json:"timestamp"`
}

// Dispatcher interprets inbound socket messages, mutates the registry, and
// emits replies and broadcasts through the connection table.
type Dispatcher struct {
	log   *slog.Logger
	reg   *session.Registry
	table *Table
}

func NewDispatcher(log *slog.Logger, reg *session.Registry, table *Table) *Dispatcher {
	return &Dispatcher{log: log, reg: reg, table: table}
}

// HandleInbound is the single entry point for raw client frames. Whatever
// goes wrong, the worst outcome is an error reply to the sender; the
// connection itself is never torn down here.
func (d *Dispatcher) HandleInbound(socketID string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("ws.dispatch_panic", "socket", socketID, "panic", r)
			d.sendError(socketID, "Failed to process message")
		}
	}()

	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.log.Warn("ws.malformed", "socket", socketID, "err", err)
		d.sendError(socketID, "Failed to process message")
		return
	}

	d.log.Debug("ws.message", "socket", socketID, "type", msg.Type)

	switch msg.Type {
	case "join_room":
		d.handleJoinRoom(socketID, msg.Data)
	case "leave_room":
		d.handleLeaveRoom(socketID)
	case "link_cable_data":
		d.handleLinkCable(socketID, msg.Data)
	case "player_status":
		d.handlePlayerStatus(socketID, msg.Data)
	case "save_state":
		d.handleSaveState(socketID, msg.Data)
	case "ping":
		d.table.Send(socketID, Message{Type: "pong", Data: map[string]any{}})
	default:
		d.log.Warn("ws.unknown_type", "socket", socketID, "type", msg.Type)
	}
}

// handleJoinRoom binds the socket to an already-registered player and
// announces the connection to the rest of the room.
func (d *Dispatcher) handleJoinRoom(socketID string, data json.RawMessage) {
	var p joinRoomData
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerID == "" {
		d.sendError(socketID, "Player ID required")
		return
	}

	if !d.reg.BindConnection(socketID, p.PlayerID) {
		d.sendError(socketID, "Failed to join room")
		return
	}

	room, ok := d.reg.GetPlayerRoom(p.PlayerID)
	if !ok {
		return
	}

	d.table.BroadcastToRoom(room.Code, Message{
		Type: "player_joined",
		Data: map[string]any{
			"room":    room,
			"message": "A player has connected",
		},
	}, socketID)

	d.table.Send(socketID, Message{
		Type: "room_joined",
		Data: map[string]any{
			"room":    room,
			"message": "Successfully connected to room",
		},
	})
}

// handleLeaveRoom unbinds the socket; the player stays in the room as
// disconnected and can rebind later.
func (d *Dispatcher) handleLeaveRoom(socketID string) {
	room, player, ok := d.reg.UnbindConnection(socketID)
	if !ok {
		d.sendError(socketID, "Not connected to a room")
		return
	}

	d.table.BroadcastToRoom(room.Code, Message{
		Type: "player_left",
		Data: map[string]any{
			"room":        room,
			"player_name": player.Name,
			"message":     fmt.Sprintf("%s has left the room", player.Name),
		},
	}, socketID)
}

// handleLinkCable forwards an opaque payload to the other end of the cable.
// Requires both seats filled and the peer holding a live socket.
func (d *Dispatcher) handleLinkCable(socketID string, data json.RawMessage) {
	room, sender, ok := d.reg.ResolveConnection(socketID)
	if !ok {
		d.sendError(socketID, "Not connected to a room")
		return
	}
	if !room.LinkCable {
		d.sendError(socketID, "Link cable not connected")
		return
	}

	var peer *session.Player
	for _, p := range room.Players {
		if p.ID != sender.ID && p.SocketID != "" {
			peer = p
			break
		}
	}
	if peer == nil {
		d.sendError(socketID, "No other player connected")
		return
	}

	var lc linkCableData
	if err := json.Unmarshal(data, &lc); err != nil {
		d.sendError(socketID, "Failed to process message")
		return
	}

	d.table.Send(peer.SocketID, Message{
		Type: "link_cable_data",
		Data: map[string]any{
			"action":      lc.Action,
			"payload":     lc.Payload,
			"from_player": sender.Name,
			"timestamp":   lc.Timestamp,
		},
	})
	metrics.MessagesRelayed.Inc()
	d.log.Debug("link.relayed", "from", sender.Name, "to", peer.Name, "action", lc.Action)
}

// handlePlayerStatus applies a declared status change and echoes it to the
// whole room, sender included.
func (d *Dispatcher) handlePlayerStatus(socketID string, data json.RawMessage) {
	room, player, ok := d.reg.ResolveConnection(socketID)
	if !ok {
		d.sendError(socketID, "Not connected to a room")
		return
	}

	var p playerStatusData
	if err := json.Unmarshal(data, &p); err != nil {
		d.sendError(socketID, "Failed to process message")
		return
	}
	status, ok := session.ParseStatus(p.Status)
	if !ok {
		d.sendError(socketID, "Unknown status")
		return
	}
	if !d.reg.UpdatePlayerStatus(player.ID, status) {
		d.sendError(socketID, "Failed to update status")
		return
	}

	// Re-read so the broadcast snapshot carries the new status.
	room, ok = d.reg.GetRoom(room.Code)
	if !ok {
		return
	}
	d.table.BroadcastToRoom(room.Code, Message{
		Type: "player_status_updated",
		Data: map[string]any{
			"player_id":   player.ID,
			"player_name": player.Name,
			"status":      string(status),
			"room":        room,
		},
	}, "")
}

// handleSaveState stores or returns the sender's opaque save blob.
func (d *Dispatcher) handleSaveState(socketID string, data json.RawMessage) {
	_, player, ok := d.reg.ResolveConnection(socketID)
	if !ok {
		d.sendError(socketID, "Not connected to a room")
		return
	}

	var p saveStateData
	if err := json.Unmarshal(data, &p); err != nil {
		d.sendError(socketID, "Failed to process message")
		return
	}

	switch p.Action {
	case "save":
		d.reg.StoreSave(player.ID, session.SaveState{
			Data:       p.SaveData,
			Screenshot: p.Screenshot,
			Timestamp:  p.Timestamp,
		})
		d.table.Send(socketID, Message{
			Type: "save_state_response",
			Data: map[string]any{
				"action":  "save",
				"success": true,
				"message": "Game state saved successfully",
			},
		})
	case "load":
		save, found := d.reg.LoadSave(player.ID)
		if !found {
			d.table.Send(socketID, Message{
				Type: "save_state_response",
				Data: map[string]any{
					"action":  "load",
					"success": false,
					"message": "No save state found",
				},
			})
			return
		}
		d.table.Send(socketID, Message{
			Type: "save_state_response",
			Data: map[string]any{
				"action":    "load",
				"success":   true,
				"save_data": save.Data,
				"message":   "Game state loaded successfully",
			},
		})
	default:
		d.sendError(socketID, "Unknown save action")
	}
}

func (d *Dispatcher) sendError(socketID, message string) {
	d.table.Send(socketID, Message{
		Type: "error",
		Data: map[string]any{"message": message},
	})
}
