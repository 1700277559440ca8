package ws

import (
	"fmt"
	"net/http"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Darius0048/Pokemon-emu/internal/session"
	"github.com/Darius0048/Pokemon-emu/pkg/metrics"
)

// Hub owns the /ws endpoint: it accepts sockets, registers them in the
// table, pumps inbound frames into the dispatcher, and runs the close
// cleanup.
type Hub struct {
	log   *slog.Logger
	reg   *session.Registry
	table *Table
	disp  *Dispatcher
}

func NewHub(log *slog.Logger, reg *session.Registry, table *Table, disp *Dispatcher) *Hub {
	return &Hub{log: log, reg: reg, table: table, disp: disp}
}

// ServeWS handles a new /ws/{socketID} connection. The client picks its
// socket id via the path; a fresh uuid is assigned when it doesn't.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	socketID := r.PathValue("socketID")
	if socketID == "" {
		socketID = uuid.NewString()
	}

	wsConn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(wsConn)
	h.table.Register(socketID, c)
	metrics.WSConnections.Inc()

	go c.WriteLoop(ctx)

	for {
		raw, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.disp.HandleInbound(socketID, raw)
	}

	// Close cleanup: forget the socket, mark the player disconnected, and
	// tell whoever is left. The player stays in the room until it leaves
	// explicitly or the sweeper takes the room.
	h.table.Unregister(socketID)
	metrics.WSConnections.Dec()
	_ = c.Close()

	if room, player, ok := h.reg.UnbindConnection(socketID); ok {
		h.table.BroadcastToRoom(room.Code, Message{
			Type: "player_disconnected",
			Data: map[string]any{
				"player_name": player.Name,
				"room":        room,
				"message":     fmt.Sprintf("%s has disconnected", player.Name),
			},
		}, socketID)
	}
	h.log.Info("ws.closed", "socket", socketID)
}
