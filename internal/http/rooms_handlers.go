package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/session"
	"github.com/Darius0048/Pokemon-emu/internal/store"
	"github.com/Darius0048/Pokemon-emu/internal/ws"
	"github.com/Darius0048/Pokemon-emu/pkg/metrics"
)

// RoomsAPI exposes room management over REST. Store and Feed may be nil;
// both are write-only mirrors, never consulted for correctness.
type RoomsAPI struct {
	Log      *slog.Logger
	Registry *session.Registry
	Store    *store.Mongo
	Feed     *ws.EventFeed
}

type createRoomReq struct {
	PlayerName string `json:"player_name"`
	ROMName    string `json:"rom_name"`
}

type createRoomResp struct {
	Success  bool   `json:"success"`
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Message  string `json:"message"`
}

type joinRoomReq struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	ROMName    string `json:"rom_name"`
}

type joinRoomResp struct {
	Success  bool          `json:"success"`
	Room     *session.Room `json:"room,omitempty"`
	PlayerID string        `json:"player_id,omitempty"`
	Message  string        `json:"message"`
}

type roomListResp struct {
	Rooms []*session.Room `json:"rooms"`
	Total int             `json:"total"`
}

// Create makes a new room with the requester as host.
func (a *RoomsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.PlayerName == "" {
		http.Error(w, "player_name required", http.StatusBadRequest)
		return
	}

	room, host := a.Registry.CreateRoom(req.PlayerName, req.ROMName)
	metrics.RoomsCreated.Inc()
	a.mirrorSave(r, room)
	a.Feed.Publish(r.Context(), ws.RoomEvent{Kind: "created", Room: room.Code, Player: host.Name})

	writeJSON(w, createRoomResp{
		Success:  true,
		RoomID:   room.Code,
		PlayerID: host.ID,
		Message:  "Room " + room.Code + " created successfully",
	})
}

// Join adds a player to an existing room. Lookup and capacity failures come
// back as success=false with a message, matching what clients expect.
func (a *RoomsAPI) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.RoomID == "" || req.PlayerName == "" {
		http.Error(w, "room_id and player_name required", http.StatusBadRequest)
		return
	}

	room, player, err := a.Registry.JoinRoom(req.RoomID, req.PlayerName, req.ROMName)
	if err != nil {
		writeJSON(w, joinRoomResp{Success: false, Message: joinFailureMessage(err)})
		return
	}

	a.mirrorSave(r, room)
	a.Feed.Publish(r.Context(), ws.RoomEvent{Kind: "joined", Room: room.Code, Player: player.Name})

	writeJSON(w, joinRoomResp{
		Success:  true,
		Room:     room,
		PlayerID: player.ID,
		Message:  "Successfully joined room",
	})
}

func joinFailureMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, session.ErrRoomInactive):
		return "Room is no longer active"
	case errors.Is(err, session.ErrRoomFull):
		return "Room is full"
	}
	return "Failed to join room"
}

// List returns joinable rooms, newest first.
func (a *RoomsAPI) List(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rooms := make([]*session.Room, 0, limit)
	for room := range a.Registry.ListAvailableRooms(limit) {
		rooms = append(rooms, room)
	}
	writeJSON(w, roomListResp{Rooms: rooms, Total: len(rooms)})
}

// Get returns one room by code.
func (a *RoomsAPI) Get(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("id")
	room, ok := a.Registry.GetRoom(code)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"success": true, "room": room})
}

// Delete force-removes a room and everything in it.
func (a *RoomsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("id"))
	a.Registry.RemoveRoom(code)

	if a.Store != nil {
		if err := a.Store.DeleteRoom(r.Context(), code); err != nil {
			a.Log.Error("store.room_delete", "room", code, "err", err)
		}
	}
	a.Feed.Publish(r.Context(), ws.RoomEvent{Kind: "removed", Room: code})

	writeJSON(w, map[string]any{"success": true, "message": "Room deleted successfully"})
}

func (a *RoomsAPI) mirrorSave(r *http.Request, room *session.Room) {
	if a.Store == nil {
		return
	}
	if err := a.Store.SaveRoom(r.Context(), room); err != nil {
		a.Log.Error("store.room_save", "room", room.Code, "err", err)
	}
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
