package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/app"
	"github.com/Darius0048/Pokemon-emu/internal/session"
	"github.com/Darius0048/Pokemon-emu/internal/ws"
)

func newTestServer() (*httptest.Server, *session.Registry) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := session.NewRegistry(log)
	table := ws.NewTable(log, reg)
	disp := ws.NewDispatcher(log, reg, table)
	hub := ws.NewHub(log, reg, table, disp)

	api := &RoomsAPI{Log: log, Registry: reg}
	cfg := app.Config{CORSAllow: []string{"*"}}
	return httptest.NewServer(NewRouter(cfg, log, hub, api)), reg
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCreateAndJoinRoomAPI(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/rooms", map[string]string{"player_name": "Ash", "rom_name": "pokemon_blue.gb"})
	created := decode[createRoomResp](t, resp)
	if !created.Success || len(created.RoomID) != 6 || created.PlayerID == "" {
		t.Fatalf("create: %+v", created)
	}

	resp = postJSON(t, srv.URL+"/api/rooms/join", map[string]string{"room_id": created.RoomID, "player_name": "Misty"})
	joined := decode[joinRoomResp](t, resp)
	if !joined.Success || joined.Room == nil {
		t.Fatalf("join: %+v", joined)
	}
	if !joined.Room.LinkCable || len(joined.Room.Players) != 2 {
		t.Errorf("room after join: link=%v players=%d", joined.Room.LinkCable, len(joined.Room.Players))
	}

	resp = postJSON(t, srv.URL+"/api/rooms/join", map[string]string{"room_id": created.RoomID, "player_name": "Brock"})
	full := decode[joinRoomResp](t, resp)
	if full.Success || full.Message != "Room is full" {
		t.Errorf("third join: %+v", full)
	}
}

func TestJoinMissingRoomAPI(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/rooms/join", map[string]string{"room_id": "ZZZZZZ", "player_name": "Misty"})
	joined := decode[joinRoomResp](t, resp)
	if joined.Success || joined.Message != "Room not found" {
		t.Errorf("got %+v", joined)
	}
}

func TestListGetDeleteRoomAPI(t *testing.T) {
	srv, reg := newTestServer()
	defer srv.Close()

	room, _ := reg.CreateRoom("Ash", "")

	resp, err := http.Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	list := decode[roomListResp](t, resp)
	if list.Total != 1 || list.Rooms[0].Code != room.Code {
		t.Fatalf("list: %+v", list)
	}

	resp, err = http.Get(srv.URL + "/api/rooms/" + room.Code)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/rooms/"+room.Code, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete room: status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/rooms/" + room.Code)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted room: status %d, want 404", resp.StatusCode)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/rooms", map[string]string{"player_name": "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank name: status %d, want 400", resp.StatusCode)
	}
}
