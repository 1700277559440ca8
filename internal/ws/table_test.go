package ws

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHandle records delivered envelopes in order.
type fakeHandle struct {
	mu     sync.Mutex
	closed bool
	msgs   []wireMsg
}

type wireMsg struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func (f *fakeHandle) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	var m wireMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	f.msgs = append(f.msgs, m)
	return true
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeHandle) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Type
	}
	return out
}

func (f *fakeHandle) last() (wireMsg, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return wireMsg{}, false
	}
	return f.msgs[len(f.msgs)-1], true
}

func (f *fakeHandle) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestSendUnknownSocket(t *testing.T) {
	reg := session.NewRegistry(testLogger())
	table := NewTable(testLogger(), reg)

	if table.Send("nope", Message{Type: "pong"}) {
		t.Error("send to unknown socket must fail")
	}
}

func TestSendFailureUnregisters(t *testing.T) {
	reg := session.NewRegistry(testLogger())
	table := NewTable(testLogger(), reg)

	h := &fakeHandle{}
	table.Register("sock-1", h)
	_ = h.Close()

	if table.Send("sock-1", Message{Type: "pong"}) {
		t.Fatal("send to a dead handle must fail")
	}

	// The broken socket is gone; re-registering a fresh handle works.
	h2 := &fakeHandle{}
	table.Register("sock-1", h2)
	if !table.Send("sock-1", Message{Type: "pong"}) {
		t.Error("send after re-register failed")
	}
}

func TestBroadcastToRoom(t *testing.T) {
	reg := session.NewRegistry(testLogger())
	table := NewTable(testLogger(), reg)

	room, host := reg.CreateRoom("Ash", "")
	_, misty, _ := reg.JoinRoom(room.Code, "Misty", "")

	h1, h2 := &fakeHandle{}, &fakeHandle{}
	table.Register("sock-1", h1)
	table.Register("sock-2", h2)
	reg.BindConnection("sock-1", host.ID)
	reg.BindConnection("sock-2", misty.ID)

	sent := table.BroadcastToRoom(room.Code, Message{Type: "hello"}, "sock-1")
	if sent != 1 {
		t.Fatalf("sent = %d, want 1 (sender excluded)", sent)
	}
	if h1.count() != 0 {
		t.Error("excluded socket received the broadcast")
	}
	if h2.count() != 1 {
		t.Error("peer did not receive the broadcast")
	}

	if got := table.BroadcastToRoom("ZZZZZZ", Message{Type: "hello"}, ""); got != 0 {
		t.Errorf("broadcast to missing room sent %d", got)
	}
}

func TestBroadcastSkipsUnboundMembers(t *testing.T) {
	reg := session.NewRegistry(testLogger())
	table := NewTable(testLogger(), reg)

	room, host := reg.CreateRoom("Ash", "")
	_, misty, _ := reg.JoinRoom(room.Code, "Misty", "")

	h2 := &fakeHandle{}
	table.Register("sock-2", h2)
	reg.BindConnection("sock-2", misty.ID)
	_ = host // never bound

	if sent := table.BroadcastToRoom(room.Code, Message{Type: "hello"}, ""); sent != 1 {
		t.Errorf("sent = %d, want 1 (unbound member skipped)", sent)
	}
}
