package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Handle is the outbound-send capability the table keeps per socket.
// Enqueue must preserve ordering for a single connection and never block.
type Handle interface {
	Enqueue(b []byte) bool
	Close() error
}

// Conn wraps a websocket with a buffered outbound queue drained by a single
// writer goroutine, so messages to one client are never reordered.
type Conn struct {
	ws   *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		out:  make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// Enqueue queues b for delivery. False means the connection is closed or
// its buffer is full; callers treat that as a delivery failure.
func (c *Conn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// Read blocks until a text/binary frame arrives. Returns false when the
// connection is gone.
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop drains the outbound queue and sends periodic pings. A write
// error closes the connection, which unblocks the read loop and lets the
// normal close cleanup run, so a broken pipe and a voluntary close share
// one path.
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			if err := c.ws.Write(ctx, websocket.MessageText, b); err != nil {
				_ = c.Close()
				return
			}
		case <-t.C:
			if err := c.ws.Ping(ctx); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close shuts the connection down once; safe to call from any goroutine.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
