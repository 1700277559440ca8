package httpx

import (
	"net/http"

	"log/slog"

	"github.com/Darius0048/Pokemon-emu/internal/app"
	"github.com/Darius0048/Pokemon-emu/internal/ws"
	"github.com/Darius0048/Pokemon-emu/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, api *RoomsAPI) http.Handler {
	mw := NewMiddleware(cfg)

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint; clients may carry their own socket id in the path
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))
	mux.Handle("/ws/{socketID}", http.HandlerFunc(hub.ServeWS))

	// API banner
	mux.Handle("/api/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]string{"message": "Pokemon Multiplayer Emulator API", "version": "1.0.0"})
	}))

	// Rooms endpoints
	mux.Handle("/api/rooms", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			api.Create(w, r)
			return
		}
		if r.Method == http.MethodGet {
			api.List(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	mux.Handle("/api/rooms/join", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		api.Join(w, r)
	}))
	mux.Handle("/api/rooms/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.Get(w, r)
		case http.MethodDelete:
			api.Delete(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mw.Wrap(mux)
}
