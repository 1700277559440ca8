package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/Darius0048/Pokemon-emu/internal/app"
	httpx "github.com/Darius0048/Pokemon-emu/internal/http"
	"github.com/Darius0048/Pokemon-emu/internal/session"
	"github.com/Darius0048/Pokemon-emu/internal/store"
	"github.com/Darius0048/Pokemon-emu/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Mongo mirror for room snapshots (optional)
	var db *store.Mongo
	if cfg.MongoURL != "" {
		var err error
		db, err = store.NewMongo(ctx, cfg.MongoURL, cfg.MongoDB, logger)
		if err != nil {
			logger.Error("mongo connect", "err", err)
			log.Fatal(err)
		}
		defer db.Close(context.Background())
	}

	// Redis room-event feed (optional)
	var feed *ws.EventFeed
	if cfg.RedisAddr != "" {
		var err error
		feed, err = ws.NewEventFeed(ctx, cfg.RedisAddr, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("redis connect", "err", err)
			log.Fatal(err)
		}
		defer feed.Close()
	}

	// Session engine: registry + connection table + relay dispatcher
	registry := session.NewRegistry(logger)
	table := ws.NewTable(logger, registry)
	dispatcher := ws.NewDispatcher(logger, registry, table)
	hub := ws.NewHub(logger, registry, table, dispatcher)

	// Expiry sweeper; swept rooms also leave the mirror and the feed
	sweeper := session.NewSweeper(logger, registry, cfg.SweepInterval, cfg.RoomTTL,
		func(ctx context.Context, code string) error {
			feed.Publish(ctx, ws.RoomEvent{Kind: "swept", Room: code})
			if db == nil {
				return nil
			}
			return db.DeleteRoom(ctx, code)
		})
	go sweeper.Run(ctx)

	// HTTP + WS router
	api := &httpx.RoomsAPI{Log: logger, Registry: registry, Store: db, Feed: feed}
	router := httpx.NewRouter(cfg, logger, hub, api)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
