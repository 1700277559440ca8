package store

import (
	"context"
	"time"

	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Darius0048/Pokemon-emu/internal/session"
)

const roomsCollection = "rooms"

// Mongo mirrors room snapshots into a document store. The engine never
// reads from it; a mirror write that fails is logged by the caller and
// forgotten.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

// NewMongo connects and verifies connectivity before returning.
func NewMongo(ctx context.Context, url, dbName string, log *slog.Logger) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, err
	}
	return &Mongo{client: client, db: client.Database(dbName), log: log}, nil
}

// SaveRoom upserts a room snapshot keyed by its code.
func (m *Mongo) SaveRoom(ctx context.Context, room *session.Room) error {
	_, err := m.db.Collection(roomsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": room.Code},
		room,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	m.log.Debug("store.room_saved", "room", room.Code)
	return nil
}

// DeleteRoom removes a room document; deleting a missing room is fine.
func (m *Mongo) DeleteRoom(ctx context.Context, code string) error {
	_, err := m.db.Collection(roomsCollection).DeleteOne(ctx, bson.M{"_id": code})
	return err
}

// Close disconnects from mongo.
func (m *Mongo) Close(ctx context.Context) {
	_ = m.client.Disconnect(ctx)
}
