// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/descriptor"
)

// MongoConfig configures OpenMongo.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string

	// ConnectTimeout bounds the initial connect and ping.
	// Default: 5s.
	ConnectTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

type mongoRecord struct {
	UserID     string    `bson:"user_id"`
	Descriptor []float64 `bson:"descriptor"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per user in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	clock      clock.Clock
}

// OpenMongo connects, pings, and ensures a unique index on user_id.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("identity: mongo URI is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("identity: connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("identity: pinging mongo: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("identity: creating user_id index: %w", err)
	}

	cfg.Logger.Info("mongo identity store connected",
		"database", cfg.Database,
		"collection", cfg.Collection,
	)
	return &MongoStore{client: client, collection: collection, clock: cfg.Clock}, nil
}

func (s *MongoStore) Load(ctx context.Context, userID string) (Record, error) {
	var stored mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("identity: loading %q: %w", userID, err)
	}
	return Record{
		UserID:     stored.UserID,
		Descriptor: stored.Descriptor,
		CreatedAt:  stored.CreatedAt.UTC(),
		UpdatedAt:  stored.UpdatedAt.UTC(),
	}, nil
}

// Save upserts. $setOnInsert keeps created_at from the first save.
func (s *MongoStore) Save(ctx context.Context, userID string, values []float64) error {
	now := s.clock.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"descriptor": descriptor.Clone(values),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("identity: saving %q: %w", userID, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
