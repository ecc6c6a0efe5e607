package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyperjump/tanya/internal/models"
)

// MongoStore implements Store with one MongoDB collection per collection name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, fmt.Errorf("%w: mongo database name is empty", models.ErrConfiguration)
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// SavePair inserts a single-shot turn.
func (s *MongoStore) SavePair(ctx context.Context, collection string, rec *models.PairRecord) error {
	preparePair(rec)
	if _, err := s.db.Collection(collection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to save pair: %w", err)
	}
	return nil
}

// SaveConversation inserts a snapshot of a conversation.
func (s *MongoStore) SaveConversation(ctx context.Context, collection string, rec *models.ConversationRecord) error {
	prepareConversation(rec)
	if _, err := s.db.Collection(collection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// ListPairs returns the saved pairs of a session, oldest first.
func (s *MongoStore) ListPairs(ctx context.Context, collection, sessionID string) ([]*models.PairRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	var out []*models.PairRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestConversation returns the most recent conversation snapshot of a session.
func (s *MongoStore) LatestConversation(ctx context.Context, collection, sessionID string) (*models.ConversationRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rec models.ConversationRecord
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: no conversation for session %s", models.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
