// Package storage persists answered queries and conversations.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
)

// Store saves answered turns into named collections, e.g. "docs" or "docs_chat".
type Store interface {
	SavePair(ctx context.Context, collection string, rec *models.PairRecord) error
	SaveConversation(ctx context.Context, collection string, rec *models.ConversationRecord) error
	ListPairs(ctx context.Context, collection, sessionID string) ([]*models.PairRecord, error)
	LatestConversation(ctx context.Context, collection, sessionID string) (*models.ConversationRecord, error)
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		s, err := NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo":
		s, err := NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: storage driver %q is not supported, choose one of [sqlite mongo]",
		models.ErrConfiguration, cfg.Driver)
}

func preparePair(rec *models.PairRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

func prepareConversation(rec *models.ConversationRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
