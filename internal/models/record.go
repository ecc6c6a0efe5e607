package models

import "time"

// PairRecord is a saved single-shot turn.
type PairRecord struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"session_id" bson:"session_id"`
	SourceID  string    `json:"source_id" bson:"source_id"`
	Query     string    `json:"query" bson:"query"`
	Answer    string    `json:"answer" bson:"answer"`
	Prompt    string    `json:"prompt" bson:"prompt"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ConversationRecord is a saved chat-mode turn holding the full conversation so far.
type ConversationRecord struct {
	ID           string    `json:"id" bson:"_id"`
	SessionID    string    `json:"session_id" bson:"session_id"`
	SourceID     string    `json:"source_id" bson:"source_id"`
	Conversation []Message `json:"conversation" bson:"conversation"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
