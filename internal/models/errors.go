package models

import "errors"

// Error kinds. Callers match with errors.Is; the cause stays wrapped.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmbeddingProvider  = errors.New("embedding provider error")
	ErrCompletionProvider = errors.New("completion provider error")
	ErrConfiguration      = errors.New("configuration error")
	ErrNotFound           = errors.New("not found")
)
