package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
)

type createSessionRequest struct {
	Kind     string           `json:"kind"`
	Path     string           `json:"path,omitempty"`
	VideoID  string           `json:"video_id,omitempty"`
	Passages []models.Passage `json:"passages,omitempty"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Chat       bool      `json:"chat"`
	Collection string    `json:"collection"`
	CreatedAt  time.Time `json:"created_at"`
}

type askRequest struct {
	Query     string `json:"query"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create session request", zap.String("kind", req.Kind))

	var (
		orch *session.Orchestrator
		err  error
	)
	switch req.Kind {
	case session.KindDocs:
		orch, err = s.factory.Document(req.Path)
	case session.KindYouTube:
		orch, err = s.factory.Video(req.VideoID)
	case session.KindTable:
		if req.Path != "" {
			orch, err = s.factory.Table(req.Path)
		} else {
			orch, err = s.factory.Passages(req.Passages)
		}
	default:
		s.respondError(w, http.StatusBadRequest, "kind must be one of docs, youtube, table")
		return
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	e := s.add(orch)
	s.respondJSON(w, http.StatusCreated, sessionResponse{
		ID:         orch.ID(),
		Kind:       orch.Kind(),
		Chat:       orch.Chat(),
		Collection: orch.Collection(),
		CreatedAt:  e.created,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.factory.MaxTokens()
	}
	s.logger.Debug("ask request", zap.String("session", id), zap.Int("max_tokens", req.MaxTokens))

	e.mu.Lock()
	res, err := e.orch.Ask(r.Context(), req.Query, req.MaxTokens)
	e.mu.Unlock()
	s.touch(e)
	if err != nil {
		s.logger.Error("ask failed", zap.String("session", id), zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	e.mu.Lock()
	msgs := e.orch.Messages()
	turns := e.orch.Turns()
	e.mu.Unlock()
	if msgs == nil {
		msgs = []models.Message{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "turns": turns, "messages": msgs})
}

// handleSaved returns what the store holds for a session: the saved pairs in single-shot mode,
// the latest saved conversation in chat mode.
func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	store := s.factory.Store()
	if store == nil {
		s.respondError(w, http.StatusNotImplemented, "saving not enabled")
		return
	}
	if e.orch.Chat() {
		rec, err := store.LatestConversation(r.Context(), e.orch.Collection(), id)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, rec)
		return
	}
	recs, err := store.ListPairs(r.Context(), e.orch.Collection(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if recs == nil {
		recs = []*models.PairRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "pairs": recs})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete session request", zap.String("session", id))
	if !s.remove(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmbeddingProvider), errors.Is(err, models.ErrCompletionProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
