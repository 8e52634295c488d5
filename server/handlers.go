package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"videoChat/chat"
	"videoChat/config"
	"videoChat/core"
	"videoChat/qa"
	"videoChat/storage"
)

// Server wires the question-answering engines, chat persistence and the
// answer cache behind the HTTP API. Engines are created lazily per video and
// reused; builds for the same video are serialized.
type Server struct {
	cfg       *config.Config
	chats     *chat.Store
	embedder  storage.EmbeddingProvider
	generator qa.Generator
	cache     AnswerCache

	mu      sync.Mutex
	indexes map[string]storage.SegmentIndex
	engines map[string]*qa.Engine
	builds  map[string]*sync.Mutex
}

func New(cfg *config.Config, chats *chat.Store, embedder storage.EmbeddingProvider, generator qa.Generator, cache AnswerCache) *Server {
	return &Server{
		cfg:       cfg,
		chats:     chats,
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		indexes:   make(map[string]storage.SegmentIndex),
		engines:   make(map[string]*qa.Engine),
		builds:    make(map[string]*sync.Mutex),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	public := r.PathPrefix("/public").Subrouter()
	public.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("").Subrouter()
	api.Use(apiKeyMiddleware)
	api.HandleFunc("/videos/{id}/index", s.indexHandler).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/chat", s.chatHandler).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/chat/{session}/history", s.historyHandler).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/suggestions", s.suggestionsHandler).Methods(http.MethodGet)

	return r
}

// apiKeyMiddleware checks X-API-Key when SERVICE_API_KEY is set; with no key
// configured the API is open (local deployments).
func apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := os.Getenv("SERVICE_API_KEY")
		if expected != "" && r.Header.Get("X-API-Key") != expected {
			core.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) indexFor(ctx context.Context, videoID string) (storage.SegmentIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index, ok := s.indexes[videoID]; ok {
		return index, nil
	}
	index, err := storage.OpenIndex(ctx, s.cfg, videoID, s.embedder)
	if err != nil {
		return nil, err
	}
	s.indexes[videoID] = index
	return index, nil
}

func (s *Server) engineFor(ctx context.Context, videoID string) (*qa.Engine, error) {
	index, err := s.indexFor(ctx, videoID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if engine, ok := s.engines[videoID]; ok {
		return engine, nil
	}
	engine := qa.NewEngine(index, s.generator)
	s.engines[videoID] = engine
	return engine, nil
}

// buildLock serializes index builds per video; concurrent builds must not
// interleave their file writes.
func (s *Server) buildLock(videoID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.builds[videoID]
	if !ok {
		lock = &sync.Mutex{}
		s.builds[videoID] = lock
	}
	return lock
}

type indexRequest struct {
	Segments []core.Segment `json:"segments"`
	Text     string         `json:"text"`
}

type indexResponse struct {
	VideoID string `json:"video_id"`
	Count   int    `json:"count"`
	Status  string `json:"status"`
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	segments := core.NormalizeSegments(req.Segments)
	if len(segments) == 0 && strings.TrimSpace(req.Text) != "" {
		segments = core.SegmentsFromText(req.Text)
	}
	if len(segments) == 0 {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "segments or text required"})
		return
	}

	index, err := s.indexFor(r.Context(), videoID)
	if err != nil {
		core.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	lock := s.buildLock(videoID)
	lock.Lock()
	err = index.Build(r.Context(), segments)
	lock.Unlock()
	if err != nil {
		log.Printf("Index build failed for video %s: %v", videoID, err)
		core.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	core.WriteJSON(w, http.StatusOK, indexResponse{VideoID: videoID, Count: index.Count(), Status: "indexed"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type chatResponse struct {
	SessionID string              `json:"session_id"`
	Answer    string              `json:"answer"`
	Sources   []core.AnswerSource `json:"sources"`
	Error     string              `json:"error,omitempty"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}

	ctx := r.Context()
	session, err := s.chats.EnsureSession(ctx, videoID, req.SessionID)
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	result, cached := s.cache.Get(ctx, videoID, question)
	if !cached {
		engine, err := s.engineFor(ctx, videoID)
		if err != nil {
			core.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		result = engine.Answer(ctx, question)
		if result.Error == "" {
			s.cache.Put(ctx, videoID, question, result)
		}
	}

	if err := s.chats.AppendMessage(ctx, session.ID, "user", question, nil); err != nil {
		log.Printf("Persist user message failed: %v", err)
	}
	if err := s.chats.AppendMessage(ctx, session.ID, "assistant", result.Answer, result.Sources); err != nil {
		log.Printf("Persist assistant message failed: %v", err)
	}

	core.WriteJSON(w, http.StatusOK, chatResponse{
		SessionID: session.ID,
		Answer:    result.Answer,
		Sources:   result.Sources,
		Error:     result.Error,
	})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	messages, err := s.chats.History(r.Context(), sessionID, 0)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

func (s *Server) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"video_id":  mux.Vars(r)["id"],
		"questions": qa.SuggestedQuestions(),
	})
}
