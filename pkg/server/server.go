// Package server exposes the LlamaKeeper memory and autonomy API over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Arnaud58/LlamaKeeper/pkg/autonomy"
	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/events"
)

// Server is the LlamaKeeper HTTP API server.
type Server struct {
	client   *core.Client
	autonomy *autonomy.System
	bus      *events.Bus
	hub      *storyHub
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a Server over a memory client.
//
// The autonomy system and event bus are optional: without an autonomy system
// the generation routes return 503, and without a bus the websocket stream
// carries no events.
func New(client *core.Client, autonomySystem *autonomy.System, bus *events.Bus, version string) *Server {
	s := &Server{
		client:   client,
		autonomy: autonomySystem,
		bus:      bus,
		hub:      newStoryHub(),
		version:  version,
		started:  time.Now(),
	}
	if bus != nil {
		bus.SubscribeAll(s.hub.broadcastEvent)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/characters/{characterID}", func(r chi.Router) {
			r.Post("/memories", s.handleCreateMemory)
			r.Get("/memories", s.handleListMemories)
			r.Post("/memories/relevant", s.handleRetrieveRelevant)
			r.Post("/memories/forget", s.handleForget)
			r.Delete("/memories", s.handlePurgeCharacter)

			r.Post("/actions", s.handleGenerateAction)
			r.Post("/dialogue", s.handleGenerateDialogue)
		})

		r.Put("/memories/{memoryID}/importance", s.handleUpdateImportance)
		r.Delete("/memories/{memoryID}", s.handleDeleteMemory)
	})

	r.Get("/ws", s.handleWebSocket)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}
