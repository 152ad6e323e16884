package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Arnaud58/LlamaKeeper/pkg/core"
	"github.com/Arnaud58/LlamaKeeper/pkg/events"
)

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	var req struct {
		Content    string                 `json:"content"`
		Importance *float64               `json:"importance"`
		Context    map[string]interface{} `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	opts := []core.CreateOption{}
	if req.Importance != nil {
		opts = append(opts, core.WithImportance(*req.Importance))
	}
	if req.Context != nil {
		opts = append(opts, core.WithContext(req.Context))
	}

	memory, err := s.client.CreateMemory(r.Context(), characterID, req.Content, opts...)
	if err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(memory)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	memories, err := s.client.ListMemories(r.Context(), characterID)
	if err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"character_id": characterID,
		"memories":     memories,
		"count":        len(memories),
	})
}

func (s *Server) handleRetrieveRelevant(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	var req struct {
		Context map[string]interface{} `json:"context"`
		TopK    int                    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	opts := []core.RetrieveOption{}
	if req.TopK > 0 {
		opts = append(opts, core.WithTopK(req.TopK))
	}

	memories, err := s.client.RetrieveRelevantMemories(r.Context(), characterID, req.Context, opts...)
	if err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"character_id": characterID,
		"memories":     memories,
		"count":        len(memories),
	})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	var req struct {
		MaxMemories     int      `json:"max_memories"`
		ForgetThreshold *float64 `json:"forget_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	opts := []core.ForgetOption{}
	if req.MaxMemories > 0 {
		opts = append(opts, core.WithMaxMemories(req.MaxMemories))
	}
	if req.ForgetThreshold != nil {
		opts = append(opts, core.WithForgetThreshold(*req.ForgetThreshold))
	}

	evicted, err := s.client.ForgetOldMemories(r.Context(), characterID, opts...)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	if evicted == nil {
		evicted = []int64{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"character_id": characterID,
		"evicted_ids":  evicted,
		"count":        len(evicted),
	})
}

func (s *Server) handlePurgeCharacter(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	if err := s.client.PurgeCharacter(r.Context(), characterID); err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "purged"})
}

func (s *Server) handleUpdateImportance(w http.ResponseWriter, r *http.Request) {
	memoryID, err := strconv.ParseInt(chi.URLParam(r, "memoryID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	var req struct {
		Importance float64 `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := s.client.UpdateMemoryImportance(r.Context(), memoryID, req.Importance); err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	memoryID, err := strconv.ParseInt(chi.URLParam(r, "memoryID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	// Deletion is idempotent: unknown ids still return OK.
	if err := s.client.DeleteMemories(r.Context(), memoryID); err != nil {
		writeKeeperError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (s *Server) handleGenerateAction(w http.ResponseWriter, r *http.Request) {
	if s.autonomy == nil {
		writeError(w, http.StatusServiceUnavailable, "autonomy system not configured")
		return
	}

	characterID := chi.URLParam(r, "characterID")

	var req struct {
		Character     core.Character         `json:"character"`
		StoryContext  map[string]interface{} `json:"story_context"`
		RecentActions []core.Action          `json:"recent_actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Character.ID = characterID

	action, err := s.autonomy.GenerateAction(r.Context(), &req.Character, req.StoryContext, req.RecentActions)
	if err != nil {
		writeKeeperError(w, err)
		return
	}

	if s.bus != nil {
		s.bus.Publish(events.NewEvent(events.ActionGenerated, map[string]interface{}{
			"character_id":    action.CharacterID,
			"action_type":     string(action.Type),
			"emotional_state": action.EmotionalState,
		}, "server"))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(action)
}

func (s *Server) handleGenerateDialogue(w http.ResponseWriter, r *http.Request) {
	if s.autonomy == nil {
		writeError(w, http.StatusServiceUnavailable, "autonomy system not configured")
		return
	}

	characterID := chi.URLParam(r, "characterID")

	var req struct {
		Character      core.Character         `json:"character"`
		StoryContext   map[string]interface{} `json:"story_context"`
		RecentDialogue []string               `json:"recent_dialogue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Character.ID = characterID

	dialogue, err := s.autonomy.GenerateDialogue(r.Context(), &req.Character, req.StoryContext, req.RecentDialogue)
	if err != nil {
		writeKeeperError(w, err)
		return
	}

	if s.bus != nil {
		s.bus.Publish(events.NewEvent(events.DialogueGenerated, map[string]interface{}{
			"character_id":   dialogue.CharacterID,
			"emotional_tone": dialogue.EmotionalTone,
		}, "server"))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dialogue)
}

// writeKeeperError maps domain errors to HTTP status codes.
func writeKeeperError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidContent), errors.Is(err, core.ErrInvalidCharacter):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrLLMOperation):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
