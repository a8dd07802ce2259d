package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/session"
)

// SessionHandler serves the conversation-history CRUD surface.
type SessionHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionHandler builds the handler.
func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes attaches the session endpoints to mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.handleSessions)
	mux.HandleFunc("/v1/sessions/", h.handleSessionByID)
}

type createSessionRequest struct {
	RepID    string         `json:"rep_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// handleSessions: POST /v1/sessions creates a conversation,
// GET /v1/sessions?rep_id= lists a rep's conversations.
func (h *SessionHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		repID := r.URL.Query().Get("rep_id")
		if repID == "" {
			http.Error(w, `{"error":"rep_id query parameter required"}`, http.StatusBadRequest)
			return
		}
		sessions, err := h.sessions.ListSessionsByRep(r.Context(), repID)
		if err != nil {
			h.logger.Error("Failed to list sessions", zap.Error(err))
			http.Error(w, `{"error":"failed to list sessions"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sessions": sessions})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.RepID == "" {
		http.Error(w, `{"error":"rep_id required"}`, http.StatusBadRequest)
		return
	}

	s, err := h.sessions.CreateSession(r.Context(), req.RepID, req.Metadata)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		http.Error(w, `{"error":"failed to create session"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(s)
}

// handleSessionByID: GET /v1/sessions/{id}, GET /v1/sessions/{id}/turns,
// DELETE /v1/sessions/{id}.
func (h *SessionHandler) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, `{"error":"session id required"}`, http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet && sub == "":
		s, err := h.sessions.GetSession(r.Context(), id)
		if err != nil {
			h.writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s)

	case r.Method == http.MethodGet && sub == "turns":
		turns, err := h.sessions.ListTurns(r.Context(), id)
		if err != nil {
			h.writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"turns": turns})

	case r.Method == http.MethodDelete && sub == "":
		if err := h.sessions.DeleteSession(r.Context(), id); err != nil {
			h.logger.Error("Failed to delete session", zap.Error(err))
			http.Error(w, `{"error":"failed to delete session"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
	case errors.Is(err, session.ErrSessionExpired):
		http.Error(w, `{"error":"session expired"}`, http.StatusGone)
	default:
		h.logger.Error("Session lookup failed", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
