// Package httpapi is the thin HTTP wrapper around the supervisor's route
// entry point and the session store.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/session"
	"github.com/fieldpulse/copilot/internal/supervisor"
)

// Router is the route-handling seam; satisfied by *supervisor.Supervisor.
type Router interface {
	Route(ctx context.Context, req supervisor.RouteRequest) supervisor.FinalResponse
}

// RouteHandler serves POST /v1/route.
type RouteHandler struct {
	router   Router
	sessions *session.Manager
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRouteHandler builds the handler. sessions may be nil; routing then
// works without conversation history.
func NewRouteHandler(router Router, sessions *session.Manager, timeout time.Duration, logger *zap.Logger) *RouteHandler {
	if timeout == 0 {
		timeout = 25 * time.Minute
	}
	return &RouteHandler{router: router, sessions: sessions, timeout: timeout, logger: logger}
}

// RegisterRoutes attaches the handler to mux.
func (h *RouteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/route", h.handleRoute)
}

type routeRequest struct {
	Query      string `json:"query"`
	Transcript string `json:"transcript,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// handleRoute: POST /v1/route. Routing failures are typed fields inside a
// 200 response; non-200 is reserved for transport-level problems.
func (h *RouteHandler) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	requestID := uuid.New().String()
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.logger.Info("Routing request",
		zap.String("request_id", requestID),
		zap.Int("query_length", len(req.Query)),
	)

	resp := h.router.Route(ctx, supervisor.RouteRequest{
		Query:      req.Query,
		Transcript: req.Transcript,
	})

	body, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("Failed to marshal route response", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if req.SessionID != "" && h.sessions != nil {
		if _, err := h.sessions.AppendTurn(ctx, req.SessionID, req.Query, body); err != nil {
			// History is best effort; the routing result still goes back.
			h.logger.Warn("Failed to append turn to session",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	_, _ = w.Write(body)
}
