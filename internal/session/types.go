// Package session persists rep conversation history in Redis so routing
// requests can be replayed and reviewed per conversation. The router
// itself is stateless; this store is a collaborator of the HTTP surface.
package session

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session is one rep conversation: identity plus the ordered turn history.
type Session struct {
	ID        string         `json:"id"`
	RepID     string         `json:"rep_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Turns     []Turn         `json:"turns"`
}

// Turn is one routed exchange: the rep's query and the response the
// router returned for it.
type Turn struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Response  json.RawMessage `json:"response,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
