package reasoning

import (
	"context"
	"sync"
)

// StubClient replays canned responses. Used in tests and for local
// development without provider credentials.
type StubClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	// Err, when set, is returned by every Complete call.
	Err error
	// Prompts records every prompt received, in order.
	Prompts []string
}

// NewStubClient creates a stub that cycles through responses. With no
// responses it returns an empty string.
func NewStubClient(responses []string) *StubClient {
	return &StubClient{responses: responses}
}

func (s *StubClient) Name() string { return "stub" }

func (s *StubClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[s.next%len(s.responses)]
	s.next++
	return resp, nil
}
