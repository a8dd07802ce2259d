// Package health aggregates component health checks behind the liveness
// and readiness endpoints.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckStatus represents the result of a health check.
type CheckStatus int

const (
	StatusHealthy CheckStatus = iota
	StatusUnhealthy
	StatusUnknown
)

func (s CheckStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// CheckResult contains the result of one health check.
type CheckResult struct {
	Component string        `json:"component"`
	Status    CheckStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Critical  bool          `json:"critical"`
}

// Checker is one component's health probe.
type Checker interface {
	// Name returns the unique name of this health check.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) CheckResult

	// IsCritical reports whether this check's failure makes the whole
	// service unready.
	IsCritical() bool
}

// Manager runs registered checkers on demand.
type Manager struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewManager creates an empty health manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		checkers: make(map[string]Checker),
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Register adds a checker, replacing any previous one with the same name.
func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[c.Name()] = c
}

// RunChecks executes all checkers and returns their results keyed by
// component name.
func (m *Manager) RunChecks(ctx context.Context) map[string]CheckResult {
	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	for _, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		result := c.Check(checkCtx)
		cancel()

		result.Component = c.Name()
		result.Duration = time.Since(start)
		result.Timestamp = time.Now()
		result.Critical = c.IsCritical()
		if result.Status == StatusUnhealthy {
			m.logger.Warn("Health check failed",
				zap.String("component", c.Name()),
				zap.String("error", result.Error),
			)
		}
		results[c.Name()] = result
	}
	return results
}

// IsReady reports whether every critical checker passes.
func (m *Manager) IsReady(ctx context.Context) bool {
	for _, r := range m.RunChecks(ctx) {
		if r.Critical && r.Status != StatusHealthy {
			return false
		}
	}
	return true
}
