package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/metrics"
)

// Manager stores conversations in Redis with a small local cache in
// front.
type Manager struct {
	client     *redis.Client
	logger     *zap.Logger
	ttl        time.Duration
	mu         sync.RWMutex
	localCache map[string]*Session
	access     map[string]time.Time
	maxCached  int
}

// Config holds session store settings.
type Config struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxCached int           `mapstructure:"max_cached"`
}

// NewManager connects to Redis and verifies the connection before
// returning.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewManagerWithClient(client, cfg, logger), nil
}

// NewManagerWithClient wraps an existing Redis client; used by tests.
func NewManagerWithClient(client *redis.Client, cfg Config, logger *zap.Logger) *Manager {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	maxCached := cfg.MaxCached
	if maxCached == 0 {
		maxCached = 10000
	}
	return &Manager{
		client:     client,
		logger:     logger,
		ttl:        ttl,
		localCache: make(map[string]*Session),
		access:     make(map[string]time.Time),
		maxCached:  maxCached,
	}
}

// CreateSession opens a new conversation for repID.
func (m *Manager) CreateSession(ctx context.Context, repID string, metadata map[string]any) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		RepID:     repID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Metadata:  metadata,
		Turns:     make([]Turn, 0),
	}

	if err := m.save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if repID != "" {
		pipe := m.client.Pipeline()
		pipe.SAdd(ctx, m.repKey(repID), session.ID)
		pipe.Expire(ctx, m.repKey(repID), m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			m.logger.Warn("Failed to index session by rep",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
	}
	m.cache(session)

	m.logger.Info("Created new session",
		zap.String("session_id", session.ID),
		zap.String("rep_id", repID),
	)
	metrics.SessionsCreated.Inc()
	return session, nil
}

// GetSession retrieves a session by ID, local cache first.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	cached, ok := m.localCache[sessionID]
	m.mu.RUnlock()
	if ok {
		if cached.IsExpired() {
			_ = m.DeleteSession(ctx, sessionID)
			return nil, ErrSessionExpired
		}
		m.mu.Lock()
		m.access[sessionID] = time.Now()
		m.mu.Unlock()
		return cached, nil
	}

	data, err := m.client.Get(ctx, m.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.IsExpired() {
		_ = m.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	m.cache(&session)
	return &session, nil
}

// AppendTurn records one routed exchange on the session and refreshes its
// TTL.
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, query string, response json.RawMessage) (*Turn, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turn := Turn{
		ID:        uuid.New().String(),
		Query:     query,
		Response:  response,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	session.Turns = append(session.Turns, turn)
	session.UpdatedAt = turn.Timestamp
	session.ExpiresAt = turn.Timestamp.Add(m.ttl)
	m.mu.Unlock()

	if err := m.save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	metrics.SessionTurnsAppended.Inc()
	return &turn, nil
}

// ListTurns returns the session's turn history in order.
func (m *Manager) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := make([]Turn, len(session.Turns))
	copy(turns, session.Turns)
	return turns, nil
}

// ListSessionsByRep returns the rep's live sessions, pruning expired
// entries from the index as it goes.
func (m *Manager) ListSessionsByRep(ctx context.Context, repID string) ([]*Session, error) {
	ids, err := m.client.SMembers(ctx, m.repKey(repID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for rep: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		session, err := m.GetSession(ctx, id)
		switch {
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
			_ = m.client.SRem(ctx, m.repKey(repID), id).Err()
		case err != nil:
			return nil, err
		default:
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// DeleteSession removes the session from Redis and the local cache.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if data, err := m.client.Get(ctx, m.key(sessionID)).Bytes(); err == nil {
		var s Session
		if json.Unmarshal(data, &s) == nil && s.RepID != "" {
			_ = m.client.SRem(ctx, m.repKey(s.RepID), sessionID).Err()
		}
	}

	m.mu.Lock()
	delete(m.localCache, sessionID)
	delete(m.access, sessionID)
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	if err := m.client.Del(ctx, m.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, session *Session) error {
	m.mu.RLock()
	data, err := json.Marshal(session)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return m.client.Set(ctx, m.key(session.ID), data, m.ttl).Err()
}

func (m *Manager) cache(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localCache[session.ID] = session
	m.access[session.ID] = time.Now()
	m.evictLocked()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
}

// evictLocked drops the least recently used entries once the cache is
// over capacity. Caller holds mu.
func (m *Manager) evictLocked() {
	for len(m.localCache) > m.maxCached {
		oldestID := ""
		var oldest time.Time
		for id, at := range m.access {
			if oldestID == "" || at.Before(oldest) {
				oldestID = id
				oldest = at
			}
		}
		delete(m.localCache, oldestID)
		delete(m.access, oldestID)
	}
}

// Client exposes the Redis client for health checks.
func (m *Manager) Client() *redis.Client { return m.client }

func (m *Manager) key(sessionID string) string {
	return "copilot:session:" + sessionID
}

func (m *Manager) repKey(repID string) string {
	return "copilot:rep_sessions:" + repID
}
