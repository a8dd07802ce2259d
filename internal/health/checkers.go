package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies the session store connection.
type RedisChecker struct {
	client   *redis.Client
	critical bool
}

// NewRedisChecker builds a checker over the session store's client.
func NewRedisChecker(client *redis.Client, critical bool) *RedisChecker {
	return &RedisChecker{client: client, critical: critical}
}

func (c *RedisChecker) Name() string     { return "redis" }
func (c *RedisChecker) IsCritical() bool { return c.critical }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// PostgresChecker verifies the analytical store connection.
type PostgresChecker struct {
	db       *sqlx.DB
	critical bool
}

// NewPostgresChecker builds a checker over the analytical store's pool.
func NewPostgresChecker(db *sqlx.DB, critical bool) *PostgresChecker {
	return &PostgresChecker{db: db, critical: critical}
}

func (c *PostgresChecker) Name() string     { return "analytical_store" }
func (c *PostgresChecker) IsCritical() bool { return c.critical }

func (c *PostgresChecker) Check(ctx context.Context) CheckResult {
	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// AgentRuntimeChecker probes the capability agent runtime's own health
// endpoint.
type AgentRuntimeChecker struct {
	baseURL  string
	client   *http.Client
	critical bool
}

// NewAgentRuntimeChecker builds a checker against the runtime base URL.
func NewAgentRuntimeChecker(baseURL string, critical bool) *AgentRuntimeChecker {
	return &AgentRuntimeChecker{
		baseURL:  baseURL,
		client:   &http.Client{},
		critical: critical,
	}
}

func (c *AgentRuntimeChecker) Name() string     { return "agent_runtime" }
func (c *AgentRuntimeChecker) IsCritical() bool { return c.critical }

func (c *AgentRuntimeChecker) Check(ctx context.Context) CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Error: err.Error()}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  fmt.Sprintf("runtime health endpoint returned %d", resp.StatusCode),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
