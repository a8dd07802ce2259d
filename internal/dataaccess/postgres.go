package dataaccess

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresConfig holds connection settings for the local analytical mode.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	IdleConnections int           `mapstructure:"idle_connections"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
}

// PostgresAnalytical implements AnalyticalClient on a Postgres database.
// It preserves the asynchronous submit/poll/fetch contract so the rest of
// the system is indifferent to whether the backing store is a warehouse
// data API or a local database: Submit executes eagerly and parks the
// outcome under a statement ID until fetched.
type PostgresAnalytical struct {
	db     *sqlx.DB
	logger *zap.Logger

	mu         sync.Mutex
	statements map[string]*statementOutcome
}

type statementOutcome struct {
	rows []Row
	err  error
}

// NewPostgresAnalytical opens the connection pool and verifies it.
func NewPostgresAnalytical(cfg PostgresConfig, logger *zap.Logger) (*PostgresAnalytical, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to analytical store: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.IdleConnections > 0 {
		db.SetMaxIdleConns(cfg.IdleConnections)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	logger.Info("Connected to analytical store",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)
	return &PostgresAnalytical{
		db:         db,
		logger:     logger,
		statements: make(map[string]*statementOutcome),
	}, nil
}

// NewPostgresAnalyticalFromDB wraps an existing connection. Used by tests.
func NewPostgresAnalyticalFromDB(db *sqlx.DB, logger *zap.Logger) *PostgresAnalytical {
	return &PostgresAnalytical{
		db:         db,
		logger:     logger,
		statements: make(map[string]*statementOutcome),
	}
}

// Submit executes sql and returns a statement ID for later polling.
func (p *PostgresAnalytical) Submit(ctx context.Context, sql string) (string, error) {
	statementID := uuid.New().String()

	outcome := &statementOutcome{}
	rows, err := p.db.QueryxContext(ctx, sql)
	if err != nil {
		outcome.err = err
	} else {
		defer rows.Close()
		for rows.Next() {
			row := make(map[string]any)
			if err := rows.MapScan(row); err != nil {
				outcome.err = err
				break
			}
			outcome.rows = append(outcome.rows, Row(row))
		}
		if outcome.err == nil {
			outcome.err = rows.Err()
		}
	}

	p.mu.Lock()
	p.statements[statementID] = outcome
	p.mu.Unlock()
	return statementID, nil
}

// Poll reports the terminal status of a submitted statement.
func (p *PostgresAnalytical) Poll(ctx context.Context, statementID string) (QueryStatus, error) {
	p.mu.Lock()
	outcome, ok := p.statements[statementID]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown statement %s", statementID)
	}
	if outcome.err != nil {
		return QueryFailed, nil
	}
	return QueryFinished, nil
}

// Fetch returns the rows of a finished statement and releases it.
func (p *PostgresAnalytical) Fetch(ctx context.Context, statementID string) ([]Row, error) {
	p.mu.Lock()
	outcome, ok := p.statements[statementID]
	delete(p.statements, statementID)
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown statement %s", statementID)
	}
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.rows, nil
}

// Close releases the connection pool.
func (p *PostgresAnalytical) Close() error { return p.db.Close() }

// DB exposes the underlying pool for health checks.
func (p *PostgresAnalytical) DB() *sqlx.DB { return p.db }
