package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/circuitbreaker"
	"github.com/fieldpulse/copilot/internal/metrics"
)

// Invocation is one unit of work handed to a capability agent. Query is
// always the caller's full request text so every agent sees complete
// context; Params carries identifiers extracted or resolved upstream.
type Invocation struct {
	Agent  string            `json:"agent"`
	Query  string            `json:"query"`
	Params map[string]string `json:"params,omitempty"`
}

// Invoker executes one capability agent and returns its raw response
// payload unmodified.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (json.RawMessage, error)
}

// InvocationError wraps a failed agent call with enough context for the
// aggregate response.
type InvocationError struct {
	Agent string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// HTTPConfig configures the HTTP invoker.
type HTTPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPInvoker calls capability agents over the agent runtime's REST
// surface: POST {base}/v1/agents/{name}/invoke.
type HTTPInvoker struct {
	base     string
	http     *http.Client
	breakers map[string]*circuitbreaker.Breaker
	logger   *zap.Logger
}

// NewHTTPInvoker builds an invoker with a per-agent circuit breaker so one
// degraded agent cannot absorb the request budget of the others.
func NewHTTPInvoker(cfg HTTPConfig, agentNames []string, logger *zap.Logger) *HTTPInvoker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	breakers := make(map[string]*circuitbreaker.Breaker, len(agentNames))
	for _, name := range agentNames {
		breakers[name] = circuitbreaker.New("agent:"+name, circuitbreaker.DefaultConfig(), logger)
	}
	return &HTTPInvoker{
		base:     cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		breakers: breakers,
		logger:   logger,
	}
}

type invokeRequest struct {
	Query  string            `json:"query"`
	Params map[string]string `json:"params,omitempty"`
}

// Invoke posts the invocation to the runtime. The response body is
// returned exactly as the agent produced it.
func (h *HTTPInvoker) Invoke(ctx context.Context, inv Invocation) (json.RawMessage, error) {
	start := time.Now()
	out, err := h.invoke(ctx, inv)
	metrics.AgentInvocationDuration.WithLabelValues(inv.Agent).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.AgentInvocations.WithLabelValues(inv.Agent, "error").Inc()
		return nil, &InvocationError{Agent: inv.Agent, Err: err}
	}
	metrics.AgentInvocations.WithLabelValues(inv.Agent, "success").Inc()
	return out, nil
}

func (h *HTTPInvoker) invoke(ctx context.Context, inv Invocation) (json.RawMessage, error) {
	body, err := json.Marshal(invokeRequest{Query: inv.Query, Params: inv.Params})
	if err != nil {
		return nil, fmt.Errorf("marshal invocation: %w", err)
	}

	var out json.RawMessage
	call := func(ctx context.Context) error {
		url := fmt.Sprintf("%s/v1/agents/%s/invoke", h.base, inv.Agent)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.http.Do(req)
		if err != nil {
			return fmt.Errorf("agent runtime request: %w", err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return fmt.Errorf("read agent response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("agent runtime returned %d: %s", resp.StatusCode, truncate(payload, 256))
		}
		if !json.Valid(payload) {
			return fmt.Errorf("agent returned non-JSON payload")
		}
		out = json.RawMessage(payload)
		return nil
	}

	if br, ok := h.breakers[inv.Agent]; ok {
		err = br.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Agent invocation complete",
		zap.String("agent", inv.Agent),
		zap.Int("response_bytes", len(out)),
	)
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
