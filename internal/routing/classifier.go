// Package routing turns a free-form user query into a validated
// RoutingDecision by delegating the semantic judgment to an external
// reasoning call. Everything here is deterministic plumbing around that
// call: prompt assembly, strict JSON parsing, and shape validation.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/circuitbreaker"
	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/reasoning"
	"github.com/fieldpulse/copilot/internal/registry"
)

// Classifier produces RoutingDecisions. It never filters agent names; the
// dependency gate enforces the closed world so that unknown names surface
// as recorded rejections instead of silent drops.
type Classifier struct {
	client  reasoning.Client
	breaker *circuitbreaker.Breaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewClassifier builds a classifier around the given reasoning client.
// timeout bounds each classification call.
func NewClassifier(client reasoning.Client, breaker *circuitbreaker.Breaker, timeout time.Duration, logger *zap.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{client: client, breaker: breaker, timeout: timeout, logger: logger}
}

// Classify routes userQuery against the capability catalog. A
// *ClassificationError is returned when the reasoning call fails or its
// output violates the JSON contract.
func (c *Classifier) Classify(ctx context.Context, reg *registry.Registry, userQuery string) (*RoutingDecision, error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, &ClassificationError{Reason: "empty user query"}
	}

	prompt := BuildPrompt(reg, userQuery)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var raw string
	call := func(ctx context.Context) error {
		var err error
		raw, err = c.client.Complete(ctx, prompt)
		return err
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	metrics.ClassificationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassificationErrors.Inc()
		return nil, &ClassificationError{Reason: "reasoning call failed", Err: err}
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		metrics.ClassificationErrors.Inc()
		c.logger.Warn("Reasoning call returned invalid routing JSON",
			zap.String("provider", c.client.Name()),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("Routing decision",
		zap.Float64("confidence", decision.Confidence),
		zap.Int("calls", len(decision.Calls)),
	)
	return decision, nil
}

// ParseDecision parses and validates the reasoning output. Markdown code
// fences are stripped; anything else malformed is a hard error.
func ParseDecision(raw string) (*RoutingDecision, error) {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, &ClassificationError{Reason: "empty response"}
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()

	var decision RoutingDecision
	if err := dec.Decode(&decision); err != nil {
		return nil, &ClassificationError{Reason: "invalid JSON", Raw: raw, Err: err}
	}
	// Trailing content after the JSON object violates the contract.
	if dec.More() {
		return nil, &ClassificationError{Reason: "trailing content after JSON object", Raw: raw}
	}

	if decision.Confidence < 0 || decision.Confidence > 1 {
		return nil, &ClassificationError{Reason: fmt.Sprintf("overall confidence %v out of range", decision.Confidence), Raw: raw}
	}
	for i, call := range decision.Calls {
		if strings.TrimSpace(call.Agent) == "" {
			return nil, &ClassificationError{Reason: fmt.Sprintf("call %d has empty agent name", i), Raw: raw}
		}
		if call.Confidence < 0 || call.Confidence > 1 {
			return nil, &ClassificationError{Reason: fmt.Sprintf("call %d confidence %v out of range", i, call.Confidence), Raw: raw}
		}
	}
	if len(decision.Calls) == 0 && strings.TrimSpace(decision.Reasoning) == "" {
		return nil, &ClassificationError{Reason: "zero calls without reasoning", Raw: raw}
	}

	return &decision, nil
}
