package supervisor

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fieldpulse/copilot/internal/agents"
	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
	"github.com/fieldpulse/copilot/internal/tracing"
	"github.com/fieldpulse/copilot/internal/transcript"
)

// ResultStatus is the terminal state of one scheduled call.
type ResultStatus string

const (
	StatusOK               ResultStatus = "ok"
	StatusInsufficientData ResultStatus = "insufficient_data"
	StatusError            ResultStatus = "error"
	// StatusNotRun marks calls cancelled because their upstream producer
	// could not supply usable data. The slot stays in the response so the
	// omission is explicit.
	StatusNotRun ResultStatus = "not_run"
)

// AgentResult is one call's outcome. Payload is the agent's response
// exactly as returned; the aggregator never rewrites it. Why and
// Confidence echo the classifier's rationale for proposing the call.
type AgentResult struct {
	Agent      string          `json:"agent"`
	Status     ResultStatus    `json:"status"`
	Why        string          `json:"why,omitempty"`
	Confidence float64         `json:"confidence"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Detail     string          `json:"detail,omitempty"`
}

// resultFor seeds a result with the call's routing metadata.
func resultFor(call routing.CallRequest, status ResultStatus) AgentResult {
	return AgentResult{
		Agent:      call.Agent,
		Status:     status,
		Why:        call.Why,
		Confidence: call.Confidence,
	}
}

// Executor runs admitted calls in dependency-rank order. Calls are
// sequential: agents meter quota per invocation and the limiter spaces
// them out.
type Executor struct {
	registry *registry.Registry
	invoker  agents.Invoker
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewExecutor builds an executor. maxRate caps agent invocations per
// second across the request; zero disables the limiter.
func NewExecutor(reg *registry.Registry, invoker agents.Invoker, maxRate float64, logger *zap.Logger) *Executor {
	var limiter *rate.Limiter
	if maxRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxRate), 1)
	}
	return &Executor{registry: reg, invoker: invoker, limiter: limiter, logger: logger}
}

// Execute runs calls in rank order and returns one result per call in
// execution order. Every call's input is the verbatim original query;
// transcript consumers additionally receive the recovered transcript as a
// marker-block prefix.
func (e *Executor) Execute(ctx context.Context, calls []routing.CallRequest, ectx *ExecutionContext) []AgentResult {
	ordered := make([]routing.CallRequest, len(calls))
	copy(ordered, calls)
	sort.SliceStable(ordered, func(i, j int) bool {
		return e.rank(ordered[i].Agent) < e.rank(ordered[j].Agent)
	})

	results := make([]AgentResult, 0, len(ordered))
	var producerFailure *UpstreamInsufficiencyError

	for _, call := range ordered {
		spec, _ := e.registry.Lookup(call.Agent)

		if spec.RequiresTranscript && ectx.Transcript == nil {
			if producerFailure == nil {
				producerFailure = &UpstreamInsufficiencyError{
					Producer: "transcript resolution",
					Reason:   "no transcript available",
				}
			}
			metrics.AgentsSkipped.WithLabelValues(call.Agent).Inc()
			r := resultFor(call, StatusNotRun)
			r.Detail = "not run due to upstream insufficiency: " + producerFailure.Reason
			results = append(results, r)
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				r := resultFor(call, StatusError)
				r.Detail = err.Error()
				results = append(results, r)
				continue
			}
		}

		input := ectx.OriginalQuery
		if spec.RequiresTranscript {
			input = ectx.ContextBlock() + "\n\n" + ectx.OriginalQuery
		}

		callCtx, span := tracing.StartAgentSpan(ctx, call.Agent)
		payload, err := e.invoker.Invoke(callCtx, agents.Invocation{
			Agent:  call.Agent,
			Query:  input,
			Params: ectx.Params,
		})
		span.End()
		switch {
		case err != nil:
			e.logger.Warn("Agent invocation failed",
				zap.String("agent", call.Agent),
				zap.Error(err),
			)
			r := resultFor(call, StatusError)
			r.Detail = err.Error()
			results = append(results, r)
			if spec.ProducesTranscript {
				producerFailure = &UpstreamInsufficiencyError{Producer: call.Agent, Reason: err.Error()}
			}
		case insufficientData(payload):
			r := resultFor(call, StatusInsufficientData)
			r.Payload = payload
			results = append(results, r)
			if spec.ProducesTranscript {
				producerFailure = &UpstreamInsufficiencyError{Producer: call.Agent, Reason: "insufficient data"}
			}
		default:
			r := resultFor(call, StatusOK)
			r.Payload = payload
			results = append(results, r)
			if spec.ProducesTranscript && ectx.Transcript == nil {
				e.adoptProducedTranscript(ectx, payload)
			}
		}
	}

	return results
}

func (e *Executor) rank(agent string) int {
	spec, ok := e.registry.Lookup(agent)
	if !ok {
		return int(^uint(0) >> 1)
	}
	return spec.DependencyRank
}

// adoptProducedTranscript lifts transcript text out of a successful
// producer payload so consumers later in the same request receive it.
func (e *Executor) adoptProducedTranscript(ectx *ExecutionContext, payload json.RawMessage) {
	var body struct {
		Transcript string `json:"transcript"`
		HCPID      string `json:"hcp_id"`
		CallID     string `json:"call_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return
	}
	if ok, _ := transcript.Usable(body.Transcript); !ok {
		return
	}
	hcpID := body.HCPID
	if hcpID == "" {
		hcpID = ectx.Params["hcp_id"]
	}
	ectx.Transcript = &transcript.Transcript{
		Source: transcript.SourceLiveTranscription,
		HCPID:  hcpID,
		CallID: body.CallID,
		Text:   strings.TrimSpace(body.Transcript),
	}
}

// insufficientData recognizes the cross-agent marker for "I ran but the
// data was not there".
func insufficientData(payload json.RawMessage) bool {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return false
	}
	return body.Status == string(StatusInsufficientData)
}
