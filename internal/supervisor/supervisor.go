// Package supervisor is the routing core: it classifies a free-form sales
// rep query into capability agent calls, enforces data-availability
// preconditions between them, recovers missing transcripts through a
// fixed fallback chain, and aggregates agent outputs into one response.
package supervisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/agents"
	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
	"github.com/fieldpulse/copilot/internal/tracing"
	"github.com/fieldpulse/copilot/internal/transcript"
)

// classifier is the intent-classification seam; satisfied by
// *routing.Classifier.
type classifier interface {
	Classify(ctx context.Context, reg *registry.Registry, userQuery string) (*routing.RoutingDecision, error)
}

// transcriptResolver is the fallback-chain seam; satisfied by
// *transcript.Resolver.
type transcriptResolver interface {
	ResolveTranscript(ctx context.Context, hcpID string) (*transcript.Transcript, error)
}

// Supervisor wires the classifier, gate, resolver and executor into the
// single route entry point.
type Supervisor struct {
	registry   *registry.Registry
	classifier classifier
	gate       *Gate
	resolver   transcriptResolver
	executor   *Executor
	logger     *zap.Logger
}

// New builds a supervisor over explicitly injected collaborators.
func New(reg *registry.Registry, cls classifier, resolver transcriptResolver, executor *Executor, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		registry:   reg,
		classifier: cls,
		gate:       NewGate(reg),
		resolver:   resolver,
		executor:   executor,
		logger:     logger,
	}
}

// RouteRequest is one inbound routing request. Transcript optionally
// carries call transcript text the caller already has, which short-cuts
// the fallback chain for transcript-consuming agents.
type RouteRequest struct {
	Query      string `json:"query"`
	Transcript string `json:"transcript,omitempty"`
}

// Route processes one request end to end. It always returns a well-formed
// response; failures surface as typed status/error fields, never as an
// error crossing this boundary.
func (s *Supervisor) Route(ctx context.Context, req RouteRequest) FinalResponse {
	start := time.Now()
	metrics.RequestsRouted.Inc()
	defer func() {
		metrics.RoutingDuration.Observe(time.Since(start).Seconds())
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return ClassificationFailureResponse("empty query")
	}

	ctx, span := tracing.StartRouteSpan(ctx, query)
	defer span.End()

	clsCtx, clsSpan := tracing.StartSpan(ctx, "routing.classify")
	decision, err := s.classifier.Classify(clsCtx, s.registry, query)
	clsSpan.End()
	if err != nil {
		var clsErr *routing.ClassificationError
		if errors.As(err, &clsErr) {
			s.logger.Warn("Classification failed",
				zap.String("reason", clsErr.Reason),
				zap.Error(err),
			)
			return ClassificationFailureResponse(clsErr.Reason)
		}
		s.logger.Error("Classification call failed", zap.Error(err))
		return ClassificationFailureResponse(err.Error())
	}

	if len(decision.Calls) == 0 {
		s.logger.Info("No capability matched the request",
			zap.String("reasoning", decision.Reasoning),
		)
		return UnsupportedResponse()
	}

	ectx := &ExecutionContext{
		OriginalQuery: query,
		Params:        agents.ExtractParams(query),
	}
	if ok, _ := transcript.Usable(req.Transcript); ok {
		ectx.Transcript = &transcript.Transcript{
			Source: transcript.SourceSupplied,
			HCPID:  ectx.Params["hcp_id"],
			Text:   strings.TrimSpace(req.Transcript),
		}
	}

	scheduled, rejected, plan, missing := s.admitDecision(decision, ectx)
	if len(missing) > 0 {
		return MissingParametersResponse(missing)
	}

	if plan != nil && ectx.Transcript == nil {
		resCtx, resSpan := tracing.StartSpan(ctx, "transcript.resolve")
		tr, err := s.resolver.ResolveTranscript(resCtx, plan.HCPID)
		resSpan.End()
		if err != nil {
			// Transcript consumers will be marked not_run by the
			// executor; independent calls still proceed.
			s.logger.Warn("Transcript fallback chain exhausted",
				zap.String("hcp_id", plan.HCPID),
				zap.Error(err),
			)
		} else {
			ectx.Transcript = tr
		}
	}

	results := s.executor.Execute(ctx, scheduled, ectx)
	results = append(results, rejected...)

	return Aggregate(results, decision.Reasoning, decision.Confidence, ectx.Transcript)
}

// admitDecision gates every proposed call. It returns the calls to
// schedule (admitted plus deferred; the executor cancels deferred
// consumers if recovery fails), error entries for unknown-agent
// rejections, the fallback plan when transcript recovery is needed, and
// the union of missing parameters when any call was rejected for them.
func (s *Supervisor) admitDecision(decision *routing.RoutingDecision, ectx *ExecutionContext) (scheduled []routing.CallRequest, rejected []AgentResult, plan *FallbackPlan, missing []string) {
	producerScheduled := false
	for _, call := range decision.Calls {
		if spec, ok := s.registry.Lookup(call.Agent); ok && spec.ProducesTranscript {
			producerScheduled = true
		}
	}

	seen := make(map[string]struct{})
	for _, call := range decision.Calls {
		d := s.gate.AdmitCall(call, ectx)
		switch d.Kind {
		case Admit:
			scheduled = append(scheduled, call)
		case Defer:
			scheduled = append(scheduled, call)
			// A scheduled producer supplies the transcript in-request;
			// otherwise the resolver chain runs before execution.
			if !producerScheduled && plan == nil {
				plan = d.Plan
			}
		case Reject:
			if d.Reason == ReasonMissingParameters {
				for _, field := range d.Missing {
					if _, ok := seen[field]; !ok {
						seen[field] = struct{}{}
						missing = append(missing, field)
					}
				}
				continue
			}
			s.logger.Warn("Rejected call to unknown agent",
				zap.String("agent", call.Agent),
			)
			rejected = append(rejected, AgentResult{
				Agent:      call.Agent,
				Status:     StatusError,
				Why:        call.Why,
				Confidence: call.Confidence,
				Detail:     "unknown agent: not in capability registry",
			})
		}
	}
	return scheduled, rejected, plan, missing
}
