package supervisor

import (
	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
)

// DecisionKind is the gate's verdict on one proposed call.
type DecisionKind int

const (
	// Admit: preconditions satisfied, the call may execute.
	Admit DecisionKind = iota
	// Defer: a transcript is required but absent; a fallback plan names
	// how to recover it before the call can execute.
	Defer
	// Reject: the call must not execute. Either the agent name is outside
	// the registry or a required identifier is missing and will not be
	// guessed.
	Reject
)

// Reject reasons recorded in metrics and result entries.
const (
	ReasonUnknownAgent      = "unknown_agent"
	ReasonMissingParameters = "missing_parameters"
)

// FallbackPlan names the recovery a deferred call is waiting on. The
// strategy order itself is fixed inside the transcript resolver.
type FallbackPlan struct {
	HCPID string
}

// GateDecision is the outcome of admitting one call.
type GateDecision struct {
	Kind    DecisionKind
	Reason  string
	Missing []string
	Plan    *FallbackPlan
}

// Gate validates proposed calls against the closed-world registry and the
// request's available data. It holds no mutable state, so decisions are
// idempotent for an unchanged ExecutionContext.
type Gate struct {
	registry *registry.Registry
}

// NewGate builds a gate over the capability registry.
func NewGate(reg *registry.Registry) *Gate {
	return &Gate{registry: reg}
}

// AdmitCall decides whether call may execute given the request state.
func (g *Gate) AdmitCall(call routing.CallRequest, ectx *ExecutionContext) GateDecision {
	spec, ok := g.registry.Lookup(call.Agent)
	if !ok {
		metrics.CallsRejected.WithLabelValues(ReasonUnknownAgent).Inc()
		return GateDecision{Kind: Reject, Reason: ReasonUnknownAgent}
	}

	var missing []string
	for _, field := range spec.RequiredInputs {
		if ectx.HasParam(field) {
			continue
		}
		// A name mention ("Dr. Lee") identifies the subject for the
		// independent data agents. Transcript lookups are keyed by the
		// canonical id, so producers and consumers stay strict.
		if field == "hcp_id" && !spec.RequiresTranscript && !spec.ProducesTranscript && ectx.HasParam("hcp_name") {
			continue
		}
		missing = append(missing, field)
	}
	if len(missing) > 0 {
		metrics.CallsRejected.WithLabelValues(ReasonMissingParameters).Inc()
		return GateDecision{Kind: Reject, Reason: ReasonMissingParameters, Missing: missing}
	}

	if spec.RequiresTranscript && ectx.Transcript == nil {
		// hcp_id presence is guaranteed above for the transcript
		// consumers in the default catalog, but a custom catalog may
		// omit it from required inputs.
		hcpID, ok := ectx.Params["hcp_id"]
		if !ok || hcpID == "" {
			metrics.CallsRejected.WithLabelValues(ReasonMissingParameters).Inc()
			return GateDecision{Kind: Reject, Reason: ReasonMissingParameters, Missing: []string{"hcp_id"}}
		}
		return GateDecision{Kind: Defer, Plan: &FallbackPlan{HCPID: hcpID}}
	}

	return GateDecision{Kind: Admit}
}
