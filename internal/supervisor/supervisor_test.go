package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/agents"
	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
	"github.com/fieldpulse/copilot/internal/transcript"
)

const recoveredText = "Rep: We covered the new indication data and the updated copay program.\nHCP: The copay details would help my patients."

type fakeClassifier struct {
	decision *routing.RoutingDecision
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, reg *registry.Registry, userQuery string) (*routing.RoutingDecision, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type fakeResolver struct {
	transcript *transcript.Transcript
	err        error
	calls      int
}

func (f *fakeResolver) ResolveTranscript(ctx context.Context, hcpID string) (*transcript.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeInvoker struct {
	invocations []agents.Invocation
	payloads    map[string]json.RawMessage
	errs        map[string]error
}

func (f *fakeInvoker) Invoke(ctx context.Context, inv agents.Invocation) (json.RawMessage, error) {
	f.invocations = append(f.invocations, inv)
	if err, ok := f.errs[inv.Agent]; ok {
		return nil, err
	}
	if p, ok := f.payloads[inv.Agent]; ok {
		return p, nil
	}
	return json.RawMessage(`{"answer":"ok"}`), nil
}

func (f *fakeInvoker) agentsCalled() []string {
	names := make([]string, len(f.invocations))
	for i, inv := range f.invocations {
		names[i] = inv.Agent
	}
	return names
}

func newTestSupervisor(t *testing.T, cls classifier, res transcriptResolver, inv agents.Invoker) *Supervisor {
	t.Helper()
	reg := registry.Default()
	executor := NewExecutor(reg, inv, 0, zap.NewNop())
	return New(reg, cls, res, executor, zap.NewNop())
}

func decisionFor(calls ...routing.CallRequest) *routing.RoutingDecision {
	return &routing.RoutingDecision{
		Reasoning:  "test routing",
		Confidence: 0.9,
		Calls:      calls,
	}
}

func TestRouteSingleProfileCallGetsFullQuery(t *testing.T) {
	query := "What is the specialty of HCP4821 and where do they practice?"
	invoker := &fakeInvoker{payloads: map[string]json.RawMessage{
		registry.AgentProfile: json.RawMessage(`{"specialty":"cardiology"}`),
	}}
	resolver := &fakeResolver{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			// The classifier proposes a paraphrased fragment; the
			// executor must replace it with the verbatim query.
			routing.CallRequest{Agent: registry.AgentProfile, Input: "specialty?", Confidence: 0.95},
		)},
		resolver, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: query})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, registry.AgentProfile, resp.Results[0].Agent)
	assert.Equal(t, StatusOK, resp.Results[0].Status)
	assert.Equal(t, `{"specialty":"cardiology"}`, string(resp.Results[0].Payload))

	require.Len(t, invoker.invocations, 1)
	assert.Equal(t, query, invoker.invocations[0].Query)
	assert.Equal(t, "HCP4821", invoker.invocations[0].Params["hcp_id"])
	assert.Zero(t, resolver.calls, "no transcript needed, fallback must not run")
}

func TestRouteProfileByDoctorName(t *testing.T) {
	query := "What is Dr. Lee's specialty?"
	invoker := &fakeInvoker{payloads: map[string]json.RawMessage{
		registry.AgentProfile: json.RawMessage(`{"specialty":"oncology"}`),
	}}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentProfile, Why: "user asks about specialty", Confidence: 0.95},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: query})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, registry.AgentProfile, resp.Results[0].Agent)
	assert.Equal(t, StatusOK, resp.Results[0].Status)
	assert.Empty(t, resp.Status, "a name mention identifies the subject, no missing_parameters")

	require.Len(t, invoker.invocations, 1)
	assert.Equal(t, query, invoker.invocations[0].Query)
	assert.Equal(t, "Lee", invoker.invocations[0].Params["hcp_name"])
}

func TestRouteCarriesCallRationaleIntoResults(t *testing.T) {
	invoker := &fakeInvoker{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentProfile, Why: "user asks about specialty", Confidence: 0.95},
			routing.CallRequest{Agent: "WeatherAgent", Why: "weather question", Confidence: 0.4},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Specialty of HCP12, and the weather"})

	require.Len(t, resp.Results, 2)
	byAgent := make(map[string]AgentResult)
	for _, r := range resp.Results {
		byAgent[r.Agent] = r
	}
	assert.Equal(t, "user asks about specialty", byAgent[registry.AgentProfile].Why)
	assert.Equal(t, 0.95, byAgent[registry.AgentProfile].Confidence)
	assert.Equal(t, "weather question", byAgent["WeatherAgent"].Why)
	assert.Equal(t, 0.4, byAgent["WeatherAgent"].Confidence)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"why":"user asks about specialty"`)
}

func TestRouteSentimentRecoversTranscriptViaFallback(t *testing.T) {
	invoker := &fakeInvoker{}
	resolver := &fakeResolver{transcript: &transcript.Transcript{
		Source: transcript.SourceLiveTranscription,
		HCPID:  "HCP100",
		Text:   recoveredText,
	}}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentSentiment, Input: "sentiment", Confidence: 0.8},
		)},
		resolver, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Give me sentiment for hcp H100"})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, StatusOK, resp.Results[0].Status)
	assert.Equal(t, "live_transcription", resp.TranscriptSource)
	assert.Equal(t, 1, resolver.calls)

	require.Len(t, invoker.invocations, 1)
	input := invoker.invocations[0].Query
	assert.Contains(t, input, "===CALL TRANSCRIPT===")
	assert.Contains(t, input, recoveredText)
	assert.True(t, strings.HasSuffix(input, "Give me sentiment for hcp H100"),
		"original query must follow the context block verbatim")
}

func TestRouteTranscriptInsufficiencyMarksConsumerNotRun(t *testing.T) {
	invoker := &fakeInvoker{}
	resolver := &fakeResolver{err: &transcript.InsufficiencyError{HCPID: "HCP999", Reason: "no record, no media"}}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentSentiment, Confidence: 0.8},
			routing.CallRequest{Agent: registry.AgentProfile, Confidence: 0.7},
		)},
		resolver, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Give me sentiment and profile for hcp H999"})

	require.Len(t, resp.Results, 2)
	byAgent := make(map[string]AgentResult)
	for _, r := range resp.Results {
		byAgent[r.Agent] = r
	}
	assert.Equal(t, StatusNotRun, byAgent[registry.AgentSentiment].Status)
	assert.Contains(t, byAgent[registry.AgentSentiment].Detail, "upstream insufficiency")
	assert.Empty(t, byAgent[registry.AgentSentiment].Payload, "no fabricated payload")
	// Independent calls still execute.
	assert.Equal(t, StatusOK, byAgent[registry.AgentProfile].Status)
	assert.Equal(t, []string{registry.AgentProfile}, invoker.agentsCalled())
}

func TestRouteMissingParametersShortCircuits(t *testing.T) {
	invoker := &fakeInvoker{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentProfile, Confidence: 0.9},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Tell me about this doctor"})

	assert.Equal(t, "missing_parameters", resp.Status)
	assert.Equal(t, []string{"hcp_id"}, resp.Required)
	assert.Empty(t, resp.Results)
	assert.Empty(t, invoker.invocations, "zero agents execute on missing parameters")
}

func TestRouteUnknownAgentRejectedOthersStillRun(t *testing.T) {
	invoker := &fakeInvoker{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: "WeatherAgent", Confidence: 0.9},
			routing.CallRequest{Agent: registry.AgentTerritory, Confidence: 0.8},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "How is my territory doing, and the weather?"})

	require.Len(t, resp.Results, 2)
	byAgent := make(map[string]AgentResult)
	for _, r := range resp.Results {
		byAgent[r.Agent] = r
	}
	assert.Equal(t, StatusError, byAgent["WeatherAgent"].Status)
	assert.Contains(t, byAgent["WeatherAgent"].Detail, "unknown agent")
	assert.Equal(t, StatusOK, byAgent[registry.AgentTerritory].Status)
	assert.Equal(t, []string{registry.AgentTerritory}, invoker.agentsCalled())
}

func TestRouteZeroCallsIsUnsupported(t *testing.T) {
	s := newTestSupervisor(t,
		&fakeClassifier{decision: &routing.RoutingDecision{
			Reasoning: "request is about personal travel, outside all capabilities",
		}},
		&fakeResolver{}, &fakeInvoker{})

	resp := s.Route(context.Background(), RouteRequest{Query: "Book me a flight to Lisbon"})
	assert.Equal(t, "Unsupported request. Please rephrase.", resp.Error)
	assert.Empty(t, resp.Results)
}

func TestRouteClassificationErrorShortCircuits(t *testing.T) {
	invoker := &fakeInvoker{}
	s := newTestSupervisor(t,
		&fakeClassifier{err: &routing.ClassificationError{Reason: "model returned non-JSON output"}},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Give me sentiment for HCP1"})
	assert.Equal(t, "classification_error", resp.Status)
	assert.Contains(t, resp.Error, "non-JSON")
	assert.Empty(t, invoker.invocations)
}

func TestRouteEmptyQuery(t *testing.T) {
	s := newTestSupervisor(t, &fakeClassifier{}, &fakeResolver{}, &fakeInvoker{})
	resp := s.Route(context.Background(), RouteRequest{Query: "   "})
	assert.Equal(t, "classification_error", resp.Status)
}

func TestRouteProducerRunsBeforeConsumer(t *testing.T) {
	transcriptPayload, _ := json.Marshal(map[string]string{
		"transcript": recoveredText,
		"hcp_id":     "HCP55",
	})
	invoker := &fakeInvoker{payloads: map[string]json.RawMessage{
		registry.AgentTranscription: transcriptPayload,
	}}
	resolver := &fakeResolver{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			// Consumer proposed first; rank ordering must flip them.
			routing.CallRequest{Agent: registry.AgentSentiment, Confidence: 0.8},
			routing.CallRequest{Agent: registry.AgentTranscription, Confidence: 0.9},
		)},
		resolver, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Transcribe and analyze sentiment for HCP55"})

	require.Equal(t, []string{registry.AgentTranscription, registry.AgentSentiment}, invoker.agentsCalled())
	require.Len(t, resp.Results, 2)
	assert.Equal(t, registry.AgentTranscription, resp.Results[0].Agent)
	assert.Equal(t, registry.AgentSentiment, resp.Results[1].Agent)
	assert.Equal(t, StatusOK, resp.Results[1].Status)
	// The producer supplied the transcript in-request; the fallback chain
	// must not run.
	assert.Zero(t, resolver.calls)
	assert.Contains(t, invoker.invocations[1].Query, "===CALL TRANSCRIPT===")
}

func TestRouteProducerFailureCancelsConsumer(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{
		registry.AgentTranscription: fmt.Errorf("media object not found"),
	}}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentTranscription, Confidence: 0.9},
			routing.CallRequest{Agent: registry.AgentSentiment, Confidence: 0.8},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Transcribe and analyze sentiment for HCP55"})

	require.Len(t, resp.Results, 2)
	assert.Equal(t, StatusError, resp.Results[0].Status)
	assert.Equal(t, StatusNotRun, resp.Results[1].Status)
	assert.Equal(t, []string{registry.AgentTranscription}, invoker.agentsCalled())
}

func TestRouteSuppliedTranscriptSkipsFallback(t *testing.T) {
	invoker := &fakeInvoker{}
	resolver := &fakeResolver{}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentStructure, Confidence: 0.9},
		)},
		resolver, invoker)

	resp := s.Route(context.Background(), RouteRequest{
		Query:      "Structure my call notes for HCP7",
		Transcript: recoveredText,
	})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, StatusOK, resp.Results[0].Status)
	assert.Zero(t, resolver.calls)
	assert.Contains(t, invoker.invocations[0].Query, recoveredText)
}

func TestAggregateIsIdempotentAndByteIdentical(t *testing.T) {
	payload := json.RawMessage(`{"nested":{"keys":[1,2,3]},"text":"  spacing preserved  "}`)
	results := []AgentResult{
		{Agent: registry.AgentProfile, Status: StatusOK, Payload: payload},
		{Agent: registry.AgentSentiment, Status: StatusNotRun, Detail: "not run due to upstream insufficiency"},
	}

	first := Aggregate(results, "r", 0.5, nil)
	second := Aggregate(results, "r", 0.5, nil)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, string(payload), string(first.Results[0].Payload))
}

func TestAggregateKeepsZeroConfidence(t *testing.T) {
	resp := Aggregate([]AgentResult{{Agent: registry.AgentProfile, Status: StatusOK}}, "low certainty", 0, nil)
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	raw, ok := fields["confidence"]
	require.True(t, ok, "zero confidence must still serialize")
	assert.Equal(t, "0", string(raw))
}

func TestRouteAgentInsufficientDataMarker(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]json.RawMessage{
		registry.AgentPrescribing: json.RawMessage(`{"status":"insufficient_data","detail":"no claims in window"}`),
	}}
	s := newTestSupervisor(t,
		&fakeClassifier{decision: decisionFor(
			routing.CallRequest{Agent: registry.AgentPrescribing, Confidence: 0.9},
		)},
		&fakeResolver{}, invoker)

	resp := s.Route(context.Background(), RouteRequest{Query: "Prescribing trend for HCP31"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, StatusInsufficientData, resp.Results[0].Status)
	assert.Equal(t, `{"status":"insufficient_data","detail":"no claims in window"}`, string(resp.Results[0].Payload))
}
