package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
	"github.com/fieldpulse/copilot/internal/transcript"
)

func TestGateDecisions(t *testing.T) {
	gate := NewGate(registry.Default())

	tests := []struct {
		name string
		call routing.CallRequest
		ectx *ExecutionContext
		want DecisionKind
	}{
		{
			name: "admit independent agent with identifier",
			call: routing.CallRequest{Agent: registry.AgentProfile},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_id": "HCP1"}},
			want: Admit,
		},
		{
			name: "reject unknown agent",
			call: routing.CallRequest{Agent: "WeatherAgent"},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_id": "HCP1"}},
			want: Reject,
		},
		{
			name: "reject missing identifier",
			call: routing.CallRequest{Agent: registry.AgentProfile},
			ectx: &ExecutionContext{Params: map[string]string{}},
			want: Reject,
		},
		{
			name: "defer transcript consumer without transcript",
			call: routing.CallRequest{Agent: registry.AgentSentiment},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_id": "HCP1"}},
			want: Defer,
		},
		{
			name: "admit transcript consumer once transcript held",
			call: routing.CallRequest{Agent: registry.AgentSentiment},
			ectx: &ExecutionContext{
				Params:     map[string]string{"hcp_id": "HCP1"},
				Transcript: &transcript.Transcript{Source: transcript.SourcePrimaryStore, Text: "t"},
			},
			want: Admit,
		},
		{
			name: "admit agent with no required inputs",
			call: routing.CallRequest{Agent: registry.AgentTerritory},
			ectx: &ExecutionContext{Params: map[string]string{}},
			want: Admit,
		},
		{
			name: "admit independent agent identified by name only",
			call: routing.CallRequest{Agent: registry.AgentProfile},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_name": "Lee"}},
			want: Admit,
		},
		{
			name: "reject transcript consumer identified by name only",
			call: routing.CallRequest{Agent: registry.AgentSentiment},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_name": "Lee"}},
			want: Reject,
		},
		{
			name: "reject transcript producer identified by name only",
			call: routing.CallRequest{Agent: registry.AgentTranscription},
			ectx: &ExecutionContext{Params: map[string]string{"hcp_name": "Lee"}},
			want: Reject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.AdmitCall(tt.call, tt.ectx)
			assert.Equal(t, tt.want, d.Kind)
		})
	}
}

func TestGateMissingFieldsListed(t *testing.T) {
	gate := NewGate(registry.Default())
	d := gate.AdmitCall(
		routing.CallRequest{Agent: registry.AgentPrescribing},
		&ExecutionContext{Params: map[string]string{}},
	)
	require.Equal(t, Reject, d.Kind)
	assert.Equal(t, ReasonMissingParameters, d.Reason)
	assert.Equal(t, []string{"hcp_id"}, d.Missing)
}

func TestGateDeferCarriesFallbackPlan(t *testing.T) {
	gate := NewGate(registry.Default())
	ectx := &ExecutionContext{Params: map[string]string{"hcp_id": "HCP42"}}
	d := gate.AdmitCall(routing.CallRequest{Agent: registry.AgentStructure}, ectx)
	require.Equal(t, Defer, d.Kind)
	require.NotNil(t, d.Plan)
	assert.Equal(t, "HCP42", d.Plan.HCPID)
}

func TestGateIdempotent(t *testing.T) {
	gate := NewGate(registry.Default())
	ectx := &ExecutionContext{Params: map[string]string{"hcp_id": "HCP42"}}
	call := routing.CallRequest{Agent: registry.AgentSentiment}

	first := gate.AdmitCall(call, ectx)
	second := gate.AdmitCall(call, ectx)
	assert.Equal(t, first, second)
}
