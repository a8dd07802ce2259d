package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPInvokerPassesPayloadThrough(t *testing.T) {
	var gotPath string
	var gotBody invokeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"summary":"coverage improved","score":0.92}`))
	}))
	defer server.Close()

	inv := NewHTTPInvoker(HTTPConfig{BaseURL: server.URL}, []string{"profile_agent"}, zap.NewNop())
	out, err := inv.Invoke(context.Background(), Invocation{
		Agent:  "profile_agent",
		Query:  "Tell me about HCP12",
		Params: map[string]string{"hcp_id": "HCP12"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/agents/profile_agent/invoke", gotPath)
	assert.Equal(t, "Tell me about HCP12", gotBody.Query)
	assert.Equal(t, "HCP12", gotBody.Params["hcp_id"])
	// The response body comes back byte for byte.
	assert.Equal(t, `{"summary":"coverage improved","score":0.92}`, string(out))
}

func TestHTTPInvokerNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	inv := NewHTTPInvoker(HTTPConfig{BaseURL: server.URL}, []string{"profile_agent"}, zap.NewNop())
	_, err := inv.Invoke(context.Background(), Invocation{Agent: "profile_agent", Query: "q"})

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "profile_agent", invErr.Agent)
	assert.Contains(t, invErr.Error(), "500")
}

func TestHTTPInvokerRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	inv := NewHTTPInvoker(HTTPConfig{BaseURL: server.URL}, nil, zap.NewNop())
	_, err := inv.Invoke(context.Background(), Invocation{Agent: "content_agent", Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-JSON")
}

func TestHTTPInvokerRecordsDurationInMilliseconds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(25 * time.Millisecond)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	inv := NewHTTPInvoker(HTTPConfig{BaseURL: server.URL}, []string{"latency_agent"}, zap.NewNop())
	_, err := inv.Invoke(context.Background(), Invocation{Agent: "latency_agent", Query: "q"})
	require.NoError(t, err)

	sum := histogramSum(t, "copilot_agent_invocation_duration_ms", "agent", "latency_agent")
	assert.GreaterOrEqual(t, sum, 25.0, "the _ms histogram must be fed milliseconds")
}

func histogramSum(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetHistogram().GetSampleSum()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not recorded", name, label, value)
	return 0
}

func TestHTTPInvokerBreakerOpensOnRepeatedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	inv := NewHTTPInvoker(HTTPConfig{BaseURL: server.URL}, []string{"action_agent"}, zap.NewNop())
	for i := 0; i < 10; i++ {
		_, err := inv.Invoke(context.Background(), Invocation{Agent: "action_agent", Query: "q"})
		require.Error(t, err)
	}
	// After enough consecutive failures the breaker short-circuits
	// without reaching the runtime.
	_, err := inv.Invoke(context.Background(), Invocation{Agent: "action_agent", Query: "q"})
	require.Error(t, err)
}
