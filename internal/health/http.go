package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler answers /healthz. The process serving the request is
// alive by definition.
func (m *Manager) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ReadinessHandler answers /readyz with per-component results; 503 when
// any critical component is down.
func (m *Manager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := m.RunChecks(r.Context())
		ready := true
		for _, res := range results {
			if res.Critical && res.Status != StatusHealthy {
				ready = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ready":      ready,
			"components": results,
		})
	}
}
