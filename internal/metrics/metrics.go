package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Routing metrics
	RequestsRouted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copilot_requests_routed_total",
			Help: "Total number of user queries routed",
		},
	)

	RoutingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copilot_routing_duration_seconds",
			Help:    "End-to-end routing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
	)

	ClassificationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copilot_classification_errors_total",
			Help: "Total number of failed intent classifications",
		},
	)

	ClassificationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copilot_classification_latency_seconds",
			Help:    "Intent classification latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CallsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_calls_rejected_total",
			Help: "Total number of proposed agent calls rejected by the dependency gate",
		},
		[]string{"reason"},
	)

	// Agent metrics
	AgentInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_agent_invocations_total",
			Help: "Total number of capability agent invocations",
		},
		[]string{"agent", "status"},
	)

	AgentInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilot_agent_invocation_duration_ms",
			Help:    "Capability agent invocation duration in milliseconds",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"agent"},
	)

	AgentsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_agents_skipped_total",
			Help: "Agent calls skipped because an upstream producer could not supply data",
		},
		[]string{"agent"},
	)

	// Transcript fallback metrics
	TranscriptResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_transcript_resolutions_total",
			Help: "Transcript fallback resolutions by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	TranscriptResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilot_transcript_resolution_duration_seconds",
			Help:    "Transcript fallback resolution duration in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"source"},
	)

	// Data access metrics
	AnalyticalQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_analytical_queries_total",
			Help: "Analytical store queries by terminal status",
		},
		[]string{"status"},
	)

	TranscriptionJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_transcription_jobs_total",
			Help: "Live transcription jobs by terminal status",
		},
		[]string{"status"},
	)

	PollTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_poll_timeouts_total",
			Help: "Bounded poll loops that exhausted their wall-clock budget",
		},
		[]string{"operation"},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copilot_sessions_created_total",
			Help: "Total number of chat sessions created",
		},
	)

	SessionTurnsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copilot_session_turns_appended_total",
			Help: "Total number of turns appended to chat sessions",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "copilot_session_cache_size",
			Help: "Number of sessions held in the local cache",
		},
	)

	// Reasoning client metrics
	ReasoningCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_reasoning_calls_total",
			Help: "External reasoning calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "copilot_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"name"},
	)
)
