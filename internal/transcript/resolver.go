// Package transcript recovers call transcript text for agents that cannot
// run without it. The fallback chain is fixed: a cheap primary-store lookup
// first (transcripts persisted by prior transcription runs), then a live
// transcription job. The resolver never synthesizes placeholder text; when
// both steps fail it reports insufficiency and downstream agents stay
// unexecuted.
package transcript

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/dataaccess"
	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/polling"
)

// Source identifies where a transcript came from.
type Source string

const (
	SourcePrimaryStore      Source = "primary_store"
	SourceLiveTranscription Source = "live_transcription"
	// SourceSupplied marks transcript text the caller attached to the
	// request; the resolver never produces it.
	SourceSupplied Source = "supplied"
)

// Transcript is recovered transcript text plus its provenance.
type Transcript struct {
	Source   Source            `json:"source"`
	HCPID    string            `json:"hcp_id"`
	CallID   string            `json:"call_id,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InsufficiencyError reports that no usable transcript could be produced.
type InsufficiencyError struct {
	HCPID  string
	Reason string
}

func (e *InsufficiencyError) Error() string {
	return fmt.Sprintf("no usable transcript for %s: %s", e.HCPID, e.Reason)
}

// Config holds resolver settings loaded from configuration.
type Config struct {
	// TranscriptTable is the analytical-store table holding persisted
	// transcripts.
	TranscriptTable string `mapstructure:"transcript_table"`
	// MediaURITemplate locates the expected media object for an HCP;
	// %s is replaced with the hcp id.
	MediaURITemplate string `mapstructure:"media_uri_template"`
	// QueryPoll bounds the primary-store lookup.
	QueryPoll polling.Policy `mapstructure:"query_poll"`
	// JobPoll bounds the live transcription job.
	JobPoll polling.Policy `mapstructure:"job_poll"`
}

// DefaultConfig mirrors the poll bounds of the upstream executors: 0.5s/30s
// for analytical statements, 5s/20min for transcription jobs.
func DefaultConfig() Config {
	return Config{
		TranscriptTable:  "call_transcripts",
		MediaURITemplate: "s3://sales-copilot-media/calls/%s.mp3",
		QueryPoll:        polling.Policy{Interval: 500 * time.Millisecond, MaxBudget: 30 * time.Second},
		JobPoll:          polling.Policy{Interval: 5 * time.Second, MaxBudget: 20 * time.Minute},
	}
}

// Resolver implements the two-step fallback chain.
type Resolver struct {
	analytical dataaccess.AnalyticalClient
	transcribe dataaccess.TranscribeClient
	config     Config
	logger     *zap.Logger
}

// NewResolver builds a resolver over the injected data access clients.
func NewResolver(analytical dataaccess.AnalyticalClient, transcribe dataaccess.TranscribeClient, config Config, logger *zap.Logger) *Resolver {
	if config.TranscriptTable == "" {
		config.TranscriptTable = DefaultConfig().TranscriptTable
	}
	return &Resolver{
		analytical: analytical,
		transcribe: transcribe,
		config:     config,
		logger:     logger,
	}
}

var hcpIDPattern = regexp.MustCompile(`^HCP[0-9]+$`)

// ResolveTranscript runs the fallback chain for hcpID. On success the
// returned transcript is validated as usable; otherwise the error is an
// *InsufficiencyError (or a context error).
func (r *Resolver) ResolveTranscript(ctx context.Context, hcpID string) (*Transcript, error) {
	if !hcpIDPattern.MatchString(hcpID) {
		return nil, &InsufficiencyError{HCPID: hcpID, Reason: "malformed hcp id"}
	}

	// Step 1: persisted transcript from a prior transcription run.
	start := time.Now()
	tr, reason := r.fromPrimaryStore(ctx, hcpID)
	metrics.TranscriptResolutionDuration.WithLabelValues(string(SourcePrimaryStore)).Observe(time.Since(start).Seconds())
	if tr != nil {
		metrics.TranscriptResolutions.WithLabelValues(string(SourcePrimaryStore), "found").Inc()
		return tr, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.TranscriptResolutions.WithLabelValues(string(SourcePrimaryStore), "miss").Inc()
	r.logger.Info("Primary store lookup yielded no usable transcript, falling back to live transcription",
		zap.String("hcp_id", hcpID),
		zap.String("reason", reason),
	)

	// Step 2: live transcription of the expected media object.
	start = time.Now()
	tr, reason = r.fromLiveTranscription(ctx, hcpID)
	metrics.TranscriptResolutionDuration.WithLabelValues(string(SourceLiveTranscription)).Observe(time.Since(start).Seconds())
	if tr != nil {
		metrics.TranscriptResolutions.WithLabelValues(string(SourceLiveTranscription), "found").Inc()
		return tr, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.TranscriptResolutions.WithLabelValues(string(SourceLiveTranscription), "miss").Inc()

	return nil, &InsufficiencyError{HCPID: hcpID, Reason: reason}
}

func (r *Resolver) fromPrimaryStore(ctx context.Context, hcpID string) (*Transcript, string) {
	// hcpID is pattern-validated above; the analytical store has no bind
	// parameter support in its submit contract.
	sql := fmt.Sprintf(
		"SELECT call_id, transcript_text, call_date FROM %s WHERE hcp_id = '%s' ORDER BY call_date DESC LIMIT 1",
		r.config.TranscriptTable, hcpID,
	)

	rows, err := dataaccess.ExecuteQuery(ctx, r.analytical, sql, r.config.QueryPoll)
	if err != nil {
		return nil, fmt.Sprintf("primary store lookup failed: %v", err)
	}
	if len(rows) == 0 {
		return nil, "no transcript record in primary store"
	}

	text := stringField(rows[0], "transcript_text")
	if ok, why := Usable(text); !ok {
		return nil, "persisted transcript unusable: " + why
	}

	tr := &Transcript{
		Source: SourcePrimaryStore,
		HCPID:  hcpID,
		CallID: stringField(rows[0], "call_id"),
		Text:   strings.TrimSpace(text),
	}
	if date := stringField(rows[0], "call_date"); date != "" {
		tr.Metadata = map[string]string{"call_date": date}
	}
	return tr, ""
}

func (r *Resolver) fromLiveTranscription(ctx context.Context, hcpID string) (*Transcript, string) {
	if r.transcribe == nil || r.config.MediaURITemplate == "" {
		return nil, "live transcription not configured"
	}
	mediaURI := fmt.Sprintf(r.config.MediaURITemplate, hcpID)

	doc, err := dataaccess.RunTranscription(ctx, r.transcribe, mediaURI, r.config.JobPoll)
	if err != nil {
		return nil, fmt.Sprintf("live transcription failed: %v", err)
	}

	text := dataaccess.Flatten(doc)
	if ok, why := Usable(text); !ok {
		return nil, "live transcript unusable: " + why
	}

	return &Transcript{
		Source: SourceLiveTranscription,
		HCPID:  hcpID,
		Text:   text,
		Metadata: map[string]string{
			"job_id":    doc.JobID,
			"media_uri": mediaURI,
		},
	}, ""
}

func stringField(row dataaccess.Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
