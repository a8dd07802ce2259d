// Package dataaccess abstracts the analytical store and the long-running
// media transcription service behind submit/poll/fetch interfaces. It is
// pure I/O; no routing or business logic lives here.
package dataaccess

import (
	"context"
	"fmt"

	"github.com/fieldpulse/copilot/internal/metrics"
	"github.com/fieldpulse/copilot/internal/polling"
)

// QueryStatus is the terminal-or-not state of an analytical statement.
type QueryStatus string

const (
	QueryRunning  QueryStatus = "RUNNING"
	QueryFinished QueryStatus = "FINISHED"
	QueryFailed   QueryStatus = "FAILED"
	QueryAborted  QueryStatus = "ABORTED"
)

// Row is one result row as a field map.
type Row map[string]any

// AnalyticalClient is the submit/poll/fetch contract of the analytical
// data store.
type AnalyticalClient interface {
	Submit(ctx context.Context, sql string) (statementID string, err error)
	Poll(ctx context.Context, statementID string) (QueryStatus, error)
	Fetch(ctx context.Context, statementID string) ([]Row, error)
}

// JobStatus is the state of a transcription job.
type JobStatus string

const (
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// TranscriptSegment is one ordered piece of a transcript document.
type TranscriptSegment struct {
	Speaker string  `json:"speaker,omitempty"`
	StartMs int64   `json:"start_ms,omitempty"`
	EndMs   int64   `json:"end_ms,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"confidence,omitempty"`
}

// TranscriptDocument is the raw document returned by the transcription
// service for a completed job.
type TranscriptDocument struct {
	JobID    string              `json:"job_id"`
	MediaURI string              `json:"media_uri"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments"`
}

// TranscribeClient is the submit/poll/fetch contract of the media
// transcription service.
type TranscribeClient interface {
	SubmitJob(ctx context.Context, mediaURI string) (jobID string, err error)
	PollJob(ctx context.Context, jobID string) (JobStatus, error)
	FetchTranscript(ctx context.Context, jobID string) (*TranscriptDocument, error)
}

// ErrQueryNotFinished wraps a terminal non-success query status.
type ErrQueryNotFinished struct {
	StatementID string
	Status      QueryStatus
}

func (e *ErrQueryNotFinished) Error() string {
	return fmt.Sprintf("statement %s ended with status %s", e.StatementID, e.Status)
}

// ExecuteQuery submits sql, polls under policy until a terminal status,
// and fetches the rows. Budget exhaustion is reported via
// polling.ErrBudgetExceeded.
func ExecuteQuery(ctx context.Context, client AnalyticalClient, sql string, policy polling.Policy) ([]Row, error) {
	statementID, err := client.Submit(ctx, sql)
	if err != nil {
		metrics.AnalyticalQueries.WithLabelValues("submit_error").Inc()
		return nil, fmt.Errorf("submit statement: %w", err)
	}

	var terminal QueryStatus
	err = polling.Wait(ctx, "analytical_query", policy, func(ctx context.Context) (bool, error) {
		status, err := client.Poll(ctx, statementID)
		if err != nil {
			return true, fmt.Errorf("poll statement %s: %w", statementID, err)
		}
		switch status {
		case QueryFinished:
			terminal = status
			return true, nil
		case QueryFailed, QueryAborted:
			terminal = status
			return true, &ErrQueryNotFinished{StatementID: statementID, Status: status}
		default:
			return false, nil
		}
	})
	if err != nil {
		if terminal == "" {
			terminal = "TIMEOUT"
		}
		metrics.AnalyticalQueries.WithLabelValues(string(terminal)).Inc()
		return nil, err
	}
	metrics.AnalyticalQueries.WithLabelValues(string(QueryFinished)).Inc()

	rows, err := client.Fetch(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("fetch statement %s: %w", statementID, err)
	}
	return rows, nil
}

// ErrJobFailed wraps a failed transcription job.
type ErrJobFailed struct {
	JobID  string
	Reason string
}

func (e *ErrJobFailed) Error() string {
	return fmt.Sprintf("transcription job %s failed: %s", e.JobID, e.Reason)
}

// RunTranscription submits a transcription job for mediaURI, polls under
// policy until terminal, and fetches the completed document.
func RunTranscription(ctx context.Context, client TranscribeClient, mediaURI string, policy polling.Policy) (*TranscriptDocument, error) {
	jobID, err := client.SubmitJob(ctx, mediaURI)
	if err != nil {
		metrics.TranscriptionJobs.WithLabelValues("submit_error").Inc()
		return nil, fmt.Errorf("submit transcription job: %w", err)
	}

	err = polling.Wait(ctx, "transcription_job", policy, func(ctx context.Context) (bool, error) {
		status, err := client.PollJob(ctx, jobID)
		if err != nil {
			return true, fmt.Errorf("poll transcription job %s: %w", jobID, err)
		}
		switch status {
		case JobCompleted:
			return true, nil
		case JobFailed:
			return true, &ErrJobFailed{JobID: jobID, Reason: "terminal FAILED status"}
		default:
			return false, nil
		}
	})
	if err != nil {
		metrics.TranscriptionJobs.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.TranscriptionJobs.WithLabelValues(string(JobCompleted)).Inc()

	doc, err := client.FetchTranscript(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript for job %s: %w", jobID, err)
	}
	return doc, nil
}
