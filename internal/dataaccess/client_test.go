package dataaccess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpulse/copilot/internal/polling"
)

func fastPolicy() polling.Policy {
	return polling.Policy{Interval: 5 * time.Millisecond, MaxBudget: 200 * time.Millisecond}
}

// fakeAnalytical scripts a status sequence for one statement.
type fakeAnalytical struct {
	statuses  []QueryStatus
	rows      []Row
	submitErr error
	polls     int
}

func (f *fakeAnalytical) Submit(ctx context.Context, sql string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "stmt-1", nil
}

func (f *fakeAnalytical) Poll(ctx context.Context, id string) (QueryStatus, error) {
	status := f.statuses[min(f.polls, len(f.statuses)-1)]
	f.polls++
	return status, nil
}

func (f *fakeAnalytical) Fetch(ctx context.Context, id string) ([]Row, error) {
	return f.rows, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestExecuteQueryFinished(t *testing.T) {
	client := &fakeAnalytical{
		statuses: []QueryStatus{QueryRunning, QueryRunning, QueryFinished},
		rows:     []Row{{"hcp_id": "HCP100", "transcript_text": "hello"}},
	}
	rows, err := ExecuteQuery(context.Background(), client, "SELECT 1", fastPolicy())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "HCP100", rows[0]["hcp_id"])
	assert.GreaterOrEqual(t, client.polls, 3)
}

func TestExecuteQueryFailedStatus(t *testing.T) {
	client := &fakeAnalytical{statuses: []QueryStatus{QueryFailed}}
	_, err := ExecuteQuery(context.Background(), client, "SELECT 1", fastPolicy())
	var notFinished *ErrQueryNotFinished
	require.ErrorAs(t, err, &notFinished)
	assert.Equal(t, QueryFailed, notFinished.Status)
}

func TestExecuteQuerySubmitError(t *testing.T) {
	client := &fakeAnalytical{submitErr: errors.New("no connection")}
	_, err := ExecuteQuery(context.Background(), client, "SELECT 1", fastPolicy())
	assert.ErrorContains(t, err, "submit statement")
}

func TestExecuteQueryBudgetExceeded(t *testing.T) {
	client := &fakeAnalytical{statuses: []QueryStatus{QueryRunning}}
	_, err := ExecuteQuery(context.Background(), client, "SELECT 1",
		polling.Policy{Interval: 5 * time.Millisecond, MaxBudget: 15 * time.Millisecond})
	assert.ErrorIs(t, err, polling.ErrBudgetExceeded)
}

// fakeTranscribe scripts a transcription job lifecycle.
type fakeTranscribe struct {
	statuses []JobStatus
	doc      *TranscriptDocument
	polls    int
}

func (f *fakeTranscribe) SubmitJob(ctx context.Context, mediaURI string) (string, error) {
	return "job-1", nil
}

func (f *fakeTranscribe) PollJob(ctx context.Context, jobID string) (JobStatus, error) {
	status := f.statuses[min(f.polls, len(f.statuses)-1)]
	f.polls++
	return status, nil
}

func (f *fakeTranscribe) FetchTranscript(ctx context.Context, jobID string) (*TranscriptDocument, error) {
	return f.doc, nil
}

func TestRunTranscriptionCompleted(t *testing.T) {
	client := &fakeTranscribe{
		statuses: []JobStatus{JobInProgress, JobCompleted},
		doc: &TranscriptDocument{
			JobID: "job-1",
			Segments: []TranscriptSegment{
				{Speaker: "Rep", Text: "Hello Dr. Thomas"},
				{Speaker: "HCP", Text: "Thanks, let's keep it brief"},
			},
		},
	}
	doc, err := RunTranscription(context.Background(), client, "s3://calls/HCP100.mp3", fastPolicy())
	require.NoError(t, err)
	assert.Len(t, doc.Segments, 2)
}

func TestRunTranscriptionFailed(t *testing.T) {
	client := &fakeTranscribe{statuses: []JobStatus{JobFailed}}
	_, err := RunTranscription(context.Background(), client, "s3://calls/HCP100.mp3", fastPolicy())
	var failed *ErrJobFailed
	assert.ErrorAs(t, err, &failed)
}

func TestFlatten(t *testing.T) {
	doc := &TranscriptDocument{
		Segments: []TranscriptSegment{
			{Speaker: "Rep", Text: "Hello Dr. Thomas"},
			{Text: "  "},
			{Speaker: "HCP", Text: "Thanks"},
			{Text: "no speaker line"},
		},
	}
	assert.Equal(t, "Rep: Hello Dr. Thomas\nHCP: Thanks\nno speaker line", Flatten(doc))
	assert.Equal(t, "", Flatten(nil))
	assert.Equal(t, "", Flatten(&TranscriptDocument{}))
}
