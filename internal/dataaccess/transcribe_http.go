package dataaccess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPTranscribeConfig configures the transcription service client.
type HTTPTranscribeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPTranscribe implements TranscribeClient against the transcription
// service's REST API.
type HTTPTranscribe struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPTranscribe creates a transcription service client.
func NewHTTPTranscribe(cfg HTTPTranscribeConfig, logger *zap.Logger) *HTTPTranscribe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTranscribe{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type submitJobRequest struct {
	MediaURI string `json:"media_uri"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	Status        JobStatus `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// SubmitJob starts a transcription job for mediaURI.
func (t *HTTPTranscribe) SubmitJob(ctx context.Context, mediaURI string) (string, error) {
	body, _ := json.Marshal(submitJobRequest{MediaURI: mediaURI})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit transcription job: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("submit transcription job: status %d", resp.StatusCode)
	}

	var out submitJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode job submission: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("transcription service returned empty job id")
	}
	t.logger.Debug("Submitted transcription job",
		zap.String("job_id", out.JobID),
		zap.String("media_uri", mediaURI),
	)
	return out.JobID, nil
}

// PollJob reports the job's current status.
func (t *HTTPTranscribe) PollJob(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/transcriptions/"+jobID, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("poll transcription job: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("poll transcription job: status %d", resp.StatusCode)
	}

	var out jobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode job status: %w", err)
	}
	return out.Status, nil
}

// FetchTranscript downloads the completed job's transcript document.
func (t *HTTPTranscribe) FetchTranscript(ctx context.Context, jobID string) (*TranscriptDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/transcriptions/"+jobID+"/document", nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch transcript: status %d", resp.StatusCode)
	}

	var doc TranscriptDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode transcript document: %w", err)
	}
	return &doc, nil
}
