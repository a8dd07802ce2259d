package supervisor

import (
	"github.com/fieldpulse/copilot/internal/transcript"
)

const unsupportedMessage = "Unsupported request. Please rephrase."

// FinalResponse is the single JSON object returned for every request.
// Exactly one of the error-shaped fields or Results is populated.
type FinalResponse struct {
	Reasoning string `json:"reasoning,omitempty"`
	// Confidence keeps no omitempty: a zero overall confidence is a
	// legitimate value, not an absent one.
	Confidence float64       `json:"confidence"`
	Results    []AgentResult `json:"results,omitempty"`

	// TranscriptSource reports where a recovered transcript came from
	// when the fallback chain ran.
	TranscriptSource string `json:"transcript_source,omitempty"`

	Status   string   `json:"status,omitempty"`
	Required []string `json:"required,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Aggregate wraps per-agent results into the final response. Payloads are
// carried through untouched; the function is pure, so repeated calls over
// the same inputs yield identical output.
func Aggregate(results []AgentResult, reasoning string, confidence float64, tr *transcript.Transcript) FinalResponse {
	if len(results) == 0 {
		return UnsupportedResponse()
	}
	resp := FinalResponse{
		Reasoning:  reasoning,
		Confidence: confidence,
		Results:    results,
	}
	if tr != nil {
		resp.TranscriptSource = string(tr.Source)
	}
	return resp
}

// UnsupportedResponse is returned when the classifier found nothing to
// route.
func UnsupportedResponse() FinalResponse {
	return FinalResponse{Error: unsupportedMessage}
}

// MissingParametersResponse short-circuits the request with the explicit
// list of identifiers the caller must supply.
func MissingParametersResponse(required []string) FinalResponse {
	return FinalResponse{Status: ReasonMissingParameters, Required: required}
}

// ClassificationFailureResponse reports that routing itself failed before
// any agent ran.
func ClassificationFailureResponse(reason string) FinalResponse {
	return FinalResponse{Status: "classification_error", Error: reason}
}
