package supervisor

import (
	"fmt"

	"github.com/fieldpulse/copilot/internal/transcript"
)

// ExecutionContext is per-request state: the caller's verbatim query, the
// identifiers extracted from it, and a transcript once one is supplied or
// recovered. It never outlives the request.
type ExecutionContext struct {
	OriginalQuery string
	Params        map[string]string
	Transcript    *transcript.Transcript
}

// HasParam reports whether the request carries a value for field, either
// extracted from the query or injected by an upstream step.
func (c *ExecutionContext) HasParam(field string) bool {
	if field == "transcript" {
		return c.Transcript != nil
	}
	v, ok := c.Params[field]
	return ok && v != ""
}

const (
	transcriptBlockOpen  = "===CALL TRANSCRIPT==="
	transcriptBlockClose = "===END TRANSCRIPT==="
)

// ContextBlock renders the recovered transcript as the marker block that
// transcript-consuming agents parse out of their input text. Returns ""
// when no transcript is held.
func (c *ExecutionContext) ContextBlock() string {
	if c.Transcript == nil {
		return ""
	}
	return fmt.Sprintf("%s\nsource: %s\nhcp_id: %s\n\n%s\n%s",
		transcriptBlockOpen,
		c.Transcript.Source,
		c.Transcript.HCPID,
		c.Transcript.Text,
		transcriptBlockClose,
	)
}
