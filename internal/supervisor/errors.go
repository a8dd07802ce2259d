package supervisor

import (
	"fmt"
	"strings"
)

// MissingParametersError means an admitted call needs an identifier the
// request does not carry and the router will not guess. It short-circuits
// the whole request.
type MissingParametersError struct {
	Agent    string
	Required []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("agent %s requires missing parameters: %s", e.Agent, strings.Join(e.Required, ", "))
}

// UpstreamInsufficiencyError means the transcript-producing step could not
// supply usable text, so transcript-dependent calls were not run.
type UpstreamInsufficiencyError struct {
	Producer string
	Reason   string
}

func (e *UpstreamInsufficiencyError) Error() string {
	return fmt.Sprintf("upstream %s produced no usable data: %s", e.Producer, e.Reason)
}
