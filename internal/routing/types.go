package routing

// CallRequest is one agent call proposed by the classifier. The Input field
// is advisory only: the executor always replaces it with the full original
// user query before invocation.
type CallRequest struct {
	Agent      string  `json:"agent"`
	Input      string  `json:"input"`
	Why        string  `json:"why"`
	Confidence float64 `json:"confidence"`
}

// RoutingDecision is the classifier's answer for one user query. It is
// never mutated after creation.
type RoutingDecision struct {
	Reasoning  string        `json:"reasoning"`
	Confidence float64       `json:"confidence"`
	Calls      []CallRequest `json:"calls"`
}

// ClassificationError signals that the external reasoning call was
// unreachable or returned output violating the JSON contract. No partial
// routing is attempted after it.
type ClassificationError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return "classification failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "classification failed: " + e.Reason
}

func (e *ClassificationError) Unwrap() error { return e.Err }
