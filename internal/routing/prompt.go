package routing

import (
	"encoding/json"
	"strings"

	"github.com/fieldpulse/copilot/internal/registry"
)

// capabilityMetadata is the catalog entry shape serialized into the
// classification prompt.
type capabilityMetadata struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	RequiredInputs     []string `json:"required_inputs,omitempty"`
	OptionalInputs     []string `json:"optional_inputs,omitempty"`
	RequiresTranscript bool     `json:"requires_transcript"`
	SelectionSignals   []string `json:"selection_signals,omitempty"`
}

const promptHeader = `You are the routing supervisor for a field-sales copilot. Decide which
capability agents must run to satisfy the USER QUERY.

RULES:
- You may ONLY reference the agents listed below. The list is final,
  exhaustive, and closed. Never invent, rename, or extend it.
- Use each agent's metadata (selection_signals, description, inputs) when
  deciding. Prefer the minimum number of calls; zero calls is valid when no
  agent matches, with an explanation in "reasoning".
- For every call include a short "why" and a numeric "confidence" in [0,1].
- Provide an overall routing "confidence" in [0,1].
- Return ONLY one JSON object, no text outside it, exactly this schema:
  {"reasoning": "...", "confidence": 0.0, "calls": [{"agent": "...",
   "input": "...", "why": "...", "confidence": 0.0}]}

AVAILABLE AGENTS:
`

// BuildPrompt assembles the classification prompt from the capability
// catalog and the user query.
func BuildPrompt(reg *registry.Registry, userQuery string) string {
	meta := make([]capabilityMetadata, 0, reg.Len())
	for _, spec := range reg.Specs() {
		meta = append(meta, capabilityMetadata{
			Name:               spec.Name,
			Description:        spec.Description,
			RequiredInputs:     spec.RequiredInputs,
			OptionalInputs:     spec.OptionalInputs,
			RequiresTranscript: spec.RequiresTranscript,
			SelectionSignals:   spec.SelectionSignals,
		})
	}
	catalog, _ := json.MarshalIndent(meta, "", "  ")

	var sb strings.Builder
	sb.WriteString(promptHeader)
	sb.Write(catalog)
	sb.WriteString("\n\nUSER QUERY:\n")
	sb.WriteString(userQuery)
	sb.WriteString("\n\nProduce the JSON now.")
	return sb.String()
}
