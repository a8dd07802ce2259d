// Package agents talks to the capability agent runtime and extracts the
// identifiers agents require from free-form query text.
package agents

import (
	"regexp"
	"strings"
)

var (
	hcpIDPattern   = regexp.MustCompile(`(?i)\bhcp[-_ ]?(\d+)\b`)
	bareHCPattern  = regexp.MustCompile(`(?i)\bh(\d+)\b`)
	callIDPattern  = regexp.MustCompile(`(?i)\bcall[-_ ]?id[:\s]+([A-Za-z0-9-]+)\b`)
	hcpNamePattern = regexp.MustCompile(`\b(?:[Dd]r\.?|[Dd]octor)\s+([A-Z][A-Za-z'\x{2019}-]+(?:\s+[A-Z][A-Za-z'\x{2019}-]+){0,2})`)
)

// NormalizeHCPID canonicalizes an HCP identifier to the form HCP<digits>.
// Input like "hcp 123", "HCP-123", "hcp_123" or the bare shorthand "H123"
// all normalize to "HCP123". Returns "" when raw carries no recognizable
// identifier.
func NormalizeHCPID(raw string) string {
	s := strings.TrimSpace(raw)
	if m := hcpIDPattern.FindStringSubmatch(s); m != nil {
		return "HCP" + m[1]
	}
	if m := bareHCPattern.FindStringSubmatch(s); m != nil {
		return "HCP" + m[1]
	}
	return ""
}

// ExtractHCPID pulls the first HCP identifier out of free-form text,
// normalized. The second return reports whether one was found.
func ExtractHCPID(text string) (string, bool) {
	id := NormalizeHCPID(text)
	return id, id != ""
}

// ExtractHCPName pulls a name-based HCP mention ("Dr. Lee", "Doctor Jane
// Doe") out of free-form text, with any trailing possessive stripped.
func ExtractHCPName(text string) (string, bool) {
	m := hcpNamePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSuffix(m[1], "'s")
	name = strings.TrimSuffix(name, "’s")
	return name, true
}

// ExtractCallID pulls an explicit call id reference out of free-form text.
func ExtractCallID(text string) (string, bool) {
	m := callIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractParams gathers every recognized identifier from text into a
// parameter map keyed by the registry's input names.
func ExtractParams(text string) map[string]string {
	params := make(map[string]string)
	if id, ok := ExtractHCPID(text); ok {
		params["hcp_id"] = id
	}
	if id, ok := ExtractCallID(text); ok {
		params["call_id"] = id
	}
	if name, ok := ExtractHCPName(text); ok {
		params["hcp_name"] = name
	}
	return params
}
