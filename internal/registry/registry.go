// Package registry holds the closed-world catalog of capability agents.
// The catalog is loaded once at process start and is immutable afterwards:
// no entry may be added, renamed, or inferred at runtime. Unknown names are
// rejected by callers, never executed.
package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CapabilitySpec describes one capability agent.
type CapabilitySpec struct {
	// Name is the unique, closed-world identifier of the agent.
	Name string `yaml:"name"`
	// Description is the one-line capability summary serialized into the
	// classification prompt.
	Description string `yaml:"description"`
	// RequiredInputs lists identifier fields the agent cannot run without
	// (e.g. hcp_id). Missing identifiers are surfaced, never guessed.
	RequiredInputs []string `yaml:"required_inputs"`
	// OptionalInputs lists identifier fields the agent can use when present.
	OptionalInputs []string `yaml:"optional_inputs"`
	// RequiresTranscript marks agents that must not run without call
	// transcript text.
	RequiresTranscript bool `yaml:"requires_transcript"`
	// ProducesTranscript marks the agent whose successful result supplies
	// transcript text to downstream consumers within the same request.
	ProducesTranscript bool `yaml:"produces_transcript"`
	// DependencyRank orders execution: lower ranks run first. Producers
	// carry a lower rank than their consumers.
	DependencyRank int `yaml:"dependency_rank"`
	// SelectionSignals are example trigger phrases included in the
	// classification prompt metadata.
	SelectionSignals []string `yaml:"selection_signals"`
}

// Registry is the immutable capability catalog. Safe for concurrent reads.
type Registry struct {
	specs  map[string]CapabilitySpec
	sorted []CapabilitySpec
}

type catalogFile struct {
	Capabilities []CapabilitySpec `yaml:"capabilities"`
}

// Load reads the capability catalog from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse capability catalog: %w", err)
	}
	return New(file.Capabilities)
}

// New builds a registry from specs, validating uniqueness and shape.
func New(specs []CapabilitySpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("capability catalog is empty")
	}

	byName := make(map[string]CapabilitySpec, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("capability with empty name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate capability name %q", name)
		}
		if spec.RequiresTranscript && spec.ProducesTranscript {
			return nil, fmt.Errorf("capability %q both requires and produces transcript", name)
		}
		spec.Name = name
		byName[name] = spec
	}

	ordered := make([]CapabilitySpec, 0, len(byName))
	for _, spec := range byName {
		ordered = append(ordered, spec)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DependencyRank == ordered[j].DependencyRank {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].DependencyRank < ordered[j].DependencyRank
	})

	return &Registry{specs: byName, sorted: ordered}, nil
}

// Lookup returns the spec for name. ok is false for names outside the
// closed world.
func (r *Registry) Lookup(name string) (CapabilitySpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all capability names in dependency-rank order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.sorted))
	for i, spec := range r.sorted {
		names[i] = spec.Name
	}
	return names
}

// Specs returns all specs in dependency-rank order. Callers must not
// mutate the returned slice contents.
func (r *Registry) Specs() []CapabilitySpec {
	out := make([]CapabilitySpec, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int { return len(r.specs) }

// TranscriptProducer returns the spec of the transcript-producing agent,
// if the catalog declares one.
func (r *Registry) TranscriptProducer() (CapabilitySpec, bool) {
	for _, spec := range r.sorted {
		if spec.ProducesTranscript {
			return spec, true
		}
	}
	return CapabilitySpec{}, false
}
