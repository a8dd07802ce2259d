package registry

// Capability agent names. This list is final and closed; routing rejects
// anything else.
const (
	AgentProfile       = "profile_agent"
	AgentPrescribing   = "prescribing_agent"
	AgentAccess        = "access_agent"
	AgentCompetitive   = "competitive_agent"
	AgentContent       = "content_agent"
	AgentHistory       = "history_agent"
	AgentTerritory     = "territory_agent"
	AgentTranscription = "transcription_agent"
	AgentStructure     = "structure_agent"
	AgentSentiment     = "sentiment_agent"
	AgentCompliance    = "compliance_agent"
	AgentAction        = "action_agent"
)

// Dependency ranks. Producers run before consumers; independent data agents
// share a middle rank.
const (
	rankProducer    = 0
	rankIndependent = 10
	rankConsumer    = 20
)

// Default returns the built-in capability catalog. A YAML catalog loaded
// via Load overrides it entirely.
func Default() *Registry {
	r, err := New(defaultSpecs())
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}

func defaultSpecs() []CapabilitySpec {
	return []CapabilitySpec{
		{
			Name:             AgentProfile,
			Description:      "HCP background, specialty, patient focus and personalization hooks",
			RequiredInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"who is", "profile", "specialty", "background"},
		},
		{
			Name:             AgentPrescribing,
			Description:      "Prescribing behavior, volume trends and therapy mix for an HCP",
			RequiredInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"prescribing", "rx volume", "prescription trend"},
		},
		{
			Name:             AgentAccess,
			Description:      "Payer coverage, formulary access and prior-authorization landscape",
			RequiredInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"coverage", "formulary", "payer", "prior auth"},
		},
		{
			Name:             AgentCompetitive,
			Description:      "Competitor products and share-of-voice relevant to the HCP",
			RequiredInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"competitor", "competitive", "market share"},
		},
		{
			Name:             AgentContent,
			Description:      "Approved content, studies and leave-behind material recommendations",
			OptionalInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"content", "materials", "study", "leave-behind"},
		},
		{
			Name:             AgentHistory,
			Description:      "Prior visit history, open objections and past action items",
			RequiredInputs:   []string{"hcp_id"},
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"last visit", "history", "objections", "previous call"},
		},
		{
			Name:             AgentTerritory,
			Description:      "Territory-level KPIs, call coverage and target attainment",
			DependencyRank:   rankIndependent,
			SelectionSignals: []string{"territory", "my targets", "coverage rate", "kpi"},
		},
		{
			Name:               AgentTranscription,
			Description:        "Full call transcript with timestamps and confidence metadata",
			RequiredInputs:     []string{"hcp_id"},
			OptionalInputs:     []string{"call_id"},
			ProducesTranscript: true,
			DependencyRank:     rankProducer,
			SelectionSignals:   []string{"transcribe", "transcription", "what was said", "transcript"},
		},
		{
			Name:               AgentStructure,
			Description:        "Categorized call notes: objections, key topics, samples and content shared",
			RequiredInputs:     []string{"hcp_id"},
			RequiresTranscript: true,
			DependencyRank:     rankConsumer,
			SelectionSignals:   []string{"call notes", "objections raised", "key topics", "structured summary"},
		},
		{
			Name:               AgentSentiment,
			Description:        "Quantified call sentiment, receptivity, relationship stage and next-call risk",
			RequiredInputs:     []string{"hcp_id"},
			RequiresTranscript: true,
			DependencyRank:     rankConsumer,
			SelectionSignals:   []string{"sentiment", "tone", "receptivity", "next call risk"},
		},
		{
			Name:             AgentCompliance,
			Description:      "Compliant follow-up email draft with approved template references",
			RequiredInputs:   []string{"hcp_id"},
			OptionalInputs:   []string{"call_id"},
			DependencyRank:   rankConsumer,
			SelectionSignals: []string{"follow-up email", "compliant email", "email draft"},
		},
		{
			Name:               AgentAction,
			Description:        "Extracted action items, commitments and calendar follow-ups",
			RequiredInputs:     []string{"hcp_id"},
			RequiresTranscript: true,
			DependencyRank:     rankConsumer,
			SelectionSignals:   []string{"action items", "next steps", "commitments", "what I promised"},
		},
	}
}
