package registry

import "github.com/relayhub/relay-gateway/internal/config"

// Provider ids
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderLocal     = "local"
)

var catalogProviders = []Provider{
	{
		ID:            ProviderOpenAI,
		Name:          "OpenAI",
		Tier:          TierPremium,
		CredentialKey: config.CredentialOpenAI,
		Strengths:     []string{"reasoning", "structured-output", "code"},
	},
	{
		ID:            ProviderAnthropic,
		Name:          "Anthropic",
		Tier:          TierPremium,
		CredentialKey: config.CredentialAnthropic,
		Strengths:     []string{"long-context", "analysis", "writing"},
	},
	{
		ID:            ProviderGoogle,
		Name:          "Google",
		Tier:          TierMid,
		CredentialKey: config.CredentialGoogle,
		Strengths:     []string{"speed", "long-context", "multimodal"},
	},
	{
		ID:        ProviderLocal,
		Name:      "Local Runtime",
		Tier:      TierFree,
		Strengths: []string{"always-on", "zero-cost"},
	},
}

var catalogModels = []Model{
	{
		Key:             "gpt-4o",
		ID:              "gpt-4o",
		ProviderID:      ProviderOpenAI,
		ContextWindow:   128000,
		MaxOutput:       16384,
		InputCostPer1K:  0.0025,
		OutputCostPer1K: 0.01,
		Speed:           SpeedMedium,
		Quality:         QualityExcellent,
		SuitableFor:     []string{"reasoning", "diagnosis", "generation"},
	},
	{
		Key:             "gpt-4o-mini",
		ID:              "gpt-4o-mini",
		ProviderID:      ProviderOpenAI,
		ContextWindow:   128000,
		MaxOutput:       16384,
		InputCostPer1K:  0.00015,
		OutputCostPer1K: 0.0006,
		Speed:           SpeedFastest,
		Quality:         QualityGood,
		SuitableFor:     []string{"classification", "summarization"},
	},
	{
		Key:             "claude-sonnet",
		ID:              "claude-3-5-sonnet-latest",
		ProviderID:      ProviderAnthropic,
		ContextWindow:   200000,
		MaxOutput:       8192,
		InputCostPer1K:  0.003,
		OutputCostPer1K: 0.015,
		Speed:           SpeedMedium,
		Quality:         QualityBest,
		SuitableFor:     []string{"diagnosis", "analysis", "generation"},
	},
	{
		Key:             "claude-haiku",
		ID:              "claude-3-5-haiku-latest",
		ProviderID:      ProviderAnthropic,
		ContextWindow:   200000,
		MaxOutput:       8192,
		InputCostPer1K:  0.0008,
		OutputCostPer1K: 0.004,
		Speed:           SpeedFast,
		Quality:         QualityGood,
		SuitableFor:     []string{"classification", "summarization"},
	},
	{
		Key:             "gemini-pro",
		ID:              "gemini-1.5-pro",
		ProviderID:      ProviderGoogle,
		ContextWindow:   2000000,
		MaxOutput:       8192,
		InputCostPer1K:  0.00125,
		OutputCostPer1K: 0.005,
		Speed:           SpeedMedium,
		Quality:         QualityExcellent,
		SuitableFor:     []string{"long-context", "diagnosis", "generation"},
	},
	{
		Key:             "gemini-flash",
		ID:              "gemini-1.5-flash",
		ProviderID:      ProviderGoogle,
		ContextWindow:   1000000,
		MaxOutput:       8192,
		InputCostPer1K:  0.000075,
		OutputCostPer1K: 0.0003,
		Speed:           SpeedFastest,
		Quality:         QualityGood,
		SuitableFor:     []string{"classification", "summarization"},
	},
	{
		Key:             "llama-local",
		ID:              "llama3.1:8b",
		ProviderID:      ProviderLocal,
		ContextWindow:   8192,
		MaxOutput:       4096,
		InputCostPer1K:  0,
		OutputCostPer1K: 0,
		Speed:           SpeedFast,
		Quality:         QualityBasic,
		SuitableFor:     []string{"classification", "generation"},
	},
}

// Capability ids
const (
	CapabilityIntentClassify  = "intent-classify"
	CapabilityAnomalyDiagnose = "anomaly-diagnose"
	CapabilityTextGenerate    = "text-generate"
	CapabilitySummarize       = "summarize"
)

// Chain order encodes the cost/quality preference per capability and tier.
// Order is authored, not recomputed at runtime, and every chain ends at the
// free-tier model.
var catalogChains = map[string]map[ComplexityTier][]string{
	CapabilityIntentClassify: {
		ComplexitySimple:   {"gemini-flash", "gpt-4o-mini", "llama-local"},
		ComplexityStandard: {"gpt-4o-mini", "claude-haiku", "gemini-flash", "llama-local"},
		ComplexityComplex:  {"claude-sonnet", "gpt-4o", "gemini-pro", "llama-local"},
	},
	CapabilityAnomalyDiagnose: {
		ComplexitySimple:   {"claude-haiku", "gpt-4o-mini", "llama-local"},
		ComplexityStandard: {"claude-sonnet", "gpt-4o", "gemini-pro", "llama-local"},
		ComplexityComplex:  {"claude-sonnet", "gpt-4o", "gemini-pro", "llama-local"},
	},
	CapabilityTextGenerate: {
		ComplexitySimple:   {"gpt-4o-mini", "gemini-flash", "llama-local"},
		ComplexityStandard: {"gpt-4o", "claude-sonnet", "gemini-pro", "llama-local"},
		ComplexityComplex:  {"claude-sonnet", "gpt-4o", "gemini-pro", "llama-local"},
	},
	CapabilitySummarize: {
		ComplexitySimple:   {"gemini-flash", "claude-haiku", "llama-local"},
		ComplexityStandard: {"claude-haiku", "gpt-4o-mini", "gemini-flash", "llama-local"},
		ComplexityComplex:  {"claude-sonnet", "gemini-pro", "llama-local"},
	},
}
