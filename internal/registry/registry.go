package registry

import (
	"fmt"
	"sort"
)

// Tier is a provider trust/cost tier
type Tier string

const (
	TierPremium Tier = "premium"
	TierMid     Tier = "mid"
	TierBudget  Tier = "budget"
	TierFree    Tier = "free"
)

// Speed is a qualitative model latency class
type Speed string

const (
	SpeedFastest Speed = "fastest"
	SpeedFast    Speed = "fast"
	SpeedMedium  Speed = "medium"
	SpeedSlow    Speed = "slow"
)

// Quality is a qualitative model output class
type Quality string

const (
	QualityBest      Quality = "best"
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityBasic     Quality = "basic"
)

// ComplexityTier selects which fallback chain variant a capability uses
type ComplexityTier string

const (
	ComplexitySimple   ComplexityTier = "simple"
	ComplexityStandard ComplexityTier = "standard"
	ComplexityComplex  ComplexityTier = "complex"
)

// Provider describes an upstream model provider. Immutable after startup.
type Provider struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Tier          Tier     `json:"tier"`
	CredentialKey string   `json:"credential_key,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
}

// Model describes a single routable model. Immutable after startup.
type Model struct {
	Key             string   `json:"key"`
	ID              string   `json:"id"`
	ProviderID      string   `json:"provider"`
	ContextWindow   int      `json:"context_window"`
	MaxOutput       int      `json:"max_output"`
	InputCostPer1K  float64  `json:"input_cost_per_1k"`
	OutputCostPer1K float64  `json:"output_cost_per_1k"`
	Speed           Speed    `json:"speed"`
	Quality         Quality  `json:"quality"`
	SuitableFor     []string `json:"suitable_for,omitempty"`
}

// EstimateCost returns the estimated USD cost for a token count pair
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*m.InputCostPer1K +
		float64(outputTokens)/1000*m.OutputCostPer1K
}

// Registry is the static model catalog plus the capability fallback-chain
// map. Built once at startup and never mutated; overrides build a new table.
type Registry struct {
	providers map[string]Provider
	models    map[string]Model
	chains    map[string]map[ComplexityTier][]string
}

// New builds the registry from the built-in catalog
func New() *Registry {
	return build(catalogProviders, catalogModels, catalogChains)
}

func build(providers []Provider, models []Model, chains map[string]map[ComplexityTier][]string) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		models:    make(map[string]Model, len(models)),
		chains:    chains,
	}
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	for _, m := range models {
		r.models[m.Key] = m
	}
	return r
}

// Model returns the model for a registry key
func (r *Registry) Model(key string) (Model, bool) {
	m, ok := r.models[key]
	return m, ok
}

// Provider returns the provider for an id
func (r *Registry) Provider(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Providers returns all providers sorted by id
func (r *Registry) Providers() []Provider {
	list := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// ModelsForProvider returns all models owned by a provider, sorted by key
func (r *Registry) ModelsForProvider(providerID string) []Model {
	list := []Model{}
	for _, m := range r.models {
		if m.ProviderID == providerID {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// Models returns all models sorted by key
func (r *Registry) Models() []Model {
	list := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// FallbackChain returns the ordered model keys for a capability and tier.
// Unknown capability or tier yields an empty chain; the caller must treat
// that as "no route available".
func (r *Registry) FallbackChain(capabilityID string, tier ComplexityTier) []string {
	tiers, ok := r.chains[capabilityID]
	if !ok {
		return nil
	}
	return tiers[tier]
}

// Capabilities returns all capability ids sorted
func (r *Registry) Capabilities() []string {
	list := make([]string, 0, len(r.chains))
	for id := range r.chains {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}

// Validate checks the catalog invariants. Called once at startup; a failure
// here is a configuration bug and the process must not serve traffic.
func (r *Registry) Validate() error {
	for key, m := range r.models {
		if _, ok := r.providers[m.ProviderID]; !ok {
			return fmt.Errorf("model %s references unknown provider %s", key, m.ProviderID)
		}
	}
	for capID, tiers := range r.chains {
		for _, tier := range []ComplexityTier{ComplexitySimple, ComplexityStandard, ComplexityComplex} {
			chain, ok := tiers[tier]
			if !ok || len(chain) == 0 {
				return fmt.Errorf("capability %s has no %s chain", capID, tier)
			}
			for _, key := range chain {
				if _, ok := r.models[key]; !ok {
					return fmt.Errorf("capability %s %s chain references unknown model %s", capID, tier, key)
				}
			}
			// Every chain must terminate at the free tier so paid-provider
			// exhaustion alone can never fail a capability.
			last := r.models[chain[len(chain)-1]]
			if p := r.providers[last.ProviderID]; p.Tier != TierFree {
				return fmt.Errorf("capability %s %s chain does not end at a free-tier model", capID, tier)
			}
		}
	}
	return nil
}
