// Package catalog is the single source of truth for which AI models
// SparkChat exposes and how many credits each one costs. Both the admission
// path and the quota/UI path consult it, so the two can never disagree.
package catalog

// Provider identifies the upstream service a model is proxied to.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// Credit costs per request. Premium covers the heavier reasoning models.
const (
	StandardCost = 1
	PremiumCost  = 2
)

// Model describes one entry in the allow-list.
type Model struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Provider    Provider `json:"provider"`
	Cost        int      `json:"cost"`
}

// models is the fixed allow-list. Order is the order shown in the UI picker.
var models = []Model{
	{ID: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash", Provider: ProviderGemini, Cost: StandardCost},
	{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", Provider: ProviderGemini, Cost: StandardCost},
	{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", Provider: ProviderGemini, Cost: PremiumCost},
	{ID: "llama-3.3-70b-versatile", DisplayName: "Llama 3.3 70B", Provider: ProviderGroq, Cost: StandardCost},
	{ID: "llama-3.1-8b-instant", DisplayName: "Llama 3.1 8B", Provider: ProviderGroq, Cost: StandardCost},
	{ID: "deepseek-r1-distill-llama-70b", DisplayName: "DeepSeek R1 70B", Provider: ProviderGroq, Cost: PremiumCost},
	{ID: "qwen-qwq-32b", DisplayName: "Qwen QwQ 32B", Provider: ProviderGroq, Cost: PremiumCost},
}

var byID = func() map[string]Model {
	m := make(map[string]Model, len(models))
	for _, mod := range models {
		m[mod.ID] = mod
	}
	return m
}()

// Lookup returns the model entry for id, or false if it is not allow-listed.
func Lookup(id string) (Model, bool) {
	m, ok := byID[id]
	return m, ok
}

// Cost returns the credit cost for id, or false for an unknown model.
func Cost(id string) (int, bool) {
	m, ok := byID[id]
	if !ok {
		return 0, false
	}
	return m.Cost, true
}

// IsValid reports whether id is on the allow-list.
func IsValid(id string) bool {
	_, ok := byID[id]
	return ok
}

// All returns the allow-list in display order.
func All() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}
