package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCost_StandardAndPremium(t *testing.T) {
	cost, ok := Cost("gemini-2.0-flash")
	require.True(t, ok)
	assert.Equal(t, 1, cost)

	cost, ok = Cost("gemini-2.5-pro")
	require.True(t, ok)
	assert.Equal(t, 2, cost)

	cost, ok = Cost("deepseek-r1-distill-llama-70b")
	require.True(t, ok)
	assert.Equal(t, 2, cost)
}

func TestCost_UnknownModel(t *testing.T) {
	_, ok := Cost("gpt-4o")
	assert.False(t, ok)
	assert.False(t, IsValid("gpt-4o"))
	assert.False(t, IsValid(""))
}

func TestLookup_ProviderRouting(t *testing.T) {
	m, ok := Lookup("llama-3.3-70b-versatile")
	require.True(t, ok)
	assert.Equal(t, ProviderGroq, m.Provider)

	m, ok = Lookup("gemini-2.5-flash")
	require.True(t, ok)
	assert.Equal(t, ProviderGemini, m.Provider)
}

func TestAll_EveryEntryWellFormed(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for _, m := range all {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.DisplayName)
		assert.Contains(t, []Provider{ProviderGemini, ProviderGroq}, m.Provider)
		assert.Contains(t, []int{StandardCost, PremiumCost}, m.Cost)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0].Cost = 99
	again := All()
	assert.NotEqual(t, 99, again[0].Cost)
}
