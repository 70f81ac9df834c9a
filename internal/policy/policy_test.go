package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/hs-classifier/internal/connector"
	"github.com/spherical/hs-classifier/internal/domain"
)

func TestFor_EveryRegionHasPolicy(t *testing.T) {
	assert.Empty(t, Missing())

	for _, r := range domain.AllRegions() {
		t.Run(string(r), func(t *testing.T) {
			p := For(r)
			assert.Equal(t, r, p.Region)
			assert.NotEmpty(t, p.Instructions())
			assert.Contains(t, p.Instructions(), r.DisplayName())
			assert.NotEmpty(t, p.SearchStatus)
			assert.NotEmpty(t, p.CitationPhrase)
			assert.NotEmpty(t, p.FallbackNote)
		})
	}
}

func TestFor_LiveConnectors(t *testing.T) {
	tests := map[domain.Region][]connector.Name{
		domain.RegionSingapore:   {connector.NameSingapore},
		domain.RegionUAE:         {connector.NameUAE},
		domain.RegionSaudiArabia: {connector.NameSaudiArabia},
		domain.RegionUSA:         nil,
		domain.RegionGlobal:      nil,
	}
	for region, want := range tests {
		assert.Equal(t, want, For(region).Connectors, region)
	}
}

func TestFor_SingaporeEnablesSearch(t *testing.T) {
	p := For(domain.RegionSingapore)
	assert.True(t, p.Tools.WebSearch)
	assert.True(t, p.Tools.Active())
	assert.Equal(t, "Searching Singapore TradeNet & AHTN...", p.SearchStatus)
	assert.Contains(t, p.Instructions(), "GST")
}

func TestFor_UnknownRegionFallsBackToGlobal(t *testing.T) {
	p := For(domain.Region("XX"))
	assert.Equal(t, domain.RegionGlobal, p.Region)
}

func TestFor_ReturnsCopies(t *testing.T) {
	p := For(domain.RegionSingapore)
	require.NotEmpty(t, p.ComplianceBodies)
	p.ComplianceBodies[0] = "mutated"
	p.Connectors[0] = "mutated"

	again := For(domain.RegionSingapore)
	assert.NotEqual(t, "mutated", again.ComplianceBodies[0])
	assert.Equal(t, connector.NameSingapore, again.Connectors[0])
}

func TestToolSelection_Active(t *testing.T) {
	assert.False(t, ToolSelection{}.Active())
	assert.True(t, ToolSelection{WebSearch: true}.Active())
}
