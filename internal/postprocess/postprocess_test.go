package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/policy"
)

func TestApply(t *testing.T) {
	search := policy.ToolSelection{WebSearch: true}

	tests := []struct {
		name       string
		confidence int
		source     domain.Source
		tools      policy.ToolSelection
		want       domain.Source
	}{
		{"grounded high confidence", 90, domain.SourceAIModel, search, domain.SourceLiveAPI},
		{"below threshold", 80, domain.SourceAIModel, search, domain.SourceAIModel},
		{"at threshold", 85, domain.SourceAIModel, search, domain.SourceAIModel},
		{"just above", 86, domain.SourceAIModel, search, domain.SourceLiveAPI},
		{"no tools", 99, domain.SourceAIModel, policy.ToolSelection{}, domain.SourceAIModel},
		{"model said live", 40, domain.SourceLiveAPI, search, domain.SourceLiveAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &domain.ClassificationResult{
				HSCode:          "8518.30",
				ConfidenceScore: tt.confidence,
				Source:          tt.source,
				Restrictions:    []string{"permit"},
			}
			got := Apply(in, tt.tools)
			assert.Equal(t, tt.want, got.Source)
			assert.Equal(t, tt.source, in.Source, "input must not be mutated")

			want := in.Clone()
			want.Source = tt.want
			assert.Equal(t, want, got, "only source may change")
		})
	}
}
