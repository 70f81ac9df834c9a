// Package postprocess applies attribution rules to a parsed result.
package postprocess

import (
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/policy"
)

// GroundedConfidence is the score above which a search-grounded answer is
// attributed to a live source.
const GroundedConfidence = 85

// Apply returns a copy of result with the source forced to Live API when a
// retrieval tool was active and confidence exceeds GroundedConfidence.
// No other field changes.
func Apply(result *domain.ClassificationResult, tools policy.ToolSelection) *domain.ClassificationResult {
	out := result.Clone()
	if tools.WebSearch && out.ConfidenceScore > GroundedConfidence {
		out.Source = domain.SourceLiveAPI
	}
	return out
}
