// Package parser turns model text into a validated classification result.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/observability"
)

// MaxRawLength bounds the raw text kept on an UnparseableError.
const MaxRawLength = 512

// UnparseableError reports that no strategy produced a valid result.
type UnparseableError struct {
	Raw      string
	Attempts []Attempt
}

// Attempt records why one strategy was rejected.
type Attempt struct {
	Strategy string
	Err      error
}

func (e *UnparseableError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	if len(reasons) == 0 {
		return "unparseable model response"
	}
	return "unparseable model response (" + strings.Join(reasons, "; ") + ")"
}

var (
	errNotApplicable = errors.New("no candidate")
	errMissingHSCode = errors.New("hsCode is missing")
)

// Parser runs the repair chain.
type Parser struct {
	strategies []Strategy
	logger     *observability.Logger
}

// New returns a parser using DefaultStrategies.
func New(logger *observability.Logger) *Parser {
	return &Parser{strategies: DefaultStrategies, logger: logger.WithOperation("parse")}
}

// Parse returns the first candidate that decodes and validates.
func (p *Parser) Parse(raw string) (*domain.ClassificationResult, error) {
	unparseable := &UnparseableError{Raw: truncate(raw, MaxRawLength)}

	for _, s := range p.strategies {
		candidates := s.Extract(raw)
		if len(candidates) == 0 {
			unparseable.Attempts = append(unparseable.Attempts, Attempt{Strategy: s.Name, Err: errNotApplicable})
			continue
		}
		for _, candidate := range candidates {
			result, err := p.decode(candidate)
			if err != nil {
				unparseable.Attempts = append(unparseable.Attempts, Attempt{Strategy: s.Name, Err: err})
				continue
			}
			p.logger.Debug().Str("strategy", s.Name).Str("hs_code", result.HSCode).Msg("Parsed model response")
			return result, nil
		}
	}

	p.logger.Warn().Int("raw_length", len(raw)).Str("raw", unparseable.Raw).Msg("Model response unparseable")
	return nil, domain.NewError(domain.ErrorTypeUnparseable, "could not parse model response", unparseable)
}

// wireResult mirrors the JSON contract with lenient field types.
type wireResult struct {
	HSCode            *string       `json:"hsCode"`
	ProductName       string        `json:"productName"`
	Description       string        `json:"description"`
	DutyRate          string        `json:"dutyRate"`
	TaxRate           string        `json:"taxRate"`
	Restrictions      stringList    `json:"restrictions"`
	Reasoning         string        `json:"reasoning"`
	ConfidenceScore   flexNumber    `json:"confidenceScore"`
	RequiredDocuments stringList    `json:"requiredDocuments"`
	Source            string        `json:"source"`
	SourceReference   string        `json:"sourceReference"`
	SimilarItems      []similarItem `json:"similarItems"`
}

type similarItem struct {
	Name   string `json:"name"`
	HSCode string `json:"hsCode"`
	Reason string `json:"reason"`
}

func (p *Parser) decode(candidate string) (*domain.ClassificationResult, error) {
	trimmed := bytes.TrimSpace([]byte(candidate))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("not a JSON object")
	}

	var w wireResult
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, err
	}
	if w.HSCode == nil || strings.TrimSpace(*w.HSCode) == "" {
		return nil, errMissingHSCode
	}

	score := p.confidence(w.ConfidenceScore)

	result := &domain.ClassificationResult{
		HSCode:            strings.TrimSpace(*w.HSCode),
		ProductName:       w.ProductName,
		Description:       w.Description,
		DutyRate:          w.DutyRate,
		TaxRate:           w.TaxRate,
		Restrictions:      nonNil(w.Restrictions),
		Reasoning:         w.Reasoning,
		ConfidenceScore:   score,
		RequiredDocuments: nonNil(w.RequiredDocuments),
		Source:            NormalizeSource(w.Source),
		SourceReference:   w.SourceReference,
		SimilarItems:      make([]domain.SimilarItem, 0, len(w.SimilarItems)),
	}
	for _, item := range w.SimilarItems {
		result.SimilarItems = append(result.SimilarItems, domain.SimilarItem(item))
	}
	return result, nil
}

func (p *Parser) confidence(n flexNumber) int {
	if !n.valid {
		if n.raw != "" {
			p.logger.Warn().Str("value", n.raw).Msg("Non-numeric confidence score, using 0")
		}
		return domain.MinConfidence
	}
	rounded := int(math.Round(n.value))
	clamped := domain.ClampConfidence(rounded)
	if clamped != rounded {
		p.logger.Warn().Int("reported", rounded).Int("clamped", clamped).Msg("Confidence score out of range")
	}
	return clamped
}

// NormalizeSource maps the model's source label onto the two allowed values.
// Anything that is not recognisably a live lookup counts as model inference;
// decorated labels such as "Live API (Singapore Customs)" still count as live.
func NormalizeSource(s string) domain.Source {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	if strings.HasPrefix(key, "liveapi") {
		return domain.SourceLiveAPI
	}
	return domain.SourceAIModel
}

// flexNumber accepts a JSON number or a numeric string such as "92" or "92%".
type flexNumber struct {
	value float64
	valid bool
	raw   string
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	f.raw = s
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value, f.valid = v, true
	return nil
}

// stringList accepts an array of strings, a single string or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string list: %w", err)
	}
	if strings.TrimSpace(single) != "" {
		*l = []string{single}
	}
	return nil
}

func nonNil(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
