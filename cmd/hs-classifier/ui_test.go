package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/storage"
)

func testUI(jsonMode bool) (*UI, *bytes.Buffer) {
	var buf bytes.Buffer
	return &UI{out: &buf, errOut: &buf, noColor: true, jsonMode: jsonMode}, &buf
}

func TestUI_Report(t *testing.T) {
	ui, buf := testUI(false)
	ui.Report(&classifier.Report{
		ID:     uuid.MustParse("6f1b2c3d-0000-4000-8000-000000000001"),
		Region: domain.RegionSingapore,
		Result: &domain.ClassificationResult{
			HSCode:            "8518.30.20",
			ProductName:       "Headphones",
			DutyRate:          "0%",
			TaxRate:           "9% GST",
			ConfidenceScore:   92,
			Source:            domain.SourceLiveAPI,
			RequiredDocuments: []string{"Commercial invoice"},
			SimilarItems:      []domain.SimilarItem{{Name: "Earphones", HSCode: "8518.30.20", Reason: "same"}},
		},
		Citations: []llm.Citation{{Title: "Singapore Customs", URI: "https://www.customs.gov.sg"}},
		Provider:  llm.ProviderStub,
		Elapsed:   1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "HS CODE 8518.30.20")
	assert.Contains(t, out, "92% confidence  [Live API]")
	assert.Contains(t, out, "Region: Singapore")
	assert.Contains(t, out, "RESTRICTIONS")
	assert.Contains(t, out, "  none")
	assert.Contains(t, out, "• Commercial invoice")
	assert.Contains(t, out, "Earphones")
	assert.Contains(t, out, "Singapore Customs (https://www.customs.gov.sg)")
	assert.Contains(t, out, "via stub in 1.5s")
	assert.NotContains(t, out, "\x1b[")
}

func TestUI_JSONModeSuppressesText(t *testing.T) {
	ui, buf := testUI(true)
	ui.Success("done")
	ui.Warning("careful")
	ui.Table([]string{"A"}, [][]string{{"1"}})
	assert.Empty(t, buf.String())

	assert.NoError(t, ui.JSON(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, buf.String())
}

func TestNilSpinnerIsSafe(t *testing.T) {
	var s *Spinner
	s.Start()
	s.UpdateMessage("working")
	s.Stop()
}

func TestDescribeError(t *testing.T) {
	assert.Contains(t, describeError(domain.NoResponseError("empty")), "no answer")
	assert.Contains(t, describeError(&domain.ClassificationError{Err: domain.InvocationError("x", errors.New("dial"))}), "could not be reached")
	assert.Equal(t, "plain", describeError(errors.New("plain")))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "2.0s", FormatDuration(2*time.Second))
	assert.Equal(t, "1.5m", FormatDuration(90*time.Second))
}

func TestRecordReport(t *testing.T) {
	rec := &storage.Record{
		ID:       uuid.MustParse("6f1b2c3d-0000-4000-8000-000000000002"),
		Region:   domain.RegionUAE,
		Provider: llm.ProviderStub,
		Result:   &domain.ClassificationResult{HSCode: "7318.15", ConfidenceScore: 70, Source: domain.SourceAIModel},
	}

	ui, buf := testUI(false)
	ui.Report(recordReport(rec))

	out := buf.String()
	assert.Contains(t, out, "HS CODE 7318.15")
	assert.Contains(t, out, "Region: United Arab Emirates")
	assert.Contains(t, out, rec.ID.String())
}
