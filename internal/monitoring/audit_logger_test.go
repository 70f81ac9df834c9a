package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/hs-classifier/internal/observability"
)

type recordingPublisher struct {
	channel string
	events  []ClassificationEvent
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message any) error {
	p.channel = channel
	if ev, ok := message.(ClassificationEvent); ok {
		p.events = append(p.events, ev)
	}
	return p.err
}

func TestLogClassification_PublishesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json", Output: &buf})
	pub := &recordingPublisher{}

	audit := NewAuditLogger(logger, pub, "")
	audit.LogClassification(context.Background(), ClassificationEvent{
		Region:     "SG",
		Provider:   "stub",
		Channel:    "api",
		HSCode:     "8518.30.20",
		Source:     "Live API",
		Confidence: 92,
		Evidence:   []string{"singapore=skipped"},
	})

	assert.Equal(t, "classifications", pub.channel)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.False(t, ev.OccurredAt.IsZero())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "Audit event", line["message"])
	assert.Equal(t, "8518.30.20", line["hs_code"])
	assert.Equal(t, ev.ID.String(), line["event_id"])
}

func TestLogClassification_PublishFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Level: "warn", Format: "json", Output: &buf})
	pub := &recordingPublisher{err: errors.New("redis down")}

	NewAuditLogger(logger, pub, "audit").LogClassification(context.Background(), ClassificationEvent{
		Region: "AE",
		Error:  "classification failed",
	})

	assert.Contains(t, buf.String(), "Failed to publish audit event")
	assert.Contains(t, buf.String(), "classification failed")
}

func TestLogClassification_NoPublisher(t *testing.T) {
	audit := NewAuditLogger(observability.NewNopLogger(), nil, "")
	assert.NotPanics(t, func() {
		audit.LogClassification(context.Background(), ClassificationEvent{Region: "US"})
	})
}
