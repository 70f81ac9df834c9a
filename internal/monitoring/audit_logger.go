// Package monitoring provides classification audit logging.
package monitoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/hs-classifier/internal/observability"
)

// DefaultChannel is the audit channel used when none is configured.
const DefaultChannel = "classifications"

// ChannelName returns channel, or DefaultChannel when it is empty.
func ChannelName(channel string) string {
	if channel == "" {
		return DefaultChannel
	}
	return channel
}

// Publisher fans audit events out to subscribers. *cache.RedisClient satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// AuditLogger records one audit event per classification.
type AuditLogger struct {
	logger    *observability.Logger
	publisher Publisher
	channel   string
}

// ClassificationEvent is an auditable classification attempt.
type ClassificationEvent struct {
	ID         uuid.UUID `json:"id"`
	Region     string    `json:"region"`
	Provider   string    `json:"provider,omitempty"`
	Channel    string    `json:"channel"`
	HSCode     string    `json:"hs_code,omitempty"`
	Source     string    `json:"source,omitempty"`
	Confidence int       `json:"confidence"`
	Evidence   []string  `json:"evidence,omitempty"`
	Citations  int       `json:"citations"`
	Cached     bool      `json:"cached"`
	LatencyMs  int64     `json:"latency_ms"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAuditLogger creates an audit logger. publisher may be nil.
func NewAuditLogger(logger *observability.Logger, publisher Publisher, channel string) *AuditLogger {
	return &AuditLogger{
		logger:    logger.WithOperation("audit"),
		publisher: publisher,
		channel:   ChannelName(channel),
	}
}

// LogClassification records event. Publish failures are logged, not returned.
func (a *AuditLogger) LogClassification(ctx context.Context, event ClassificationEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	log := a.logger.WithContext(ctx)
	e := log.Info()
	if event.Error != "" {
		e = log.Warn().Str("error", event.Error)
	}
	e.Str("event_id", event.ID.String()).
		Str("region", event.Region).
		Str("provider", event.Provider).
		Str("channel", event.Channel).
		Str("hs_code", event.HSCode).
		Str("source", event.Source).
		Int("confidence", event.Confidence).
		Strs("evidence", event.Evidence).
		Int("citations", event.Citations).
		Bool("cached", event.Cached).
		Int("latency_ms", int(event.LatencyMs)).
		Msg("Audit event")

	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, a.channel, event); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to publish audit event")
	}
}
