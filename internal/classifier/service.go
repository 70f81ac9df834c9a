// Package classifier runs the classification pipeline end to end.
package classifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/evidence"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/monitoring"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/parser"
	"github.com/spherical/hs-classifier/internal/policy"
	"github.com/spherical/hs-classifier/internal/postprocess"
	"github.com/spherical/hs-classifier/internal/prompt"
)

// Progress labels emitted through the request's status sink.
const (
	StatusAnalyzing    = "Analyzing product details..."
	StatusConsulting   = "Consulting classification model..."
	StatusSynthesizing = "Synthesizing final compliance report..."
)

// Gatherer collects live evidence for a region.
type Gatherer interface {
	Gather(ctx context.Context, region domain.Region, query string) evidence.Gathered
}

// Invoker performs one model call.
type Invoker interface {
	Invoke(ctx context.Context, req *prompt.Request) (*llm.Output, error)
	Provider() string
}

// Auditor records finished classifications.
type Auditor interface {
	LogClassification(ctx context.Context, event monitoring.ClassificationEvent)
}

// Report is a classification result with the context that produced it.
type Report struct {
	ID        uuid.UUID
	Region    domain.Region
	Result    *domain.ClassificationResult
	Evidence  evidence.Context
	Citations []llm.Citation
	Provider  string
	Elapsed   time.Duration
}

// Service orchestrates evidence gathering, prompting, invocation and parsing.
type Service struct {
	gatherer Gatherer
	invoker  Invoker
	parser   *parser.Parser
	auditor  Auditor
	channel  string
	logger   *observability.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuditor records every Classify call.
func WithAuditor(a Auditor, channel string) Option {
	return func(s *Service) {
		s.auditor = a
		s.channel = channel
	}
}

// NewService creates a new classification service.
func NewService(gatherer Gatherer, invoker Invoker, logger *observability.Logger, opts ...Option) *Service {
	s := &Service{
		gatherer: gatherer,
		invoker:  invoker,
		parser:   parser.New(logger),
		logger:   logger.WithOperation("classify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify classifies req and returns only the result.
func (s *Service) Identify(ctx context.Context, req domain.ClassificationRequest) (*domain.ClassificationResult, error) {
	rep, err := s.Classify(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.Result, nil
}

// Classify runs the pipeline once. Connector problems never fail the call;
// model and parse failures are returned as *domain.ClassificationError.
func (s *Service) Classify(ctx context.Context, req domain.ClassificationRequest) (*Report, error) {
	start := time.Now()
	region := req.Region()
	log := s.logger.WithContext(ctx).WithRegion(string(region))

	rep := &Report{
		ID:       uuid.New(),
		Region:   region,
		Provider: s.invoker.Provider(),
	}

	req.Status(StatusAnalyzing)

	if p := policy.For(region); p.Tools.Active() || len(p.Connectors) > 0 {
		req.Status(p.SearchStatus)
	}
	gathered := s.gatherer.Gather(ctx, region, req.Description())
	rep.Evidence = gathered.Evidence

	compiled, err := prompt.Compile(req, gathered.Evidence, gathered.Instructions, gathered.Tools)
	if err != nil {
		return nil, s.fail(ctx, rep, start, err)
	}

	req.Status(StatusConsulting)
	out, err := s.invoker.Invoke(ctx, compiled)
	if err != nil {
		return nil, s.fail(ctx, rep, start, err)
	}
	rep.Citations = out.Citations

	req.Status(StatusSynthesizing)
	parsed, err := s.parser.Parse(out.Text)
	if err != nil {
		return nil, s.fail(ctx, rep, start, err)
	}

	rep.Result = postprocess.Apply(parsed, gathered.Tools)
	rep.Elapsed = time.Since(start)

	log.Info().
		Str("classification_id", rep.ID.String()).
		Str("hs_code", rep.Result.HSCode).
		Str("source", string(rep.Result.Source)).
		Int("confidence", rep.Result.ConfidenceScore).
		Int("fragments", len(rep.Evidence.Fragments)).
		Dur("elapsed", rep.Elapsed).
		Msg("Classification complete")

	s.audit(ctx, rep, nil)
	return rep, nil
}

func (s *Service) fail(ctx context.Context, rep *Report, start time.Time, err error) error {
	rep.Elapsed = time.Since(start)
	s.logger.WithContext(ctx).WithRegion(string(rep.Region)).Error().
		Str("classification_id", rep.ID.String()).
		Dur("elapsed", rep.Elapsed).
		Err(err).
		Msg("Classification failed")

	s.audit(ctx, rep, err)
	return &domain.ClassificationError{Region: rep.Region, Err: err}
}

func (s *Service) audit(ctx context.Context, rep *Report, err error) {
	if s.auditor == nil {
		return
	}
	event := AuditEvent(rep, s.channel, false)
	if err != nil {
		event.Error = err.Error()
	}
	s.auditor.LogClassification(ctx, event)
}

// AuditEvent converts a report into an audit event.
func AuditEvent(rep *Report, channel string, cached bool) monitoring.ClassificationEvent {
	event := monitoring.ClassificationEvent{
		ID:        rep.ID,
		Region:    string(rep.Region),
		Provider:  rep.Provider,
		Channel:   channel,
		Citations: len(rep.Citations),
		Cached:    cached,
		LatencyMs: rep.Elapsed.Milliseconds(),
	}
	for _, o := range rep.Evidence.Outcomes {
		event.Evidence = append(event.Evidence, string(o.Connector)+"="+string(o.Outcome))
	}
	if rep.Result != nil {
		event.HSCode = rep.Result.HSCode
		event.Source = string(rep.Result.Source)
		event.Confidence = rep.Result.ConfidenceScore
	}
	return event
}
