package llm

import (
	"context"
	"strings"
	"time"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/prompt"
)

// Invoker performs exactly one model call per request.
type Invoker struct {
	gen     Generator
	timeout time.Duration
	logger  *observability.Logger
}

// NewInvoker wraps gen. A zero timeout leaves the deadline to the caller's context.
func NewInvoker(gen Generator, timeout time.Duration, logger *observability.Logger) *Invoker {
	return &Invoker{
		gen:     gen,
		timeout: timeout,
		logger:  logger.WithOperation("invoke"),
	}
}

// Provider returns the generator name.
func (i *Invoker) Provider() string {
	return i.gen.Name()
}

// Invoke sends req and returns the model's text. Transport failures are
// invocation errors; a reply without text wraps domain.ErrNoResponse.
func (i *Invoker) Invoke(ctx context.Context, req *prompt.Request) (*Output, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	log := i.logger.WithContext(ctx)
	start := time.Now()

	out, err := i.gen.Generate(ctx, req)
	if err != nil {
		log.Error().
			Str("provider", i.gen.Name()).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("Model call failed")
		return nil, domain.InvocationError("model call failed", err)
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		log.Warn().
			Str("provider", i.gen.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("Model returned no text")
		return nil, domain.NoResponseError("model response contained no text")
	}

	log.Debug().
		Str("provider", i.gen.Name()).
		Int("chars", len(out.Text)).
		Int("citations", len(out.Citations)).
		Dur("elapsed", time.Since(start)).
		Msg("Model call complete")
	return out, nil
}
