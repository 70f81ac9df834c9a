// Package evidence gathers live tariff data for a request before the model is called.
package evidence

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/hs-classifier/internal/connector"
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/policy"
)

// Fragment is one connector's contribution to the evidence context.
type Fragment struct {
	Connector connector.Name
	Text      string
}

// Context is the evidence accumulated for one request.
type Context struct {
	Fragments []Fragment
	Outcomes  []connector.Result
}

// Text returns the merged evidence blob; empty means nothing was found.
func (c Context) Text() string {
	parts := make([]string, 0, len(c.Fragments))
	for _, f := range c.Fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether no connector contributed evidence.
func (c Context) Empty() bool {
	return len(c.Fragments) == 0
}

// Attempted reports whether any connector actually queried its endpoint.
func (c Context) Attempted() bool {
	for _, o := range c.Outcomes {
		if o.Outcome != connector.OutcomeSkipped {
			return true
		}
	}
	return false
}

// Gathered is everything the prompt compiler needs from the policy phase.
type Gathered struct {
	Policy       policy.Policy
	Evidence     Context
	Instructions string
	Tools        policy.ToolSelection
}

// Aggregator selects connectors by region policy and merges their results.
type Aggregator struct {
	connectors connector.Registry
	logger     *observability.Logger
}

// NewAggregator creates an aggregator over the given connectors.
func NewAggregator(connectors connector.Registry, logger *observability.Logger) *Aggregator {
	return &Aggregator{
		connectors: connectors,
		logger:     logger.WithOperation("evidence"),
	}
}

// Gather resolves the region policy and runs its live connectors. It never
// fails: connector problems leave the evidence empty or partial.
func (a *Aggregator) Gather(ctx context.Context, region domain.Region, query string) Gathered {
	p := policy.For(region)
	out := Gathered{
		Policy:       p,
		Instructions: p.Instructions(),
		Tools:        p.Tools,
	}

	conns := a.connectors.Lookup(p.Connectors)
	if len(conns) == 0 {
		return out
	}

	start := time.Now()
	results := make([]connector.Result, len(conns))

	// Goroutines only write their own slot and always return nil, so Wait
	// is a barrier rather than an error path.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range conns {
		g.Go(func() error {
			results[i] = connector.Safe(gctx, c, query)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		out.Evidence.Outcomes = append(out.Evidence.Outcomes, res)
		if res.Contributed() {
			out.Evidence.Fragments = append(out.Evidence.Fragments, Fragment{
				Connector: res.Connector,
				Text:      res.Evidence,
			})
		}
	}

	log := a.logger.WithContext(ctx).WithRegion(string(region))
	outcomes := make([]string, 0, len(results))
	for _, res := range results {
		outcomes = append(outcomes, string(res.Connector)+"="+string(res.Outcome))
	}
	log.Info().
		Strs("outcomes", outcomes).
		Int("fragments", len(out.Evidence.Fragments)).
		Dur("elapsed", time.Since(start)).
		Msg("Evidence gathered")

	return out
}
