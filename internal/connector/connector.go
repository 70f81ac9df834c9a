// Package connector implements the per-jurisdiction live tariff lookups.
//
// Connectors never return errors: every failure is folded into a Result with
// an Outcome and empty evidence, so callers cannot abort on a lookup problem.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/spherical/hs-classifier/internal/fetch"
	"github.com/spherical/hs-classifier/internal/observability"
)

// Name identifies a connector.
type Name string

const (
	NameSingapore   Name = "singapore"
	NameUAE         Name = "uae"
	NameSaudiArabia Name = "saudi_arabia"
)

// DefaultMaxRecords caps how many matched records are embedded in evidence.
const DefaultMaxRecords = 3

// Outcome classifies how a lookup ended.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeAuthError    Outcome = "auth_error"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeMaintenance  Outcome = "maintenance"
	OutcomeHTTPError    Outcome = "http_error"
	OutcomeMalformed    Outcome = "malformed"
	OutcomePanic        Outcome = "panic"
)

// Result is what a connector reports for one query.
type Result struct {
	Connector  Name
	Outcome    Outcome
	Evidence   string
	Matches    int
	StatusCode int
	Err        error
	Latency    time.Duration
}

// Contributed reports whether the lookup produced usable evidence.
func (r Result) Contributed() bool {
	return r.Outcome == OutcomeOK && r.Evidence != ""
}

// Connector looks up live tariff data for one jurisdiction.
type Connector interface {
	Name() Name
	Fetch(ctx context.Context, query string) Result
}

// Config configures an HTTP connector.
type Config struct {
	BaseURL    string
	Token      string
	ResourceID string
	MaxRecords int
	Timeout    time.Duration
	Client     fetch.Doer
}

// decodeFunc turns a JSON body into at most max records. ok=false means the
// body did not have the expected shape.
type decodeFunc func(body []byte, max int) (records []json.RawMessage, ok bool)

// httpConnector holds the behaviour shared by every JSON tariff endpoint.
type httpConnector struct {
	name     Name
	database string
	cfg      Config
	logger   *observability.Logger
	build    func(ctx context.Context, query string) (*http.Request, error)
	decode   decodeFunc
	// ready reports whether connector-specific settings allow a lookup.
	ready func() bool
}

func (c *httpConnector) Name() Name { return c.name }

func (c *httpConnector) Fetch(ctx context.Context, query string) Result {
	start := time.Now()
	res := c.fetch(ctx, query)
	res.Connector = c.name
	res.Latency = time.Since(start)

	evt := c.logger.Debug()
	if res.Outcome != OutcomeOK && res.Outcome != OutcomeNoMatch && res.Outcome != OutcomeSkipped {
		evt = c.logger.Warn()
	}
	evt.Str("connector", string(c.name)).
		Str("outcome", string(res.Outcome)).
		Int("status", res.StatusCode).
		Int("matches", res.Matches).
		Dur("latency", res.Latency).
		Err(res.Err).
		Msg("Live tariff lookup finished")

	return res
}

func (c *httpConnector) fetch(ctx context.Context, query string) Result {
	if !c.configured() {
		return Result{Outcome: OutcomeSkipped}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Outcome: OutcomeNoMatch}
	}

	req, err := c.build(ctx, query)
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := fetch.Do(ctx, c.cfg.Client, req, c.cfg.Timeout)
	if err != nil {
		if errors.Is(err, fetch.ErrTimeout) {
			return Result{Outcome: OutcomeTimeout, Err: err}
		}
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}

	if outcome := classifyStatus(resp.StatusCode); outcome != OutcomeOK {
		return Result{
			Outcome:    outcome,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s returned HTTP %d", c.database, resp.StatusCode),
		}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return Result{
			Outcome:    OutcomeMalformed,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")),
		}
	}

	records, ok := c.decode(resp.Body, c.maxRecords())
	if !ok {
		return Result{
			Outcome:    OutcomeMalformed,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response does not match the expected shape"),
		}
	}
	if len(records) == 0 {
		return Result{Outcome: OutcomeNoMatch, StatusCode: resp.StatusCode}
	}

	compact, err := json.Marshal(records)
	if err != nil {
		return Result{Outcome: OutcomeMalformed, StatusCode: resp.StatusCode, Err: err}
	}

	return Result{
		Outcome:    OutcomeOK,
		StatusCode: resp.StatusCode,
		Matches:    len(records),
		Evidence:   fmt.Sprintf("Found %d matching record(s) in %s: %s", len(records), c.database, compact),
	}
}

func (c *httpConnector) configured() bool {
	if strings.TrimSpace(c.cfg.Token) == "" || strings.TrimSpace(c.cfg.BaseURL) == "" {
		return false
	}
	return c.ready == nil || c.ready()
}

func (c *httpConnector) maxRecords() int {
	if c.cfg.MaxRecords <= 0 {
		return DefaultMaxRecords
	}
	return c.cfg.MaxRecords
}

// classifyStatus maps a status code to an outcome. Only 2xx is OK; the rest
// are kept apart for diagnostics and all end up as "no evidence".
func classifyStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return OutcomeOK
	case code == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return OutcomeAuthError
	case code == http.StatusServiceUnavailable:
		return OutcomeMaintenance
	default:
		return OutcomeHTTPError
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// truncate keeps each record small enough to embed in a prompt.
func truncate(records []json.RawMessage, max int) []json.RawMessage {
	if len(records) > max {
		return records[:max]
	}
	return records
}

// Safe runs c.Fetch and turns a panic into an OutcomePanic result.
func Safe(ctx context.Context, c Connector, query string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Connector: c.Name(), Outcome: OutcomePanic, Err: fmt.Errorf("connector panic: %v", r)}
		}
	}()
	return c.Fetch(ctx, query)
}
