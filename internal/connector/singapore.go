package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spherical/hs-classifier/internal/observability"
)

const singaporeDatabase = "Singapore TradeNet / AHTN (data.gov.sg)"

// NewSingapore creates the data.gov.sg datastore connector for the AHTN
// tariff dataset.
func NewSingapore(cfg Config, logger *observability.Logger) Connector {
	c := &httpConnector{
		name:     NameSingapore,
		database: singaporeDatabase,
		cfg:      cfg,
		logger:   logger,
		decode:   decodeSingapore,
		ready:    func() bool { return strings.TrimSpace(cfg.ResourceID) != "" },
	}
	c.build = func(ctx context.Context, query string) (*http.Request, error) {
		params := url.Values{}
		params.Set("resource_id", cfg.ResourceID)
		params.Set("q", query)
		params.Set("limit", strconv.Itoa(c.maxRecords()))
		endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/api/action/datastore_search?" + params.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}
	return c
}

type singaporeResponse struct {
	Success *bool `json:"success"`
	Result  *struct {
		Records []json.RawMessage `json:"records"`
	} `json:"result"`
}

func decodeSingapore(body []byte, max int) ([]json.RawMessage, bool) {
	var resp singaporeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	if resp.Success == nil || !*resp.Success || resp.Result == nil {
		return nil, false
	}
	return truncate(resp.Result.Records, max), true
}
