package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/spherical/hs-classifier/internal/observability"
)

const uaeDatabase = "UAE Federal Customs Tariff (GCC Common External Tariff)"

// NewUAE creates the UAE federal customs tariff search connector.
func NewUAE(cfg Config, logger *observability.Logger) Connector {
	return &httpConnector{
		name:     NameUAE,
		database: uaeDatabase,
		cfg:      cfg,
		logger:   logger,
		decode:   decodeUAE,
		build: func(ctx context.Context, query string) (*http.Request, error) {
			endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/tariff/v1/search?q=" + url.QueryEscape(query)
			return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		},
	}
}

type uaeItem struct {
	HSCode      string `json:"hsCode"`
	Description string `json:"description"`
	DutyRate    string `json:"dutyRate"`
}

func decodeUAE(body []byte, max int) ([]json.RawMessage, bool) {
	var resp struct {
		Items *[]uaeItem `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Items == nil {
		return nil, false
	}
	var out []json.RawMessage
	for _, item := range *resp.Items {
		if item.HSCode == "" {
			continue
		}
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, false
		}
		out = append(out, raw)
	}
	return truncate(out, max), true
}
