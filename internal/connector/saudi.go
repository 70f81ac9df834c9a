package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/spherical/hs-classifier/internal/observability"
)

const saudiDatabase = "ZATCA Integrated Customs Tariff"

// NewSaudiArabia creates the ZATCA tariff search connector.
func NewSaudiArabia(cfg Config, logger *observability.Logger) Connector {
	return &httpConnector{
		name:     NameSaudiArabia,
		database: saudiDatabase,
		cfg:      cfg,
		logger:   logger,
		decode:   decodeSaudi,
		build: func(ctx context.Context, query string) (*http.Request, error) {
			endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/customs/tariff/search?keyword=" + url.QueryEscape(query)
			return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		},
	}
}

type zatcaTariff struct {
	TariffCode    string `json:"tariffCode"`
	DescriptionEn string `json:"descriptionEn"`
	DutyRate      string `json:"dutyRate"`
}

func decodeSaudi(body []byte, max int) ([]json.RawMessage, bool) {
	var resp struct {
		Data *[]zatcaTariff `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data == nil {
		return nil, false
	}
	var out []json.RawMessage
	for _, t := range *resp.Data {
		if t.TariffCode == "" {
			continue
		}
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, false
		}
		out = append(out, raw)
	}
	return truncate(out, max), true
}
