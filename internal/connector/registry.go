package connector

import (
	"net/http"

	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/observability"
)

// Registry resolves connector names to instances.
type Registry map[Name]Connector

// NewRegistry builds every connector from configuration. Connectors without a
// token are still registered; they report OutcomeSkipped without calling out.
func NewRegistry(cfg config.ConnectorsConfig, client *http.Client, logger *observability.Logger) Registry {
	if client == nil {
		client = &http.Client{}
	}
	mk := func(c config.ConnectorConfig) Config {
		return Config{
			BaseURL:    c.BaseURL,
			Token:      c.Token,
			ResourceID: c.ResourceID,
			MaxRecords: c.MaxRecords,
			Timeout:    cfg.Timeout,
			Client:     client,
		}
	}
	log := logger.WithOperation("connector")
	return Registry{
		NameSingapore:   NewSingapore(mk(cfg.Singapore), log),
		NameUAE:         NewUAE(mk(cfg.UAE), log),
		NameSaudiArabia: NewSaudiArabia(mk(cfg.SaudiArabia), log),
	}
}

// Lookup returns the named connectors that exist, in the order given.
func (r Registry) Lookup(names []Name) []Connector {
	out := make([]Connector, 0, len(names))
	for _, n := range names {
		if c, ok := r[n]; ok {
			out = append(out, c)
		}
	}
	return out
}
