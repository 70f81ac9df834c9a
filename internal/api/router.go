// Package api exposes the classifier over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/spherical/hs-classifier/internal/cache"
	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/storage"
)

// Classifier runs one classification.
type Classifier interface {
	Classify(ctx context.Context, req domain.ClassificationRequest) (*classifier.Report, error)
}

// HistoryStore persists and lists classifications.
type HistoryStore interface {
	Save(ctx context.Context, rec *storage.Record) error
	List(ctx context.Context, limit int) ([]storage.Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*storage.Record, error)
}

// Deps holds everything the router needs. Cache, History, Auditor and Ready
// are optional.
type Deps struct {
	Logger         *observability.Logger
	Classifier     Classifier
	Provider       string
	Cache          *cache.ResultCache
	History        HistoryStore
	Auditor        classifier.Auditor
	Auth           config.AuthConfig
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Ready          func(ctx context.Context) error
}

// NewRouter creates the API router with all routes configured.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 10 << 20
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS([]string{"*"}))
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	h := newHandler(deps)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(deps.Auth))

		r.Post("/classify", h.Classify)
		r.Get("/regions", h.Regions)
		r.Get("/history", h.History)
		r.Get("/history/{id}", h.HistoryItem)
	})

	return r
}
