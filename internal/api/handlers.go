package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spherical/hs-classifier/internal/cache"
	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/policy"
	"github.com/spherical/hs-classifier/internal/storage"
)

// auditChannel tags audit events raised by this surface.
const auditChannel = "api"

// failureMessage is shown for every pipeline failure; details go to the log.
const failureMessage = "Failed to classify product. Please try again or provide more details."

type handler struct {
	deps   Deps
	logger *observability.Logger
}

func newHandler(deps Deps) *handler {
	return &handler{deps: deps, logger: deps.Logger.WithOperation("api")}
}

// ClassifyRequest is the request body for POST /api/v1/classify.
type ClassifyRequest struct {
	Description string        `json:"description"`
	Region      string        `json:"region"`
	Image       *domain.Image `json:"image,omitempty"`
}

// EvidenceDTO reports one connector's outcome.
type EvidenceDTO struct {
	Connector string `json:"connector"`
	Outcome   string `json:"outcome"`
	Matches   int    `json:"matches"`
}

// ClassifyResponse is the response body for POST /api/v1/classify.
type ClassifyResponse struct {
	ID        string                       `json:"id"`
	Region    string                       `json:"region"`
	Result    *domain.ClassificationResult `json:"result"`
	Statuses  []string                     `json:"statuses"`
	Evidence  []EvidenceDTO                `json:"evidence"`
	Citations []llm.Citation               `json:"citations"`
	Provider  string                       `json:"provider,omitempty"`
	Cached    bool                         `json:"cached"`
	LatencyMs int64                        `json:"latencyMs"`
}

// RegionDTO describes one supported jurisdiction.
type RegionDTO struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	WebSearch      bool     `json:"webSearch"`
	LiveConnectors []string `json:"liveConnectors"`
	SearchStatus   string   `json:"searchStatus"`
}

// HistoryResponse is the response body for GET /api/v1/history.
type HistoryResponse struct {
	Items []storage.Record `json:"items"`
	Count int              `json:"count"`
}

// Classify handles POST /api/v1/classify.
func (h *handler) Classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)
	var body ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	region, err := domain.ParseRegion(body.Region)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region", err.Error())
		return
	}

	var statuses []string
	req, err := domain.NewClassificationRequest(body.Description, region, body.Image, func(s string) {
		statuses = append(statuses, s)
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid classification request", err.Error())
		return
	}

	key := cache.ResultKey(region, req.Description(), req.Image())
	start := time.Now()
	if cached, err := h.deps.Cache.Get(ctx, key); err == nil {
		rep := &classifier.Report{
			ID:       uuid.New(),
			Region:   region,
			Result:   cached,
			Provider: h.deps.Provider,
			Elapsed:  time.Since(start),
		}
		h.audit(r, rep, true)
		log.Debug().Str("classification_id", rep.ID.String()).Msg("Served cached classification")
		writeJSON(w, http.StatusOK, toResponse(rep, nil, true))
		return
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Msg("Result cache read failed")
	}

	rep, err := h.deps.Classifier.Classify(ctx, req)
	if err != nil {
		var cerr *domain.ClassificationError
		switch {
		case domain.IsType(err, domain.ErrorTypeValidation):
			writeError(w, http.StatusBadRequest, "invalid classification request", err.Error())
		case errors.As(err, &cerr):
			writeError(w, http.StatusBadGateway, failureMessage, "")
		default:
			writeError(w, http.StatusInternalServerError, failureMessage, "")
		}
		return
	}

	if err := h.deps.Cache.Put(ctx, key, rep.Result); err != nil {
		log.Warn().Err(err).Msg("Result cache write failed")
	}
	if h.deps.History != nil {
		rec := &storage.Record{
			ID:          rep.ID,
			Region:      region,
			Description: req.Description(),
			HasImage:    req.Image() != nil,
			Provider:    rep.Provider,
			Result:      rep.Result,
		}
		if err := h.deps.History.Save(ctx, rec); err != nil {
			log.Warn().Err(err).Str("classification_id", rep.ID.String()).Msg("Failed to save history")
		}
	}

	writeJSON(w, http.StatusOK, toResponse(rep, statuses, false))
}

// Regions handles GET /api/v1/regions.
func (h *handler) Regions(w http.ResponseWriter, r *http.Request) {
	regions := domain.AllRegions()
	out := make([]RegionDTO, 0, len(regions))
	for _, region := range regions {
		p := policy.For(region)
		dto := RegionDTO{
			Code:           string(region),
			Name:           region.DisplayName(),
			WebSearch:      p.Tools.WebSearch,
			LiveConnectors: []string{},
			SearchStatus:   p.SearchStatus,
		}
		for _, c := range p.Connectors {
			dto.LiveConnectors = append(dto.LiveConnectors, string(c))
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// History handles GET /api/v1/history.
func (h *handler) History(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled", "configure storage.driver to enable it")
		return
	}

	limit := storage.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", err.Error())
			return
		}
		limit = n
	}

	records, err := h.deps.History.List(r.Context(), storage.ClampLimit(limit))
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Failed to list history")
		writeError(w, http.StatusInternalServerError, "failed to list history", "")
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: records, Count: len(records)})
}

// HistoryItem handles GET /api/v1/history/{id}.
func (h *handler) HistoryItem(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled", "configure storage.driver to enable it")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", err.Error())
		return
	}

	rec, err := h.deps.History.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "classification not found", "")
		return
	}
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Str("classification_id", id.String()).Msg("Failed to load history record")
		writeError(w, http.StatusInternalServerError, "failed to load classification", "")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Health handles GET /health.
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  "hs-classifier",
		"provider": h.deps.Provider,
	})
}

// Ready handles GET /ready.
func (h *handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) audit(r *http.Request, rep *classifier.Report, cached bool) {
	if h.deps.Auditor == nil {
		return
	}
	h.deps.Auditor.LogClassification(r.Context(), classifier.AuditEvent(rep, auditChannel, cached))
}

func toResponse(rep *classifier.Report, statuses []string, cached bool) ClassifyResponse {
	resp := ClassifyResponse{
		ID:        rep.ID.String(),
		Region:    string(rep.Region),
		Result:    rep.Result,
		Statuses:  statuses,
		Evidence:  []EvidenceDTO{},
		Citations: rep.Citations,
		Provider:  rep.Provider,
		Cached:    cached,
		LatencyMs: rep.Elapsed.Milliseconds(),
	}
	if resp.Statuses == nil {
		resp.Statuses = []string{}
	}
	if resp.Citations == nil {
		resp.Citations = []llm.Citation{}
	}
	for _, o := range rep.Evidence.Outcomes {
		resp.Evidence = append(resp.Evidence, EvidenceDTO{
			Connector: string(o.Connector),
			Outcome:   string(o.Outcome),
			Matches:   o.Matches,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
