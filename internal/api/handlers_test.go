package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/hs-classifier/internal/cache"
	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/connector"
	"github.com/spherical/hs-classifier/internal/evidence"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/monitoring"
	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/storage"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []monitoring.ClassificationEvent
}

func (a *recordingAuditor) LogClassification(_ context.Context, ev monitoring.ClassificationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) snapshot() []monitoring.ClassificationEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]monitoring.ClassificationEvent(nil), a.events...)
}

type testEnv struct {
	handler http.Handler
	stub    *llm.Stub
	auditor *recordingAuditor
	history *storage.HistoryRepository
}

func newTestEnv(t *testing.T, gen *llm.Stub, mutate func(*Deps)) *testEnv {
	t.Helper()
	logger := observability.NewNopLogger()

	agg := evidence.NewAggregator(connector.NewRegistry(config.DefaultConfig().Connectors, nil, logger), logger)
	svc := classifier.NewService(agg, llm.NewInvoker(gen, 0, logger), logger)

	mem := cache.NewMemoryClient(100)
	t.Cleanup(func() { _ = mem.Close() })

	store, err := storage.Open(context.Background(), config.StorageConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auditor := &recordingAuditor{}
	deps := Deps{
		Logger:     logger,
		Classifier: svc,
		Provider:   llm.ProviderStub,
		Cache:      cache.NewResultCache(mem, time.Hour),
		History:    store.History,
		Auditor:    auditor,
		Ready:      store.Ping,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testEnv{handler: NewRouter(deps), stub: gen, auditor: auditor, history: store.History}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestClassify_Success(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)

	rec := env.do(t, http.MethodPost, "/api/v1/classify", ClassifyRequest{
		Description: "Wireless Bluetooth Headphones",
		Region:      "Singapore",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ClassifyResponse](t, rec)
	assert.Equal(t, "SG", resp.Region)
	assert.False(t, resp.Cached)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "8518.30.20", resp.Result.HSCode)
	assert.Equal(t, "Live API", string(resp.Result.Source))
	assert.Equal(t, []string{
		classifier.StatusAnalyzing,
		"Searching Singapore TradeNet & AHTN...",
		classifier.StatusConsulting,
		classifier.StatusSynthesizing,
	}, resp.Statuses)
	require.Len(t, resp.Evidence, 1)
	assert.Equal(t, "singapore", resp.Evidence[0].Connector)

	records, err := env.history.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resp.ID, records[0].ID.String())
	assert.Equal(t, "Wireless Bluetooth Headphones", records[0].Description)
}

func TestClassify_SecondCallServedFromCache(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)
	body := ClassifyRequest{Description: "Wireless Bluetooth Headphones", Region: "SG"}

	first := env.do(t, http.MethodPost, "/api/v1/classify", body, nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(t, http.MethodPost, "/api/v1/classify", body, nil)
	require.Equal(t, http.StatusOK, second.Code)

	resp := decode[ClassifyResponse](t, second)
	assert.True(t, resp.Cached)
	assert.Equal(t, "8518.30.20", resp.Result.HSCode)
	assert.Len(t, env.stub.Requests(), 1)

	events := env.auditor.snapshot()
	require.Len(t, events, 1)
	assert.True(t, events[0].Cached)
	assert.Equal(t, auditChannel, events[0].Channel)
}

func TestClassify_BadRequests(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), func(d *Deps) { d.MaxBodyBytes = 256 })

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", "{not json", http.StatusBadRequest},
		{"unknown region", ClassifyRequest{Description: "bolts", Region: "Atlantis"}, http.StatusBadRequest},
		{"no description or image", ClassifyRequest{Description: "   ", Region: "SG"}, http.StatusBadRequest},
		{"bad image", map[string]any{"region": "SG", "image": map[string]string{"data": "%%%"}}, http.StatusBadRequest},
		{"too large", ClassifyRequest{Description: strings.Repeat("x", 1024), Region: "SG"}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/classify", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["message"])
		})
	}
	assert.Empty(t, env.stub.Requests())
}

func TestClassify_ModelFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t, llm.NewFailingStub(errors.New("upstream 500: secret internals")), nil)

	rec := env.do(t, http.MethodPost, "/api/v1/classify", ClassifyRequest{Description: "bolts", Region: "UAE"}, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, failureMessage, body["message"])
	assert.NotContains(t, rec.Body.String(), "secret internals")

	records, err := env.history.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClassify_UnparseableReply(t *testing.T) {
	env := newTestEnv(t, llm.NewStub("I think it is probably a headphone."), nil)
	rec := env.do(t, http.MethodPost, "/api/v1/classify", ClassifyRequest{Description: "headphones", Region: "US"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegions(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/regions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	regions := decode[[]RegionDTO](t, rec)
	require.NotEmpty(t, regions)
	assert.Equal(t, "SG", regions[0].Code)
	assert.Equal(t, []string{"singapore"}, regions[0].LiveConnectors)
	for _, r := range regions {
		assert.NotEmpty(t, r.Name)
		assert.NotNil(t, r.LiveConnectors)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)
	for _, d := range []string{"headphones", "earbuds", "speaker"} {
		rec := env.do(t, http.MethodPost, "/api/v1/classify", ClassifyRequest{Description: d, Region: "SG"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/history?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HistoryResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	for _, item := range resp.Items {
		assert.Equal(t, "8518.30.20", item.HSCode)
		assert.Equal(t, llm.ProviderStub, item.Provider)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/history?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryItem(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)
	rec := env.do(t, http.MethodPost, "/api/v1/classify", ClassifyRequest{Description: "headphones", Region: "SG"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[ClassifyResponse](t, rec).ID

	rec = env.do(t, http.MethodGet, "/api/v1/history/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[storage.Record](t, rec)
	assert.Equal(t, id, got.ID.String())
	assert.Equal(t, "8518.30.20", got.Result.HSCode)

	rec = env.do(t, http.MethodGet, "/api/v1/history/00000000-0000-4000-8000-000000000000", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/history/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_Disabled(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), func(d *Deps) { d.History = nil })
	rec := env.do(t, http.MethodGet, "/api/v1/history", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, llm.NewStub(llm.StubResponse), nil)

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])

	rec = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestEnv(t, llm.NewStub(llm.StubResponse), func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("database unreachable") }
	})
	rec = failing.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
