package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/hs-classifier/internal/policy"
	"github.com/spherical/hs-classifier/internal/prompt"
)

func newTestOpenRouter(t *testing.T, url string) Generator {
	t.Helper()
	gen, err := New(ProviderOpenRouter, Options{APIKey: "sk-or-test", BaseURL: url})
	require.NoError(t, err)
	return gen
}

func TestOpenRouter_Generate(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "gen-1",
			"model": "google/gemini-2.5-flash",
			"choices": [{"message": {"role": "assistant", "content": "{\"hsCode\":\"8518.30\"}",
				"annotations": [{"type": "url_citation", "url_citation": {"url": "https://www.customs.gov.sg", "title": "Singapore Customs"}}]}}]
		}`)
	}))
	defer srv.Close()

	req := &prompt.Request{
		Parts: []prompt.Part{
			{Image: &prompt.ImageData{MIMEType: "image/png", Data: []byte("png")}},
			{Text: "classify headphones"},
		},
		SystemInstruction: "be precise",
		Temperature:       0.1,
		Tools:             policy.ToolSelection{WebSearch: true},
	}

	out, err := newTestOpenRouter(t, srv.URL).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"hsCode":"8518.30"}`, out.Text)
	assert.Equal(t, "google/gemini-2.5-flash", out.Model)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "https://www.customs.gov.sg", out.Citations[0].URI)

	assert.Equal(t, defaultOpenRouterModel, got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.1, got.Temperature, 0.0001)
	require.Len(t, got.Plugins, 1)
	assert.Equal(t, "web", got.Plugins[0].ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	user := got.Messages[1]
	require.Len(t, user.Content, 2)
	assert.Equal(t, "image_url", user.Content[0].Type)
	assert.Equal(t, "data:image/png;base64,cG5n", user.Content[0].ImageURL.URL)
	assert.Equal(t, "classify headphones", user.Content[1].Text)
}

func TestOpenRouter_NoSearchPlugin(t *testing.T) {
	c := &openRouterClient{model: "m"}
	body := c.buildRequest(&prompt.Request{Parts: []prompt.Part{{Text: "x"}}})
	assert.Empty(t, body.Plugins)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
}

func TestOpenRouter_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestOpenRouter(t, srv.URL).Generate(context.Background(), &prompt.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenRouter_NullContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":null}}]}`)
	}))
	defer srv.Close()

	out, err := newTestOpenRouter(t, srv.URL).Generate(context.Background(), &prompt.Request{})
	require.NoError(t, err)
	assert.Empty(t, out.Text)
}
