package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/llm"
	"github.com/spherical/hs-classifier/internal/observability"
)

// 1x1 transparent PNG.
var pixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "pixel.png")
	require.NoError(t, os.WriteFile(png, pixelPNG, 0o600))
	img, err := loadImage(png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	raw, mimeType, err := img.Decode()
	require.NoError(t, err)
	assert.Equal(t, pixelPNG, raw)
	assert.Equal(t, "image/png", mimeType)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("just text"), 0o600))
	_, err = loadImage(txt)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	_, err = loadImage(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestBuildInput(t *testing.T) {
	in, err := buildInput("  headphones ", "ksa", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RegionSaudiArabia, in.Region)
	assert.Equal(t, "headphones", in.Description)
	assert.Nil(t, in.Image)

	_, err = buildInput("headphones", "Atlantis", "")
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func stubConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.DefaultConfig()
	c.Model.Provider = llm.ProviderStub
	c.Cache.Driver = "memory"
	c.Cache.TTL = time.Minute
	c.Storage.Driver = "sqlite"
	c.Storage.SQLite.Path = filepath.Join(t.TempDir(), "history.db")
	c.Storage.SQLite.MaxOpenConns = 1
	c.Connectors.Singapore.Token = ""
	c.Connectors.UAE.Token = ""
	c.Connectors.SaudiArabia.Token = ""
	return c
}

func TestApp_ClassifyAndSaveHistory(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, stubConfig(t), observability.NewNopLogger(), "cli")
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.store)
	assert.True(t, a.results.Enabled())
	assert.Nil(t, a.redis)
	assert.Equal(t, llm.ProviderStub, a.invoker.Provider())

	input := classifyInput{Description: "Wireless Bluetooth Headphones", Region: domain.RegionSingapore}
	req, err := domain.NewClassificationRequest(input.Description, input.Region, nil, nil)
	require.NoError(t, err)

	rep, err := a.service.Classify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "8518.30.20", rep.Result.HSCode)

	a.saveHistory(ctx, input, rep)
	records, err := a.store.History.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rep.ID, records[0].ID)

	view := reportJSON(rep)
	assert.Equal(t, rep.ID.String(), view.ID)
	assert.Equal(t, []string{"singapore=skipped"}, view.Evidence)
	assert.NotNil(t, view.Citations)
}

func TestApp_UnknownProvider(t *testing.T) {
	c := stubConfig(t)
	c.Model.Provider = "nope"
	_, err := newApp(context.Background(), c, observability.NewNopLogger(), "cli")
	assert.ErrorContains(t, err, "unknown model provider")
}
