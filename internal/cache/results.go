package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spherical/hs-classifier/internal/domain"
)

// ResultKey identifies a classification by its inputs.
func ResultKey(region domain.Region, description string, image *domain.Image) string {
	h := sha256.New()
	h.Write([]byte(region))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(description)))
	h.Write([]byte{0})
	if image != nil {
		mimeType, payload := domain.SplitDataURI(strings.TrimSpace(image.Data))
		if image.MIMEType != "" {
			mimeType = image.MIMEType
		}
		h.Write([]byte(mimeType))
		h.Write([]byte{0})
		h.Write([]byte(payload))
	}
	return "result:" + hex.EncodeToString(h.Sum(nil))
}

// ResultCache stores classification results as JSON.
type ResultCache struct {
	client Client
	ttl    time.Duration
}

// NewResultCache wraps client. A nil client yields a cache that always misses.
func NewResultCache(client Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Enabled reports whether a backing client is configured.
func (c *ResultCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached result for key, or ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.ClassificationResult, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, err
		}
		return nil, domain.CacheError("read cached result", err)
	}
	var result domain.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.client.Delete(ctx, key)
		return nil, domain.CacheError("decode cached result", err)
	}
	return &result, nil
}

// Put stores result under key.
func (c *ResultCache) Put(ctx context.Context, key string, result *domain.ClassificationResult) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return domain.CacheError("encode result", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		return domain.CacheError("write cached result", err)
	}
	return nil
}
