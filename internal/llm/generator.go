// Package llm invokes the classification model.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/spherical/hs-classifier/internal/observability"
	"github.com/spherical/hs-classifier/internal/prompt"
)

// Citation is a grounding source reported by the model provider.
type Citation struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// Output is the raw model reply. Text is empty when the provider returned
// no text payload at all.
type Output struct {
	Text      string
	Citations []Citation
	Model     string
}

// Generator sends one compiled request to a model provider.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req *prompt.Request) (*Output, error)
}

// Options configures a generator.
type Options struct {
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *observability.Logger
}

// Factory builds a generator from options.
type Factory func(opts Options) (Generator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a generator available by name. It panics on duplicates.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("llm: generator %q registered twice", name))
	}
	registry[name] = f
}

// New builds the named generator.
func New(name string, opts Options) (Generator, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model provider %q (available: %v)", name, Providers())
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return f(opts)
}

// Providers lists registered generator names.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
