// Package registry keeps the compiler backends a host can open, together
// with the JSON schemas of their options.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates).
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

type entry struct {
	factory ports.BackendFactory
	schema  string
	checker *validator.Schema
}

// Registry implements ports.BackendRegistry.
type Registry struct {
	config  registryConfig
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg, entries: make(map[string]entry)}
}

var _ ports.BackendRegistry = (*Registry)(nil)

// Register adds a backend whose options are described by the Go struct
// options.
func (r *Registry) Register(name string, options any, factory ports.BackendFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("backend registration needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists && r.config.strictMode {
		return fmt.Errorf("backend %q already registered", name)
	}

	reflector := jsonschema.Reflector{ExpandedStruct: true}
	data, err := json.Marshal(reflector.Reflect(options))
	if err != nil {
		return &domainerrors.SchemaError{Type: name, Err: err}
	}

	c := validator.NewCompiler()
	url := name + ".options.json"
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return &domainerrors.SchemaError{Type: name, Err: err}
	}
	checker, err := c.Compile(url)
	if err != nil {
		return &domainerrors.SchemaError{Type: name, Err: err}
	}

	r.entries[name] = entry{factory: factory, schema: string(data), checker: checker}
	return nil
}

// Open validates options against the backend's schema and opens it.
func (r *Registry) Open(ctx context.Context, name string, options json.RawMessage) (ports.Backend, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, r.List())
	}

	if len(bytes.TrimSpace(options)) == 0 {
		options = json.RawMessage("{}")
	}
	var doc any
	if err := json.Unmarshal(options, &doc); err != nil {
		return nil, &domainerrors.SchemaError{Type: name, Err: fmt.Errorf("options are not JSON: %w", err)}
	}
	if err := e.checker.Validate(doc); err != nil {
		return nil, &domainerrors.SchemaError{Type: name, Err: err}
	}
	return e.factory(ctx, options)
}

// GetSchema retrieves the JSON Schema for a backend's options.
func (r *Registry) GetSchema(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.schema, ok
}

// List returns all registered backend names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
