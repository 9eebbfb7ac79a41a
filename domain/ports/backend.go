package ports

import (
	"context"
	"encoding/json"
)

// Backend is a Compiler holding resources that must be released.
type Backend interface {
	Compiler
	Close(ctx context.Context) error
}

// BackendFactory opens a backend from its JSON options. Options may be
// empty, meaning all defaults.
type BackendFactory func(ctx context.Context, options json.RawMessage) (Backend, error)

// BackendRegistry maps backend names to factories and option schemas.
type BackendRegistry interface {
	// Register adds a backend. options is a zero value of the backend's
	// options struct; its JSON schema validates options passed to Open.
	Register(name string, options any, factory BackendFactory) error

	// Open validates options and creates the named backend.
	Open(ctx context.Context, name string, options json.RawMessage) (Backend, error)

	// GetSchema returns the JSON schema of the backend's options.
	GetSchema(name string) (string, bool)

	// List returns the registered names in sorted order.
	List() []string
}

// NopBackend adapts a Compiler without resources to Backend.
func NopBackend(c Compiler) Backend {
	return nopBackend{c}
}

type nopBackend struct {
	Compiler
}

func (nopBackend) Close(context.Context) error { return nil }
