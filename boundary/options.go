package boundary

import (
	"log/slog"

	"github.com/modanna/ShaderConductor/application/marshal"
	"github.com/modanna/ShaderConductor/scratch"
)

// Option configures a Boundary.
type Option func(*config)

type config struct {
	heap       scratch.Heap
	logger     *slog.Logger
	marshalOps []marshal.Option
	policy     scratch.Policy
}

func defaultConfig() config {
	return config{
		policy: scratch.PolicyReject,
		logger: slog.Default(),
	}
}

// WithPolicy selects what happens when a call is issued before the previous
// result was released. The default is scratch.PolicyReject.
func WithPolicy(p scratch.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithHeap sets the heap result buffers are allocated from. The default is
// a scratch.TableHeap with the default size limit.
func WithHeap(h scratch.Heap) Option {
	return func(c *config) {
		if h != nil {
			c.heap = h
		}
	}
}

// WithLogger sets the logger for misuse warnings and recovered panics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMarshalOptions passes extra options to the underlying Marshaller.
func WithMarshalOptions(opts ...marshal.Option) Option {
	return func(c *config) {
		c.marshalOps = append(c.marshalOps, opts...)
	}
}
