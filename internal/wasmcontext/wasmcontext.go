// Package wasmcontext carries the per-call context of a compiler guest.
//
// The host attaches a request id and the caller's deadline to every
// sc_compile and sc_disassemble request. Inside the guest, Enter turns that
// back into a context.Context and makes it the scope of the call, so code
// that logs without a context (slog.Info and friends) is still tagged with
// the request it runs for.
package wasmcontext

import (
	stdcontext "context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/modanna/ShaderConductor/wireformat"
)

type contextKey string

// RequestIDKey is the context key for the request id.
const RequestIDKey contextKey = "request_id"

// scope is the context of the export call in progress. A guest instance is
// single threaded, so there is at most one.
var scope = struct {
	ctx stdcontext.Context
	sync.RWMutex
}{}

// WithRequestID returns ctx tagged with id.
func WithRequestID(ctx stdcontext.Context, id string) stdcontext.Context {
	return stdcontext.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// EnsureRequestID returns ctx unchanged if it already carries a request id
// and a copy tagged with a fresh one otherwise.
func EnsureRequestID(ctx stdcontext.Context) (stdcontext.Context, string) {
	if id := RequestID(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// NewRequestID returns a random 16 character hex id.
func NewRequestID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Enter opens the scope of one export call from its wire context. The
// returned function closes the scope and cancels the context; it must be
// called before the export returns.
func Enter(wire wireformat.ContextWire) (stdcontext.Context, func()) {
	ctx, cancel := WireToContext(stdcontext.Background(), wire)

	scope.Lock()
	scope.ctx = ctx
	scope.Unlock()

	return ctx, func() {
		scope.Lock()
		scope.ctx = nil
		scope.Unlock()
		cancel()
	}
}

// Current returns the context of the export call in progress, or
// context.Background() outside of one.
func Current() stdcontext.Context {
	scope.RLock()
	defer scope.RUnlock()
	if scope.ctx == nil {
		return stdcontext.Background()
	}
	return scope.ctx
}

// Resolve returns ctx when it carries a request id and the current call
// scope otherwise.
func Resolve(ctx stdcontext.Context) stdcontext.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return Current()
}

// ContextToWire captures the deadline, cancellation and request id of ctx.
func ContextToWire(ctx stdcontext.Context) wireformat.ContextWire {
	wire := wireformat.ContextWire{RequestID: RequestID(ctx)}

	if deadline, ok := ctx.Deadline(); ok {
		wire.Deadline = &deadline
		if timeout := time.Until(deadline); timeout > 0 {
			wire.TimeoutMs = timeout.Milliseconds()
		}
	}
	wire.Canceled = ctx.Err() != nil
	return wire
}

// WireToContext rebuilds a context from wire under parent (Background if
// nil). An absolute deadline wins over TimeoutMs.
func WireToContext(parent stdcontext.Context, wire wireformat.ContextWire) (stdcontext.Context, stdcontext.CancelFunc) {
	if parent == nil {
		parent = stdcontext.Background()
	}

	var (
		ctx    stdcontext.Context
		cancel stdcontext.CancelFunc
	)
	switch {
	case wire.Deadline != nil:
		ctx, cancel = stdcontext.WithDeadline(parent, *wire.Deadline)
	case wire.TimeoutMs > 0:
		ctx, cancel = stdcontext.WithTimeout(parent, time.Duration(wire.TimeoutMs)*time.Millisecond)
	default:
		ctx, cancel = stdcontext.WithCancel(parent)
	}

	if wire.RequestID != "" {
		ctx = WithRequestID(ctx, wire.RequestID)
	}
	if wire.Canceled {
		cancel()
	}
	return ctx, cancel
}
