// Package log provides a slog handler for compiler guests. Records are
// encoded as wireformat.LogMessageWire and handed to the host's
// sc_host.log_message import; outside WASM they are written as JSON lines.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	wasmcontext "github.com/modanna/ShaderConductor/internal/wasmcontext"
	"github.com/modanna/ShaderConductor/wireformat"
)

// GuestHandler implements slog.Handler for code running inside a guest.
type GuestHandler struct {
	attrs  []wireformat.LogAttrWire
	groups []string
	opts   handlerConfig
}

// HandlerOption configures the GuestHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	output    io.Writer
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		output: os.Stderr,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithOutput sets where records go when not running under WASM.
func WithOutput(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		if w != nil {
			c.output = w
		}
	}
}

// NewHandler creates a new GuestHandler with the given options.
func NewHandler(opts ...HandlerOption) *GuestHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GuestHandler{opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *GuestHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a handler that adds attrs, qualified by the open
// groups, to every record.
func (h *GuestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	for _, a := range attrs {
		clone.attrs = appendFlat(clone.attrs, h.groups, a)
	}
	return clone
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *GuestHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *GuestHandler) clone() *GuestHandler {
	return &GuestHandler{
		opts:   h.opts,
		attrs:  append([]wireformat.LogAttrWire(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// encode builds the wire form of a record. A ctx without a request id,
// such as the Background passed by slog.Info, falls back to the scope of
// the export call in progress.
func (h *GuestHandler) encode(ctx context.Context, record slog.Record) ([]byte, error) {
	msg := wireformat.LogMessageWire{
		Context:   wasmcontext.ContextToWire(wasmcontext.Resolve(ctx)),
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}

	msg.Attrs = append(msg.Attrs, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		msg.Attrs = appendFlat(msg.Attrs, h.groups, a)
		return true
	})

	if h.opts.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		msg.Attrs = append(msg.Attrs, wireformat.LogAttrWire{
			Key:   slog.SourceKey,
			Type:  "string",
			Value: fmt.Sprintf("%s:%d", frame.File, frame.Line),
		})
	}

	return json.Marshal(msg)
}

// appendFlat flattens group attributes into dotted keys.
func appendFlat(dst []wireformat.LogAttrWire, groups []string, a slog.Attr) []wireformat.LogAttrWire {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := a.Value.Group()
		if len(inner) == 0 {
			return dst
		}
		if a.Key != "" {
			groups = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range inner {
			dst = appendFlat(dst, groups, ga)
		}
		return dst
	}
	if a.Equal(slog.Attr{}) {
		return dst
	}
	return append(dst, toLogAttrWire(qualify(groups, a)))
}

func qualify(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		return a
	}
	a.Key = strings.Join(groups, ".") + "." + a.Key
	return a
}
