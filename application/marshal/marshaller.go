// Package marshal turns calls into the wrapped compiler into values. Errors
// returned by the compiler and panics raised inside it both come back as an
// Err outcome; nothing escapes to the caller.
package marshal

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/modanna/ShaderConductor/application/validation"
	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
)

const (
	opCompile     = "compile"
	opDisassemble = "disassemble"
)

// Option configures a Marshaller.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	validate bool
}

func defaultConfig() config {
	return config{
		logger:   slog.Default(),
		validate: true,
	}
}

// WithLogger sets the logger used for failed and recovered calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithoutValidation hands requests to the compiler unchecked. Out of range
// enums are then the compiler's problem.
func WithoutValidation() Option {
	return func(c *config) {
		c.validate = false
	}
}

// Marshaller invokes a ports.Compiler and converts every result into an
// entities.Outcome.
type Marshaller struct {
	compiler ports.Compiler
	cfg      config
}

// New creates a Marshaller around compiler.
func New(compiler ports.Compiler, opts ...Option) *Marshaller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Marshaller{compiler: compiler, cfg: cfg}
}

// Compile translates source into the target language. Source and target are
// passed through to the compiler as given.
func (m *Marshaller) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) entities.Outcome {
	if m.cfg.validate {
		if err := validation.ValidateCompile(source, target); err != nil {
			return m.failure(opCompile, err)
		}
	}

	tr, err := m.invoke(opCompile, func() (entities.Translation, error) {
		return m.compiler.Compile(ctx, source, target)
	})
	return m.outcome(opCompile, tr, err)
}

// Disassemble turns a DXIL or SPIR-V binary into text. Failures are handled
// exactly like Compile.
func (m *Marshaller) Disassemble(ctx context.Context, source entities.DisassembleDesc) entities.Outcome {
	if m.cfg.validate {
		if err := validation.ValidateDisassemble(source); err != nil {
			return m.failure(opDisassemble, err)
		}
	}

	tr, err := m.invoke(opDisassemble, func() (entities.Translation, error) {
		return m.compiler.Disassemble(ctx, source)
	})
	return m.outcome(opDisassemble, tr, err)
}

// invoke runs fn and converts a panic into an InternalError.
func (m *Marshaller) invoke(op string, fn func() (entities.Translation, error)) (tr entities.Translation, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			m.cfg.logger.Error("marshal: recovered panic in compiler",
				"operation", op,
				"panic", fmt.Sprint(r),
				"stack", string(stack))
			tr = entities.Translation{}
			err = &domainerrors.InternalError{Value: r, Operation: op, Stack: stack}
		}
	}()
	return fn()
}

func (m *Marshaller) outcome(op string, tr entities.Translation, err error) entities.Outcome {
	if err != nil {
		return m.failure(op, err)
	}

	var payload []byte
	if len(tr.Target) > 0 {
		payload = make([]byte, len(tr.Target))
		copy(payload, tr.Target)
	}

	if tr.HasError {
		m.cfg.logger.Debug("marshal: compiler reported an error",
			"operation", op,
			"diagnostic", tr.ErrorWarningMsg,
			"payload_bytes", len(payload))
		return entities.Reported(payload, tr.ErrorWarningMsg, tr.IsText)
	}
	return entities.Ok(payload, tr.ErrorWarningMsg, tr.IsText)
}

// failure reports err as an Err outcome whose diagnostic is exactly err's
// message.
func (m *Marshaller) failure(op string, err error) entities.Outcome {
	detail := domainerrors.ToErrorDetail(err)
	m.cfg.logger.Debug("marshal: call failed",
		"operation", op,
		"type", detail.Type,
		"code", detail.Code,
		"error", err)
	return entities.Err(err.Error(), err)
}
