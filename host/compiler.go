package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/internal/abi"
	wasmcontext "github.com/modanna/ShaderConductor/internal/wasmcontext"
	"github.com/modanna/ShaderConductor/wireformat"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ErrClosed is returned by calls on a Compiler whose module was closed,
// either explicitly or after a trap or an expired context.
var ErrClosed = errors.New("host: compiler module is closed")

// memory is the part of api.Memory needed to read results.
type memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Size() uint32
}

// linearMemory is the part of api.Memory the Compiler uses.
type linearMemory interface {
	memory
	Write(offset uint32, v []byte) bool
}

// function is the part of api.Function the Compiler uses.
type function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// closer is the part of api.Module the Compiler uses besides its exports.
type closer interface {
	Close(ctx context.Context) error
}

// Compiler is a loaded compiler guest. It implements ports.Compiler.
// Calls are serialized; a guest instance is single threaded.
type Compiler struct {
	mod         closer
	mem         linearMemory
	allocate    function
	deallocate  function
	compile     function
	disassemble function
	release     function
	cfg         executorConfig
	mu          sync.Mutex
	closed      bool
}

func newCompiler(mod api.Module, cfg executorConfig) (*Compiler, error) {
	c := &Compiler{mod: mod, cfg: cfg}
	exports := []struct {
		name string
		dst  *function
	}{
		{wireformat.ExportAllocate, &c.allocate},
		{wireformat.ExportDeallocate, &c.deallocate},
		{wireformat.ExportCompile, &c.compile},
		{wireformat.ExportDisassemble, &c.disassemble},
		{wireformat.ExportRelease, &c.release},
	}
	for _, e := range exports {
		fn := mod.ExportedFunction(e.name)
		if fn == nil {
			return nil, fmt.Errorf("guest does not export %q", e.name)
		}
		*e.dst = fn
	}

	mem := mod.Memory()
	if mem == nil {
		return nil, fmt.Errorf("guest does not export memory")
	}
	c.mem = mem
	return c, nil
}

// Compile implements ports.Compiler. The request carries the request id of
// ctx, or a fresh one, so guest log records can be matched to the call.
func (c *Compiler) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error) {
	ctx, id := wasmcontext.EnsureRequestID(ctx)
	req, err := wireformat.Encode(wireformat.CompileRequestWire{
		Source:  source,
		Target:  target,
		Context: wasmcontext.ContextToWire(ctx),
	})
	if err != nil {
		return entities.Translation{}, err
	}
	return c.call(ctx, "compile", id, c.compile, req)
}

// Disassemble implements ports.Compiler.
func (c *Compiler) Disassemble(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error) {
	ctx, id := wasmcontext.EnsureRequestID(ctx)
	req, err := wireformat.Encode(wireformat.DisassembleRequestWire{
		Source:  source,
		Context: wasmcontext.ContextToWire(ctx),
	})
	if err != nil {
		return entities.Translation{}, err
	}
	return c.call(ctx, "disassemble", id, c.disassemble, req)
}

// Close closes the guest module.
func (c *Compiler) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.mod.Close(ctx)
}

func (c *Compiler) call(ctx context.Context, op, id string, fn function, req []byte) (entities.Translation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return entities.Translation{}, ErrClosed
	}

	start := time.Now()
	ptr, err := c.write(ctx, req)
	if err != nil {
		return entities.Translation{}, c.callFailed(ctx, op, id, start, err)
	}

	results, err := fn.Call(ctx, uint64(ptr), uint64(len(req)))
	if err != nil {
		return entities.Translation{}, c.callFailed(ctx, op, id, start, err)
	}
	c.free(ctx, ptr, uint32(len(req)))
	defer c.releaseResult(ctx)

	if len(results) == 0 || results[0] == 0 {
		return entities.Translation{}, &domainerrors.MisuseError{
			Code:   domainerrors.MisuseOutstanding,
			Detail: "guest refused the call because its previous result was not released",
		}
	}

	tr, err := readResult(c.mem, results[0], c.cfg.maxDiagnosticSize)
	if err != nil {
		return entities.Translation{}, err
	}
	c.cfg.logger.Debug("host: call finished",
		zap.String("operation", op),
		zap.String("request_id", id),
		zap.Bool("has_error", tr.HasError),
		zap.Int("payload_bytes", len(tr.Target)),
		zap.Duration("duration", time.Since(start)))
	return tr, nil
}

// write copies req into memory obtained from the guest's allocate export.
func (c *Compiler) write(ctx context.Context, req []byte) (uint32, error) {
	results, err := c.allocate.Call(ctx, uint64(len(req)))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate in guest: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocate returned no results")
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 {
		return 0, fmt.Errorf("allocate returned null for %d bytes", len(req))
	}
	if !c.mem.Write(ptr, req) {
		return 0, fmt.Errorf("failed to write request to guest memory")
	}
	return ptr, nil
}

func (c *Compiler) free(ctx context.Context, ptr, size uint32) {
	if _, err := c.deallocate.Call(ctx, uint64(ptr), uint64(size)); err != nil {
		c.cfg.logger.Warn("host: failed to free request", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

func (c *Compiler) releaseResult(ctx context.Context) {
	if _, err := c.release.Call(ctx); err != nil {
		c.cfg.logger.Warn("host: sc_release failed", zap.Error(err))
	}
}

// callFailed classifies a failed guest call. The module is unusable
// afterwards: wazero closes it when the context ends, and a trapped Go
// guest has no consistent runtime state left.
func (c *Compiler) callFailed(ctx context.Context, op, id string, start time.Time, err error) error {
	c.closed = true
	_ = c.mod.Close(context.Background())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &domainerrors.TimeoutError{Operation: op, Duration: time.Since(start)}
		}
		return fmt.Errorf("guest %s canceled: %w", op, ctxErr)
	}
	c.cfg.logger.Error("host: guest trapped",
		zap.String("operation", op),
		zap.String("request_id", id),
		zap.Error(err))
	return fmt.Errorf("guest %s trapped: %w", op, err)
}

// readResult decodes the record at packed and copies its buffers out of
// guest memory.
func readResult(mem memory, packed uint64, maxDiagnostic uint32) (entities.Translation, error) {
	ptr, length := abi.SplitPacked(packed)
	if length != wireformat.ResultRecordSize {
		return entities.Translation{}, recordError(fmt.Errorf("record is %d bytes, want %d", length, wireformat.ResultRecordSize))
	}
	raw, ok := mem.Read(ptr, length)
	if !ok {
		return entities.Translation{}, recordError(fmt.Errorf("record at %#x is out of range", ptr))
	}

	var rec wireformat.ResultRecord
	if err := rec.UnmarshalBinary(raw); err != nil {
		return entities.Translation{}, err
	}

	diag, err := readCString(mem, rec.Diagnostic, maxDiagnostic)
	if err != nil {
		return entities.Translation{}, err
	}

	var payload []byte
	if rec.PayloadSize > 0 {
		view, ok := mem.Read(rec.Payload, rec.PayloadSize)
		if !ok {
			return entities.Translation{}, recordError(fmt.Errorf("payload %#x+%d is out of range", rec.Payload, rec.PayloadSize))
		}
		payload = make([]byte, len(view))
		copy(payload, view)
	}

	return entities.Translation{
		Target:          payload,
		ErrorWarningMsg: diag,
		IsText:          rec.IsText,
		HasError:        rec.HasError,
	}, nil
}

// readCString reads NUL-terminated text, scanning at most limit bytes.
func readCString(mem memory, ptr, limit uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	size := mem.Size()
	if ptr >= size {
		return "", recordError(fmt.Errorf("diagnostic %#x is out of range", ptr))
	}
	n := size - ptr
	if n > limit {
		n = limit
	}
	view, ok := mem.Read(ptr, n)
	if !ok {
		return "", recordError(fmt.Errorf("diagnostic %#x is out of range", ptr))
	}
	end := bytes.IndexByte(view, 0)
	if end < 0 {
		return "", recordError(fmt.Errorf("diagnostic %#x is not terminated within %d bytes", ptr, n))
	}
	return string(view[:end]), nil
}

func recordError(err error) error {
	return &domainerrors.WireFormatError{Operation: "decode", Type: "ResultRecord", Err: err}
}
