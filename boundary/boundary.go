// Package boundary is the flat, value based surface of the shader bridge.
//
// Compile and Disassemble take plain records with integer enums and return a
// ResultDescription whose diagnostic and payload are pointers into the
// boundary's scratch heap. A failing compiler never produces a Go error
// here: it sets HasError and fills the diagnostic. The only errors returned
// are lifecycle misuse and a heap too full to hold even the diagnostic.
//
// Every Compile or Disassemble must be followed by Release before the next
// call. Pointers from a result are invalid after Release. The scoped
// variants give each call its own handle instead, to be destroyed with
// ReleaseScoped, and may be used from several goroutines at once.
package boundary

import (
	"context"
	stdErrors "errors"
	"sync"

	"github.com/modanna/ShaderConductor/application/marshal"
	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/modanna/ShaderConductor/scratch"
	"github.com/modanna/ShaderConductor/wireformat"
)

// SourceDescription is the flat compile request. Stage holds a
// entities.ShaderStage value.
type SourceDescription struct {
	EntryPoint string
	Source     string
	Stage      int32
}

// TargetDescription is the flat target record. ShadingLanguage holds a
// entities.ShadingLanguage value.
type TargetDescription struct {
	ShadingLanguage int32
	Version         int32
}

// DisassembleDescription is the flat disassemble request. Language must be
// DXIL or SPIR-V.
type DisassembleDescription struct {
	Binary   []byte
	Language int32
}

// ResultDescription is the flat result of one call.
type ResultDescription = wireformat.ResultRecord

// Native converts the record to the compiler's request type.
func (s SourceDescription) Native() entities.SourceDesc {
	return entities.SourceDesc{
		Source:     s.Source,
		EntryPoint: s.EntryPoint,
		Stage:      entities.ShaderStage(s.Stage),
	}
}

// Native converts the record to the compiler's target type.
func (t TargetDescription) Native() entities.TargetDesc {
	return entities.TargetDesc{
		Language: entities.ShadingLanguage(t.ShadingLanguage),
		Version:  t.Version,
	}
}

// Native converts the record to the compiler's disassemble request type.
func (d DisassembleDescription) Native() entities.DisassembleDesc {
	return entities.DisassembleDesc{
		Binary:   d.Binary,
		Language: entities.ShadingLanguage(d.Language),
	}
}

// Boundary owns a Marshaller and the scratch buffers of its results.
type Boundary struct {
	marshaller *marshal.Marshaller
	slots      *scratch.Slots
	arena      *scratch.Arena
	heap       scratch.Heap
	cfg        config
	mu         sync.Mutex
}

// New creates a Boundary around compiler.
func New(compiler ports.Compiler, opts ...Option) *Boundary {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.heap == nil {
		cfg.heap = scratch.NewTableHeap()
	}

	marshalOpts := append([]marshal.Option{marshal.WithLogger(cfg.logger)}, cfg.marshalOps...)
	return &Boundary{
		marshaller: marshal.New(compiler, marshalOpts...),
		slots: scratch.NewSlots(cfg.heap,
			scratch.WithPolicy(cfg.policy),
			scratch.WithSlotsLogger(cfg.logger)),
		arena: scratch.NewArena(cfg.heap),
		heap:  cfg.heap,
		cfg:   cfg,
	}
}

// Policy returns the misuse policy of the two-slot path.
func (b *Boundary) Policy() scratch.Policy {
	return b.cfg.policy
}

// Heap returns the heap result buffers live in.
func (b *Boundary) Heap() scratch.Heap {
	return b.heap
}

// Compile compiles source for target. The error is non-nil only for a
// MisuseError (previous result not released) or when the heap cannot hold
// the diagnostic. A payload too large for the heap is reported in the
// record like any other failure.
func (b *Boundary) Compile(ctx context.Context, source SourceDescription, target TargetDescription) (ResultDescription, error) {
	return b.CompileNative(ctx, source.Native(), target.Native())
}

// CompileNative is Compile for callers that already hold the compiler's
// request types, including the fields the flat records do not carry.
func (b *Boundary) CompileNative(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (ResultDescription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.slots.Begin(); err != nil {
		return ResultDescription{}, err
	}
	return b.storeSlots(b.marshaller.Compile(ctx, source, target))
}

// Disassemble turns a DXIL or SPIR-V binary into text. Errors are reported
// as for Compile.
func (b *Boundary) Disassemble(ctx context.Context, source DisassembleDescription) (ResultDescription, error) {
	return b.DisassembleNative(ctx, source.Native())
}

// DisassembleNative is Disassemble taking the compiler's request type.
func (b *Boundary) DisassembleNative(ctx context.Context, source entities.DisassembleDesc) (ResultDescription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.slots.Begin(); err != nil {
		return ResultDescription{}, err
	}
	return b.storeSlots(b.marshaller.Disassemble(ctx, source))
}

// Fail records err as a failed result, as if the compiler had returned it.
// Callers use it for requests that could not even be decoded. The slot
// lifecycle applies exactly as for Compile.
func (b *Boundary) Fail(err error) (ResultDescription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.slots.Begin(); err != nil {
		return ResultDescription{}, err
	}
	return b.storeSlots(entities.Err(err.Error(), err))
}

// Release frees the buffers of the last result. It is a no-op when nothing
// is outstanding and may be called any number of times.
func (b *Boundary) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots.Release()
}

// Outstanding reports whether a result awaits Release.
func (b *Boundary) Outstanding() bool {
	return b.slots.Outstanding()
}

// CompileScoped compiles like Compile but returns a handle owning the
// result buffers. The handle stays valid until ReleaseScoped.
func (b *Boundary) CompileScoped(ctx context.Context, source SourceDescription, target TargetDescription) (scratch.Handle, ResultDescription, error) {
	return b.storeArena(b.marshaller.Compile(ctx, source.Native(), target.Native()))
}

// DisassembleScoped disassembles like Disassemble but returns a handle
// owning the result buffers.
func (b *Boundary) DisassembleScoped(ctx context.Context, source DisassembleDescription) (scratch.Handle, ResultDescription, error) {
	return b.storeArena(b.marshaller.Disassemble(ctx, source.Native()))
}

// ReleaseScoped frees the buffers owned by h. Releasing an unknown or
// already released handle returns a MisuseError.
func (b *Boundary) ReleaseScoped(h scratch.Handle) error {
	return b.arena.Destroy(h)
}

// Close frees every outstanding buffer, slot and scoped alike.
func (b *Boundary) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots.Release()
	b.arena.Close()
}

// ReadString returns the NUL-terminated text at ptr. It reports false for
// the null pointer and for pointers that are not live.
func (b *Boundary) ReadString(ptr uint32) (string, bool) {
	buf, ok := b.heap.Read(ptr)
	if !ok {
		return "", false
	}
	return scratch.GoString(buf), true
}

// ReadBytes copies exactly size bytes from ptr. It reports false when ptr is
// not live or holds fewer than size bytes. An empty payload (0, 0) reads as
// an empty slice.
func (b *Boundary) ReadBytes(ptr, size uint32) ([]byte, bool) {
	if ptr == 0 && size == 0 {
		return []byte{}, true
	}
	buf, ok := b.heap.Read(ptr)
	if !ok || uint32(len(buf)) < size {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, buf[:size])
	return out, true
}

// storeSlots copies an outcome into the two slots. Caller holds b.mu and has
// called Begin.
func (b *Boundary) storeSlots(out entities.Outcome) (ResultDescription, error) {
	rec, err := store(out,
		func(text string) (scratch.Buffer, error) { return b.slots.PutText(text) },
		func(data []byte) (scratch.Buffer, error) { return b.slots.Put(scratch.KindPayload, data) })
	if err != nil {
		b.slots.Release()
		return ResultDescription{}, err
	}
	return rec, nil
}

func (b *Boundary) storeArena(out entities.Outcome) (scratch.Handle, ResultDescription, error) {
	h := b.arena.Open()
	rec, err := store(out,
		func(text string) (scratch.Buffer, error) { return b.arena.PutText(h, text) },
		func(data []byte) (scratch.Buffer, error) { return b.arena.Put(h, scratch.KindPayload, data) })
	if err != nil {
		_ = b.arena.Destroy(h)
		return 0, ResultDescription{}, err
	}
	return h, rec, nil
}

// store allocates the payload and diagnostic of out and builds the record.
// A payload that does not fit in the heap turns the result into a failure
// whose diagnostic is the allocation error. A failed allocation leaves
// nothing allocated.
func store(
	out entities.Outcome,
	putText func(string) (scratch.Buffer, error),
	putPayload func([]byte) (scratch.Buffer, error),
) (ResultDescription, error) {
	var payload scratch.Buffer
	if len(out.Payload) > 0 {
		var err error
		payload, err = putPayload(out.Payload)
		var me *domainerrors.MemoryError
		switch {
		case stdErrors.As(err, &me):
			out = entities.Err(me.Error(), me)
		case err != nil:
			return ResultDescription{}, err
		}
	}

	diag, err := putText(out.Diagnostic)
	if err != nil {
		return ResultDescription{}, err
	}

	return ResultDescription{
		Diagnostic:     diag.Ptr,
		DiagnosticSize: diag.Size,
		Payload:        payload.Ptr,
		PayloadSize:    payload.Size,
		IsText:         out.IsText,
		HasError:       out.Failed(),
	}, nil
}
