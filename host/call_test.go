package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	wasmcontext "github.com/modanna/ShaderConductor/internal/wasmcontext"
	"github.com/modanna/ShaderConductor/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestAt is where the fake guest's allocate places every request.
const requestAt = 1024

type guestFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f guestFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

// fakeGuest stands in for an instantiated compiler module. Its exports
// hand each decoded request to handle, which returns the packed result.
type fakeGuest struct {
	t        *testing.T
	mem      fakeMemory
	handle   func(ctx context.Context, req []byte) (uint64, error)
	requests [][]byte
	frees    int
	releases int
	closes   int
}

func newFakeGuest(t *testing.T, handle func(ctx context.Context, req []byte) (uint64, error)) *fakeGuest {
	return &fakeGuest{t: t, mem: make(fakeMemory, 4096), handle: handle}
}

func (g *fakeGuest) Close(context.Context) error {
	g.closes++
	return nil
}

func (g *fakeGuest) compiler() *Compiler {
	export := guestFunc(func(ctx context.Context, params ...uint64) ([]uint64, error) {
		view, ok := g.mem.Read(uint32(params[0]), uint32(params[1]))
		require.True(g.t, ok)
		req := append([]byte(nil), view...)
		g.requests = append(g.requests, req)
		packed, err := g.handle(ctx, req)
		if err != nil {
			return nil, err
		}
		return []uint64{packed}, nil
	})

	return &Compiler{
		mod: g,
		mem: g.mem,
		allocate: guestFunc(func(context.Context, ...uint64) ([]uint64, error) {
			return []uint64{requestAt}, nil
		}),
		deallocate: guestFunc(func(_ context.Context, params ...uint64) ([]uint64, error) {
			assert.Equal(g.t, uint64(requestAt), params[0])
			g.frees++
			return nil, nil
		}),
		compile:     export,
		disassemble: export,
		release: guestFunc(func(context.Context, ...uint64) ([]uint64, error) {
			g.releases++
			return nil, nil
		}),
		cfg: defaultExecutorConfig(),
	}
}

// respond lays tr out in guest memory the way the guest boundary does.
func (g *fakeGuest) respond(tr entities.Translation) uint64 {
	rec := wireformat.ResultRecord{HasError: tr.HasError, IsText: tr.IsText}
	if tr.ErrorWarningMsg != "" {
		n := copy(g.mem[diagAt:payloadAt-1], tr.ErrorWarningMsg)
		g.mem[diagAt+n] = 0
		rec.Diagnostic = diagAt
	}
	if len(tr.Target) > 0 {
		rec.Payload = payloadAt
		rec.PayloadSize = uint32(copy(g.mem[payloadAt:requestAt], tr.Target))
	}
	raw, err := rec.MarshalBinary()
	require.NoError(g.t, err)
	copy(g.mem[recordAt:], raw)
	return packedRecord()
}

func TestCompilerCall_Compile(t *testing.T) {
	payload := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x01}

	var g *fakeGuest
	g = newFakeGuest(t, func(_ context.Context, req []byte) (uint64, error) {
		var wire wireformat.CompileRequestWire
		require.NoError(t, wireformat.Decode(req, &wire))
		assert.Equal(t, "main", wire.Source.EntryPoint)
		assert.Equal(t, entities.LanguageSPIRV, wire.Target.Language)
		return g.respond(entities.Translation{Target: payload, ErrorWarningMsg: "warning: unused"}), nil
	})
	c := g.compiler()

	source := entities.SourceDesc{Source: "float4 main() : SV_Target { return 1; }", EntryPoint: "main", Stage: entities.StagePixel}
	target := entities.TargetDesc{Language: entities.LanguageSPIRV}

	for i := 1; i <= 3; i++ {
		tr, err := c.Compile(context.Background(), source, target)
		require.NoError(t, err)
		assert.Equal(t, payload, tr.Target)
		assert.Equal(t, "warning: unused", tr.ErrorWarningMsg)
		assert.False(t, tr.HasError)
		assert.Equal(t, i, g.releases, "sc_release after every call")
		assert.Equal(t, i, g.frees, "request freed after every call")
	}

	ids := map[string]bool{}
	for _, req := range g.requests {
		var wire wireformat.CompileRequestWire
		require.NoError(t, wireformat.Decode(req, &wire))
		require.NotEmpty(t, wire.Context.RequestID)
		ids[wire.Context.RequestID] = true
	}
	assert.Len(t, ids, 3)
}

func TestCompilerCall_KeepsCallerRequestID(t *testing.T) {
	var g *fakeGuest
	g = newFakeGuest(t, func(_ context.Context, req []byte) (uint64, error) {
		var wire wireformat.DisassembleRequestWire
		require.NoError(t, wireformat.Decode(req, &wire))
		assert.Equal(t, "req-42", wire.Context.RequestID)
		assert.Positive(t, wire.Context.TimeoutMs)
		assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, wire.Source.Binary)
		return g.respond(entities.Translation{Target: []byte("; SPIR-V"), IsText: true}), nil
	})

	ctx, cancel := context.WithTimeout(wasmcontext.WithRequestID(context.Background(), "req-42"), time.Minute)
	defer cancel()

	tr, err := g.compiler().Disassemble(ctx, entities.DisassembleDesc{
		Language: entities.LanguageSPIRV,
		Binary:   []byte{0x03, 0x02, 0x23, 0x07},
	})
	require.NoError(t, err)
	assert.True(t, tr.IsText)
	assert.Equal(t, "; SPIR-V", string(tr.Target))
}

func TestCompilerCall_ReportedErrorKeepsPayload(t *testing.T) {
	var g *fakeGuest
	g = newFakeGuest(t, func(context.Context, []byte) (uint64, error) {
		return g.respond(entities.Translation{Target: []byte("partial"), IsText: true, HasError: true}), nil
	})

	tr, err := g.compiler().Compile(context.Background(), entities.SourceDesc{Source: "x"}, entities.TargetDesc{})
	require.NoError(t, err)
	assert.True(t, tr.HasError)
	assert.True(t, tr.IsText)
	assert.Empty(t, tr.ErrorWarningMsg)
	assert.Equal(t, "partial", string(tr.Target))
}

func TestCompilerCall_Refused(t *testing.T) {
	refuse := true
	var g *fakeGuest
	g = newFakeGuest(t, func(context.Context, []byte) (uint64, error) {
		if refuse {
			return 0, nil
		}
		return g.respond(entities.Translation{Target: []byte("ok"), IsText: true}), nil
	})
	c := g.compiler()

	_, err := c.Compile(context.Background(), entities.SourceDesc{Source: "x"}, entities.TargetDesc{})
	require.Error(t, err)
	assert.True(t, domainerrors.IsMisuse(err))
	assert.Equal(t, 1, g.releases)

	// a refusal does not close the module
	refuse = false
	tr, err := c.Compile(context.Background(), entities.SourceDesc{Source: "x"}, entities.TargetDesc{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(tr.Target))
	assert.Zero(t, g.closes)
}

func TestCompilerCall_TrapClosesModule(t *testing.T) {
	g := newFakeGuest(t, func(context.Context, []byte) (uint64, error) {
		return 0, errors.New("wasm error: unreachable")
	})
	c := g.compiler()

	_, err := c.Compile(context.Background(), entities.SourceDesc{Source: "x"}, entities.TargetDesc{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guest compile trapped")
	assert.Equal(t, 1, g.closes)

	_, err = c.Disassemble(context.Background(), entities.DisassembleDesc{Language: entities.LanguageDXIL, Binary: []byte{1}})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Len(t, g.requests, 1)

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, g.closes)
}

func TestCompilerCall_DeadlineIsTimeout(t *testing.T) {
	g := newFakeGuest(t, func(context.Context, []byte) (uint64, error) {
		return 0, errors.New("module closed with context deadline exceeded")
	})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := g.compiler().Compile(ctx, entities.SourceDesc{Source: "x"}, entities.TargetDesc{})
	var te *domainerrors.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "compile", te.Operation)
	assert.Equal(t, 1, g.closes)
}
