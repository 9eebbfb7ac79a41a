//go:build wasip1

package guest

import (
	"log/slog"

	"github.com/modanna/ShaderConductor/boundary"
	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/modanna/ShaderConductor/internal/abi"
	_ "github.com/modanna/ShaderConductor/log" // routes slog to the host
)

// state is the module's single boundary. WASM is single threaded, so the
// exports never run concurrently.
var state struct {
	b      *boundary.Boundary
	record uint64 // packed result record of the outstanding call
}

// Register installs the compiler served by the exports. Result buffers are
// allocated in linear memory; opts may change the misuse policy or logger.
func Register(c ports.Compiler, opts ...boundary.Option) {
	opts = append([]boundary.Option{boundary.WithHeap(abi.LinearHeap{})}, opts...)
	state.b = boundary.New(c, opts...)
}

func current() *boundary.Boundary {
	if state.b == nil {
		// Unregistered modules answer every call with ErrUnsupported.
		Register(ports.CompilerFuncs{})
	}
	return state.b
}

//go:wasmexport sc_compile
func scCompile(ptr, length uint32) uint64 {
	return finish(Compile(current(), abi.BytesFromPtr(abi.PackPtrLen(ptr, length))))
}

//go:wasmexport sc_disassemble
func scDisassemble(ptr, length uint32) uint64 {
	return finish(Disassemble(current(), abi.BytesFromPtr(abi.PackPtrLen(ptr, length))))
}

//go:wasmexport sc_release
func scRelease() {
	current().Release()
	abi.DeallocatePacked(state.record)
	state.record = 0
}

// finish copies the record into linear memory and returns its packed address.
func finish(rec boundary.ResultDescription, err error) uint64 {
	if err != nil {
		slog.Warn("guest: call refused", "error", err)
		return 0
	}

	data, err := rec.MarshalBinary()
	if err != nil {
		slog.Error("guest: encode result record", "error", err)
		return 0
	}
	abi.DeallocatePacked(state.record)
	state.record = abi.PtrFromBytes(data)
	return state.record
}
