package guest

import (
	"github.com/modanna/ShaderConductor/boundary"
	wasmcontext "github.com/modanna/ShaderConductor/internal/wasmcontext"
	"github.com/modanna/ShaderConductor/wireformat"
)

// Compile decodes a CompileRequestWire and runs it through b. A request
// that cannot be decoded becomes a failed result, not an error.
func Compile(b *boundary.Boundary, req []byte) (boundary.ResultDescription, error) {
	var wire wireformat.CompileRequestWire
	if err := wireformat.Decode(req, &wire); err != nil {
		return b.Fail(err)
	}

	ctx, done := wasmcontext.Enter(wire.Context)
	defer done()
	return b.CompileNative(ctx, wire.Source, wire.Target)
}

// Disassemble decodes a DisassembleRequestWire and runs it through b.
func Disassemble(b *boundary.Boundary, req []byte) (boundary.ResultDescription, error) {
	var wire wireformat.DisassembleRequestWire
	if err := wireformat.Decode(req, &wire); err != nil {
		return b.Fail(err)
	}

	ctx, done := wasmcontext.Enter(wire.Context)
	defer done()
	return b.DisassembleNative(ctx, wire.Source)
}
