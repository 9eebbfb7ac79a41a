package ports

import (
	"context"

	"github.com/modanna/ShaderConductor/domain/entities"
)

// Compiler is the wrapped shader cross-compiler. Implementations report a
// rejected request either by returning an error or by setting HasError on
// the translation; the boundary accepts both and may also recover panics.
type Compiler interface {
	// Compile translates source into the target language.
	Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error)

	// Disassemble turns a DXIL or SPIR-V binary back into readable text.
	Disassemble(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error)
}

// CompilerFuncs adapts plain functions to the Compiler interface. A nil
// function makes the corresponding operation fail with ErrUnsupported.
type CompilerFuncs struct {
	CompileFunc     func(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error)
	DisassembleFunc func(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error)
}

// Compile implements Compiler.
func (f CompilerFuncs) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error) {
	if f.CompileFunc == nil {
		return entities.Translation{}, ErrUnsupported
	}
	return f.CompileFunc(ctx, source, target)
}

// Disassemble implements Compiler.
func (f CompilerFuncs) Disassemble(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error) {
	if f.DisassembleFunc == nil {
		return entities.Translation{}, ErrUnsupported
	}
	return f.DisassembleFunc(ctx, source)
}
