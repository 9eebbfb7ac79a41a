package testutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/stretchr/testify/mock"
)

// PixelShaderSource is a trivial pixel shader that every fake target accepts.
const PixelShaderSource = "float4 main():SV_Target{return float4(1,0,0,1);}"

// Container magics produced by FakeCompiler. Both contain zero bytes.
var (
	SPIRVMagic = []byte{0x03, 0x02, 0x23, 0x07}
	DXILMagic  = []byte{'D', 'X', 'B', 'C', 0x00, 0x00, 0x00, 0x00}
)

// MockCompiler is a testify mock of ports.Compiler.
type MockCompiler struct {
	mock.Mock
}

func (m *MockCompiler) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error) {
	args := m.Called(ctx, source, target)
	return args.Get(0).(entities.Translation), args.Error(1)
}

func (m *MockCompiler) Disassemble(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(entities.Translation), args.Error(1)
}

// FakeCompiler is a deterministic stand-in for the real cross-compiler.
// Sources containing "syntax error" fail to compile. Binary targets get a
// container made of the format magic, a zero padded header and the source.
// Text targets get the source behind a one line banner.
type FakeCompiler struct {
	// Warning, when set, is reported on every successful call.
	Warning string
}

// Compile implements ports.Compiler.
func (f FakeCompiler) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error) {
	if err := ctx.Err(); err != nil {
		return entities.Translation{}, err
	}
	if strings.Contains(source.Source, "syntax error") {
		name := source.FileName
		if name == "" {
			name = "shader.hlsl"
		}
		return entities.Translation{}, &domainerrors.CompilationError{
			Operation: "compile",
			Message:   fmt.Sprintf("%s:1:1: error: unknown type name 'syntax'", name),
		}
	}

	if target.Language.IsBinary() {
		var buf bytes.Buffer
		buf.Write(magicFor(target.Language))
		buf.Write([]byte{byte(source.Stage), 0x00, 0x00, 0x00})
		buf.WriteString(source.EntryPoint)
		buf.WriteByte(0x00)
		buf.WriteString(source.Source)
		return entities.Translation{Target: buf.Bytes(), ErrorWarningMsg: f.Warning}, nil
	}

	text := fmt.Sprintf("// %s %d %s\n%s\n", target.Language, target.Version, source.Stage.Short(), source.Source)
	return entities.Translation{Target: []byte(text), ErrorWarningMsg: f.Warning, IsText: true}, nil
}

// Disassemble implements ports.Compiler. It accepts only containers made by
// Compile for the same language.
func (f FakeCompiler) Disassemble(ctx context.Context, source entities.DisassembleDesc) (entities.Translation, error) {
	if err := ctx.Err(); err != nil {
		return entities.Translation{}, err
	}
	magic := magicFor(source.Language)
	if magic == nil || !bytes.HasPrefix(source.Binary, magic) {
		return entities.Translation{}, &domainerrors.CompilationError{
			Operation: "disassemble",
			Message:   fmt.Sprintf("not a %s container", source.Language),
		}
	}
	text := fmt.Sprintf("; %s module, %d bytes\n", source.Language, len(source.Binary))
	return entities.Translation{Target: []byte(text), ErrorWarningMsg: f.Warning, IsText: true}, nil
}

func magicFor(l entities.ShadingLanguage) []byte {
	switch l {
	case entities.LanguageSPIRV:
		return SPIRVMagic
	case entities.LanguageDXIL:
		return DXILMagic
	default:
		return nil
	}
}

// MockCommandRunner is a testify mock of ports.CommandRunner.
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(ctx context.Context, req ports.CommandRequest) (*ports.CommandResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*ports.CommandResult)
	return res, args.Error(1)
}
