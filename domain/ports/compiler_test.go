package ports

import (
	"context"
	"testing"

	"github.com/modanna/ShaderConductor/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ Compiler = CompilerFuncs{}

func TestCompilerFuncs(t *testing.T) {
	ctx := context.Background()

	t.Run("nil funcs are unsupported", func(t *testing.T) {
		var c CompilerFuncs
		_, err := c.Compile(ctx, entities.SourceDesc{}, entities.TargetDesc{})
		assert.ErrorIs(t, err, ErrUnsupported)

		_, err = c.Disassemble(ctx, entities.DisassembleDesc{})
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("delegates", func(t *testing.T) {
		c := CompilerFuncs{
			CompileFunc: func(_ context.Context, src entities.SourceDesc, tgt entities.TargetDesc) (entities.Translation, error) {
				return entities.Translation{Target: []byte(src.EntryPoint + "@" + tgt.Language.String()), IsText: true}, nil
			},
			DisassembleFunc: func(_ context.Context, src entities.DisassembleDesc) (entities.Translation, error) {
				return entities.Translation{Target: src.Binary, IsText: true}, nil
			},
		}

		tr, err := c.Compile(ctx, entities.SourceDesc{EntryPoint: "main"}, entities.TargetDesc{Language: entities.LanguageGLSL})
		require.NoError(t, err)
		assert.Equal(t, "main@glsl", string(tr.Target))

		tr, err = c.Disassemble(ctx, entities.DisassembleDesc{Binary: []byte("; SPIR-V")})
		require.NoError(t, err)
		assert.Equal(t, "; SPIR-V", string(tr.Target))
	})
}

func TestNopBackend(t *testing.T) {
	b := NopBackend(CompilerFuncs{})
	assert.NoError(t, b.Close(context.Background()))

	_, err := b.Compile(context.Background(), entities.SourceDesc{}, entities.TargetDesc{})
	assert.ErrorIs(t, err, ErrUnsupported)
}
