package validation_test

import (
	"errors"
	"testing"

	"github.com/modanna/ShaderConductor/application/validation"
	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSource() entities.SourceDesc {
	return entities.SourceDesc{
		Source:     "float4 main():SV_Target{return float4(1,0,0,1);}",
		EntryPoint: "main",
		Stage:      entities.StagePixel,
	}
}

func TestValidateCompile(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*entities.SourceDesc, *entities.TargetDesc)
		wantField string
	}{
		{
			name:   "valid",
			mutate: func(*entities.SourceDesc, *entities.TargetDesc) {},
		},
		{
			name:      "missing source",
			mutate:    func(s *entities.SourceDesc, _ *entities.TargetDesc) { s.Source = "" },
			wantField: "SourceDesc.Source",
		},
		{
			name:      "missing entry point",
			mutate:    func(s *entities.SourceDesc, _ *entities.TargetDesc) { s.EntryPoint = "" },
			wantField: "SourceDesc.EntryPoint",
		},
		{
			name:      "stage out of range",
			mutate:    func(s *entities.SourceDesc, _ *entities.TargetDesc) { s.Stage = entities.ShaderStage(99) },
			wantField: "SourceDesc.Stage",
		},
		{
			name:      "negative stage",
			mutate:    func(s *entities.SourceDesc, _ *entities.TargetDesc) { s.Stage = entities.ShaderStage(-1) },
			wantField: "SourceDesc.Stage",
		},
		{
			name:      "language out of range",
			mutate:    func(_ *entities.SourceDesc, tg *entities.TargetDesc) { tg.Language = entities.ShadingLanguage(7) },
			wantField: "TargetDesc.Language",
		},
		{
			name:      "negative version",
			mutate:    func(_ *entities.SourceDesc, tg *entities.TargetDesc) { tg.Version = -5 },
			wantField: "TargetDesc.Version",
		},
		{
			name: "optimization level too high",
			mutate: func(s *entities.SourceDesc, _ *entities.TargetDesc) {
				s.Options.OptimizationLevel = 4
			},
			wantField: "SourceDesc.Options.OptimizationLevel",
		},
		{
			name: "define without name",
			mutate: func(s *entities.SourceDesc, _ *entities.TargetDesc) {
				s.Defines = []entities.MacroDefine{{Value: "1"}}
			},
			wantField: "SourceDesc.Defines[0].Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validSource()
			tgt := entities.TargetDesc{Language: entities.LanguageHLSL, Version: 50}
			tt.mutate(&src, &tgt)

			err := validation.ValidateCompile(src, tgt)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var ve *domainerrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestValidateDisassemble(t *testing.T) {
	err := validation.ValidateDisassemble(entities.DisassembleDesc{
		Language: entities.LanguageSPIRV,
		Binary:   []byte{0x03, 0x02, 0x23, 0x07},
	})
	assert.NoError(t, err)

	err = validation.ValidateDisassemble(entities.DisassembleDesc{
		Language: entities.LanguageGLSL,
		Binary:   []byte("#version 450"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glsl is not a binary shading language")

	err = validation.ValidateDisassemble(entities.DisassembleDesc{
		Language: entities.LanguageDXIL,
		Binary:   []byte{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Binary")
}

func TestStruct_Manifest(t *testing.T) {
	valid := entities.Manifest{
		Jobs: []entities.Job{{
			Name:    "lighting",
			Sources: []string{"shaders/*.hlsl"},
			Stage:   "ps",
			Target:  "spirv",
		}},
	}
	assert.NoError(t, validation.Struct(valid))

	noJobs := entities.Manifest{}
	assert.Error(t, validation.Struct(noJobs))

	badStage := valid
	badStage.Jobs = []entities.Job{{Name: "x", Sources: []string{"a.hlsl"}, Stage: "fragment"}}
	err := validation.Struct(badStage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shader stage fragment")

	badTarget := valid
	badTarget.Jobs = []entities.Job{{Name: "x", Sources: []string{"a.hlsl"}, Stage: "vs", Target: "wgsl"}}
	err = validation.Struct(badTarget)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shading language wgsl")

	emptyGlob := valid
	emptyGlob.Jobs = []entities.Job{{Name: "x", Sources: []string{""}, Stage: "vs"}}
	assert.Error(t, validation.Struct(emptyGlob))
}
