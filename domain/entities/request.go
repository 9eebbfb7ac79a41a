package entities

// MacroDefine is a preprocessor definition passed to the compiler.
type MacroDefine struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ShaderModel selects the HLSL shader model used while parsing the source.
type ShaderModel struct {
	Major uint8 `json:"major" yaml:"major"`
	Minor uint8 `json:"minor" yaml:"minor"`
}

// DefaultShaderModel is the shader model used when none is given.
var DefaultShaderModel = ShaderModel{Major: 6, Minor: 0}

// CompileOptions tune code generation. The zero value keeps the compiler's
// defaults.
type CompileOptions struct {
	ShaderModel            *ShaderModel `json:"shader_model,omitempty" yaml:"shader_model,omitempty"`
	OptimizationLevel      int          `json:"optimization_level,omitempty" yaml:"optimization_level,omitempty" validate:"min=0,max=3"`
	PackMatricesInRowMajor bool         `json:"pack_matrices_in_row_major,omitempty" yaml:"pack_matrices_in_row_major,omitempty"`
	Enable16BitTypes       bool         `json:"enable_16bit_types,omitempty" yaml:"enable_16bit_types,omitempty"`
	EnableDebugInfo        bool         `json:"enable_debug_info,omitempty" yaml:"enable_debug_info,omitempty"`
	DisableOptimizations   bool         `json:"disable_optimizations,omitempty" yaml:"disable_optimizations,omitempty"`
}

// SourceDesc describes the shader source handed to the compiler.
// It is read-only for the duration of a call.
type SourceDesc struct {
	Source     string         `json:"source" yaml:"source" validate:"required"`
	EntryPoint string         `json:"entry_point" yaml:"entry_point" validate:"required"`
	FileName   string         `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Defines    []MacroDefine  `json:"defines,omitempty" yaml:"defines,omitempty" validate:"dive"`
	Options    CompileOptions `json:"options" yaml:"options"`
	Stage      ShaderStage    `json:"stage" yaml:"stage" validate:"shader_stage"`
}

// TargetDesc selects the output language and its version. Version is
// language specific: 50 for HLSL SM5.0, 300 for ESSL 3.00, 0 for the
// compiler's default.
type TargetDesc struct {
	Language ShadingLanguage `json:"language" yaml:"language" validate:"shading_language"`
	Version  int32           `json:"version" yaml:"version" validate:"min=0"`
	AsModule bool            `json:"as_module,omitempty" yaml:"as_module,omitempty"`
}

// DisassembleDesc describes a compiled binary to turn back into text.
type DisassembleDesc struct {
	Binary   []byte          `json:"binary" yaml:"binary" validate:"required,min=1"`
	Language ShadingLanguage `json:"language" yaml:"language" validate:"binary_language"`
}
