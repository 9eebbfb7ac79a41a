package entities

import (
	"fmt"
	"strings"
)

// ShaderStage identifies the pipeline stage a shader is compiled for.
// Numeric values match the wrapped compiler's enumeration and travel
// unchanged across the flat boundary.
type ShaderStage int32

const (
	StageVertex ShaderStage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
	StageCompute
	StageAmplification
	StageMesh

	numShaderStages
)

var stageNames = [...]string{
	StageVertex:        "vertex",
	StagePixel:         "pixel",
	StageGeometry:      "geometry",
	StageHull:          "hull",
	StageDomain:        "domain",
	StageCompute:       "compute",
	StageAmplification: "amplification",
	StageMesh:          "mesh",
}

// shortStageNames are the abbreviations used by the compiler's command line
// front end (-S vs, ps, ...).
var shortStageNames = [...]string{
	StageVertex:        "vs",
	StagePixel:         "ps",
	StageGeometry:      "gs",
	StageHull:          "hs",
	StageDomain:        "ds",
	StageCompute:       "cs",
	StageAmplification: "as",
	StageMesh:          "ms",
}

// Valid reports whether s is a known stage.
func (s ShaderStage) Valid() bool {
	return s >= 0 && s < numShaderStages
}

func (s ShaderStage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ShaderStage(%d)", int32(s))
	}
	return stageNames[s]
}

// Short returns the two letter abbreviation of the stage ("ps", "cs", ...).
func (s ShaderStage) Short() string {
	if !s.Valid() {
		return ""
	}
	return shortStageNames[s]
}

// ParseShaderStage accepts either the long ("pixel") or short ("ps") name.
func ParseShaderStage(name string) (ShaderStage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range stageNames {
		if stageNames[i] == name || shortStageNames[i] == name {
			return ShaderStage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shader stage %q", name)
}

// MarshalText implements encoding.TextMarshaler so stages read naturally in
// YAML and JSON documents.
func (s ShaderStage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid shader stage %d", int32(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ShaderStage) UnmarshalText(text []byte) error {
	v, err := ParseShaderStage(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ShadingLanguage identifies an output representation of the compiler.
// Numeric values match the wrapped compiler's enumeration.
type ShadingLanguage int32

const (
	LanguageDXIL ShadingLanguage = iota
	LanguageSPIRV
	LanguageHLSL
	LanguageGLSL
	LanguageESSL
	LanguageMSLmacOS
	LanguageMSLiOS

	numShadingLanguages
)

var languageNames = [...]string{
	LanguageDXIL:     "dxil",
	LanguageSPIRV:    "spirv",
	LanguageHLSL:     "hlsl",
	LanguageGLSL:     "glsl",
	LanguageESSL:     "essl",
	LanguageMSLmacOS: "msl_macos",
	LanguageMSLiOS:   "msl_ios",
}

// Valid reports whether l is a known shading language.
func (l ShadingLanguage) Valid() bool {
	return l >= 0 && l < numShadingLanguages
}

// IsBinary reports whether the language is a bytecode container rather than
// source text. Only binary languages can be disassembled.
func (l ShadingLanguage) IsBinary() bool {
	return l == LanguageDXIL || l == LanguageSPIRV
}

// Extension returns the conventional file extension for output in l.
func (l ShadingLanguage) Extension() string {
	switch l {
	case LanguageDXIL:
		return ".dxil"
	case LanguageSPIRV:
		return ".spv"
	case LanguageHLSL:
		return ".hlsl"
	case LanguageGLSL:
		return ".glsl"
	case LanguageESSL:
		return ".essl"
	case LanguageMSLmacOS, LanguageMSLiOS:
		return ".metal"
	default:
		return ".out"
	}
}

func (l ShadingLanguage) String() string {
	if !l.Valid() {
		return fmt.Sprintf("ShadingLanguage(%d)", int32(l))
	}
	return languageNames[l]
}

// ParseShadingLanguage parses a language name as accepted by the compiler's
// command line front end (-T dxil, spirv, ...).
func ParseShadingLanguage(name string) (ShadingLanguage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range languageNames {
		if languageNames[i] == name {
			return ShadingLanguage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shading language %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (l ShadingLanguage) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid shading language %d", int32(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ShadingLanguage) UnmarshalText(text []byte) error {
	v, err := ParseShadingLanguage(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
