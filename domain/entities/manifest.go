package entities

// Manifest is a batch of compile jobs, usually loaded from YAML.
type Manifest struct {
	// Defaults are merged into every job that leaves the field unset.
	Defaults JobDefaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// OutputDir is the directory outputs are written to, relative to the
	// manifest unless absolute.
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`

	Jobs []Job `yaml:"jobs" json:"jobs" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

// JobDefaults holds values shared by all jobs in a manifest.
type JobDefaults struct {
	EntryPoint string         `yaml:"entry,omitempty" json:"entry,omitempty"`
	Target     string         `yaml:"target,omitempty" json:"target,omitempty" validate:"language_name"`
	Version    int32          `yaml:"version,omitempty" json:"version,omitempty"`
	Defines    []MacroDefine  `yaml:"defines,omitempty" json:"defines,omitempty"`
	Options    CompileOptions `yaml:"options,omitempty" json:"options,omitempty"`
}

// Job compiles every file matched by Sources with one entry point, stage and
// target. Sources are doublestar globs ("shaders/**/*.hlsl").
type Job struct {
	Name       string         `yaml:"name" json:"name" validate:"required" jsonschema:"minLength=1"`
	Sources    []string       `yaml:"sources" json:"sources" validate:"required,min=1,dive,required" jsonschema:"minItems=1"`
	EntryPoint string         `yaml:"entry,omitempty" json:"entry,omitempty"`
	Stage      string         `yaml:"stage" json:"stage" validate:"required,stage_name"`
	Target     string         `yaml:"target,omitempty" json:"target,omitempty" validate:"language_name"`
	Version    int32          `yaml:"version,omitempty" json:"version,omitempty" validate:"min=0" jsonschema:"minimum=0"`
	Defines    []MacroDefine  `yaml:"defines,omitempty" json:"defines,omitempty" validate:"dive"`
	Options    CompileOptions `yaml:"options,omitempty" json:"options,omitempty"`
	AsModule   bool           `yaml:"as_module,omitempty" json:"as_module,omitempty"`

	// Disassemble additionally writes a textual listing of binary outputs.
	Disassemble bool `yaml:"disassemble,omitempty" json:"disassemble,omitempty"`
}
