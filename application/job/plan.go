// Package job loads batch compile manifests and runs them through a
// Marshaller, writing each output next to its diagnostics.
package job

import (
	"fmt"
	"strings"

	"github.com/modanna/ShaderConductor/domain/entities"
)

// Default values for fields a manifest may leave unset.
const (
	DefaultEntryPoint = "main"
	DefaultTarget     = entities.LanguageSPIRV
)

// Plan is a validated manifest with every default applied.
type Plan struct {
	// BaseDir is the directory source globs and a relative OutputDir are
	// resolved against.
	BaseDir   string
	OutputDir string
	Jobs      []Task
}

// Task is one resolved manifest job.
type Task struct {
	Name        string
	Sources     []string
	EntryPoint  string
	Defines     []entities.MacroDefine
	Options     entities.CompileOptions
	Target      entities.TargetDesc
	Stage       entities.ShaderStage
	Disassemble bool
}

// resolve applies the manifest defaults to every job.
func resolve(m *entities.Manifest, baseDir string) (*Plan, error) {
	plan := &Plan{
		BaseDir:   baseDir,
		OutputDir: m.OutputDir,
		Jobs:      make([]Task, 0, len(m.Jobs)),
	}

	for i, j := range m.Jobs {
		stage, err := entities.ParseShaderStage(j.Stage)
		if err != nil {
			return nil, fmt.Errorf("jobs.%d.stage: %w", i, err)
		}

		lang := DefaultTarget
		if name := firstNonEmpty(j.Target, m.Defaults.Target); name != "" {
			if lang, err = entities.ParseShadingLanguage(name); err != nil {
				return nil, fmt.Errorf("jobs.%d.target: %w", i, err)
			}
		}

		version := j.Version
		if version == 0 {
			version = m.Defaults.Version
		}

		options := j.Options
		if options == (entities.CompileOptions{}) {
			options = m.Defaults.Options
		}

		plan.Jobs = append(plan.Jobs, Task{
			Name:        j.Name,
			Sources:     j.Sources,
			EntryPoint:  firstNonEmpty(j.EntryPoint, m.Defaults.EntryPoint, DefaultEntryPoint),
			Stage:       stage,
			Target:      entities.TargetDesc{Language: lang, Version: version, AsModule: j.AsModule},
			Defines:     mergeDefines(m.Defaults.Defines, j.Defines),
			Options:     options,
			Disassemble: j.Disassemble,
		})
	}
	return plan, nil
}

// mergeDefines returns base overridden by extra, keeping first-seen order.
func mergeDefines(base, extra []entities.MacroDefine) []entities.MacroDefine {
	if len(base) == 0 {
		return extra
	}
	out := make([]entities.MacroDefine, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, d := range append(append([]entities.MacroDefine(nil), base...), extra...) {
		if i, ok := index[d.Name]; ok {
			out[i] = d
			continue
		}
		index[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
