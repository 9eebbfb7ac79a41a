package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/modanna/ShaderConductor/application/marshal"
	"github.com/modanna/ShaderConductor/domain/entities"
	"github.com/modanna/ShaderConductor/domain/ports"
)

// DefaultOutputDir is used when a manifest names no output directory.
const DefaultOutputDir = "build"

// listingExtension is appended to a binary output's name for its
// disassembly.
const listingExtension = ".txt"

// FileReport is the result of compiling one source file.
type FileReport struct {
	Source     string
	Output     string
	Listing    string
	Diagnostic string
	Failed     bool
}

// TaskReport collects the files of one job.
type TaskReport struct {
	Name  string
	Error string
	Files []FileReport
}

// Failed reports whether the job or any of its files failed.
func (r TaskReport) Failed() bool {
	if r.Error != "" {
		return true
	}
	for _, f := range r.Files {
		if f.Failed {
			return true
		}
	}
	return false
}

// Report is the result of running a Plan.
type Report struct {
	Tasks    []TaskReport
	Duration time.Duration
}

// Failures counts failed jobs.
func (r *Report) Failures() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Failed() {
			n++
		}
	}
	return n
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	logger *slog.Logger
	dryRun bool
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{logger: slog.Default()}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(c *runnerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDryRun compiles everything but writes nothing.
func WithDryRun(enabled bool) RunnerOption {
	return func(c *runnerConfig) {
		c.dryRun = enabled
	}
}

// Runner executes Plans.
type Runner struct {
	marshaller *marshal.Marshaller
	cfg        runnerConfig
}

// NewRunner creates a Runner compiling through m.
func NewRunner(m *marshal.Marshaller, opts ...RunnerOption) *Runner {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runner{marshaller: m, cfg: cfg}
}

// Run compiles every job of plan. Compile failures are recorded in the
// report; the error is non-nil only when ctx ends.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	start := time.Now()
	report := &Report{Tasks: make([]TaskReport, 0, len(plan.Jobs))}
	outDir := outputDir(plan)

	for _, task := range plan.Jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Tasks = append(report.Tasks, r.runTask(ctx, plan.BaseDir, outDir, task))
	}

	report.Duration = time.Since(start)
	r.cfg.logger.InfoContext(ctx, "manifest finished",
		"jobs", len(report.Tasks),
		"failed", report.Failures(),
		"duration", report.Duration)
	return report, ctx.Err()
}

func (r *Runner) runTask(ctx context.Context, baseDir, outDir string, task Task) TaskReport {
	tr := TaskReport{Name: task.Name}
	logger := r.cfg.logger.With("job", task.Name)

	sources, err := expandSources(baseDir, task.Sources)
	if err != nil {
		tr.Error = err.Error()
		logger.ErrorContext(ctx, "job sources", "error", err)
		return tr
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		fr := r.compileFile(ctx, filepath.Join(outDir, task.Name), task, src)
		if fr.Failed {
			logger.WarnContext(ctx, "compile failed", "source", fr.Source, "diagnostic", fr.Diagnostic)
		} else {
			logger.DebugContext(ctx, "compiled", "source", fr.Source, "output", fr.Output)
		}
		tr.Files = append(tr.Files, fr)
	}
	return tr
}

func (r *Runner) compileFile(ctx context.Context, jobDir string, task Task, src source) FileReport {
	fr := FileReport{Source: src.path}

	data, err := os.ReadFile(src.path)
	if err != nil {
		fr.Failed = true
		fr.Diagnostic = err.Error()
		return fr
	}

	out := r.marshaller.Compile(ctx, entities.SourceDesc{
		Source:     string(data),
		EntryPoint: task.EntryPoint,
		FileName:   src.rel,
		Defines:    task.Defines,
		Options:    task.Options,
		Stage:      task.Stage,
	}, task.Target)
	fr.Diagnostic = out.Diagnostic
	if out.Failed() {
		fr.Failed = true
		return fr
	}

	fr.Output = filepath.Join(jobDir, filepath.FromSlash(strings.TrimSuffix(src.rel, path.Ext(src.rel)))+task.Target.Language.Extension())
	if err := r.write(fr.Output, out.Payload); err != nil {
		fr.Failed = true
		fr.Diagnostic = err.Error()
		return fr
	}

	if task.Disassemble && task.Target.Language.IsBinary() {
		fr.Listing = r.listing(ctx, fr.Output, task.Target.Language, out.Payload)
	}
	return fr
}

// listing disassembles a binary output. Its failure does not fail the
// file; it is logged and no listing is written.
func (r *Runner) listing(ctx context.Context, output string, lang entities.ShadingLanguage, binary []byte) string {
	out := r.marshaller.Disassemble(ctx, entities.DisassembleDesc{Binary: binary, Language: lang})
	if out.Failed() {
		level := slog.LevelWarn
		if errors.Is(out.Cause, ports.ErrUnsupported) {
			level = slog.LevelDebug
		}
		r.cfg.logger.Log(ctx, level, "disassembly skipped", "output", output, "diagnostic", out.Diagnostic)
		return ""
	}

	name := output + listingExtension
	if err := r.write(name, out.Payload); err != nil {
		r.cfg.logger.WarnContext(ctx, "failed to write listing", "path", name, "error", err)
		return ""
	}
	return name
}

func (r *Runner) write(name string, data []byte) error {
	if r.cfg.dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil { //nolint:gosec // G306: build outputs are not secret
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// source is a matched file: its path on disk and its path relative to the
// pattern's base, which becomes the output name.
type source struct {
	path string
	rel  string
}

// expandSources resolves doublestar patterns against baseDir. Absolute
// patterns are resolved against their own static prefix.
func expandSources(baseDir string, patterns []string) ([]source, error) {
	seen := make(map[string]bool)
	var out []source

	for _, pattern := range patterns {
		root := baseDir
		rel := filepath.ToSlash(pattern)
		if filepath.IsAbs(pattern) {
			root, rel = doublestar.SplitPattern(rel)
			root = filepath.FromSlash(root)
		}
		if !doublestar.ValidatePattern(rel) {
			return nil, fmt.Errorf("invalid source pattern %q", pattern)
		}

		matches, err := doublestar.Glob(os.DirFS(root), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source pattern %q matched no files", pattern)
		}

		sort.Strings(matches)
		for _, m := range matches {
			full := filepath.Join(root, filepath.FromSlash(m))
			if seen[full] {
				continue
			}
			seen[full] = true
			out = append(out, source{path: full, rel: globRelative(rel, m)})
		}
	}
	return out, nil
}

// globRelative strips the static directory prefix of pattern from match, so
// "shaders/**/*.hlsl" matching "shaders/post/blur.hlsl" yields "post/blur.hlsl".
func globRelative(pattern, match string) string {
	base, _ := doublestar.SplitPattern(pattern)
	if base == "." || base == "" {
		return match
	}
	if rel, ok := strings.CutPrefix(match, base+"/"); ok {
		return rel
	}
	return path.Base(match)
}

func outputDir(plan *Plan) string {
	dir := plan.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(plan.BaseDir, dir)
}
