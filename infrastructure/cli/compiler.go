// Package cli drives the ShaderConductorCmd executable as a compiler
// backend. Each call writes the source to a private temporary directory,
// runs the tool and reads its output file back.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/modanna/ShaderConductor/domain/ports"
)

// DefaultCommand is the executable looked up on PATH.
const DefaultCommand = "ShaderConductorCmd"

// Options is the JSON-configurable part of the backend.
type Options struct {
	Command   string `json:"command,omitempty" jsonschema:"description=Path to ShaderConductorCmd"`
	TempDir   string `json:"temp_dir,omitempty" jsonschema:"description=Directory for per-call scratch files"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"minimum=0"`
}

// Option configures the Compiler.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	command string
	tempDir string
	timeout time.Duration
}

func defaultConfig() config {
	return config{
		logger:  slog.Default(),
		command: DefaultCommand,
		timeout: 60 * time.Second,
	}
}

// WithCommand sets the executable to run.
func WithCommand(path string) Option {
	return func(c *config) {
		if path != "" {
			c.command = path
		}
	}
}

// WithTempDir sets the parent of the per-call scratch directories. The
// default is os.TempDir.
func WithTempDir(dir string) Option {
	return func(c *config) {
		c.tempDir = dir
	}
}

// WithTimeout bounds a single compiler run.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOptions applies a decoded Options value.
func WithOptions(o Options) Option {
	return func(c *config) {
		WithCommand(o.Command)(c)
		if o.TempDir != "" {
			c.tempDir = o.TempDir
		}
		WithTimeout(time.Duration(o.TimeoutMs) * time.Millisecond)(c)
	}
}

// Compiler implements ports.Compiler on top of a ports.CommandRunner.
type Compiler struct {
	runner ports.CommandRunner
	cfg    config
}

var _ ports.Compiler = (*Compiler)(nil)

// New creates a Compiler that runs commands through runner.
func New(runner ports.CommandRunner, opts ...Option) *Compiler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Compiler{runner: runner, cfg: cfg}
}

// Compile implements ports.Compiler. A non-zero exit is reported as a
// CompilationError carrying the tool's stderr.
func (c *Compiler) Compile(ctx context.Context, source entities.SourceDesc, target entities.TargetDesc) (entities.Translation, error) {
	dir, err := os.MkdirTemp(c.cfg.tempDir, "shaderconductor-*")
	if err != nil {
		return entities.Translation{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, inputName(source.FileName))
	if err := os.WriteFile(input, []byte(source.Source), 0o600); err != nil {
		return entities.Translation{}, fmt.Errorf("failed to write source: %w", err)
	}
	output := filepath.Join(dir, "output"+target.Language.Extension())

	if ignored := unsupportedOptions(source, target); len(ignored) > 0 {
		c.cfg.logger.DebugContext(ctx, "options not supported by the command line compiler",
			"command", c.cfg.command, "ignored", ignored)
	}

	res, err := c.runner.Run(ctx, ports.CommandRequest{
		Command: c.cfg.command,
		Args:    Args(source, target, input, output),
		Dir:     dir,
		Timeout: c.cfg.timeout,
	})
	if err != nil {
		return entities.Translation{}, err
	}
	if res.TimedOut {
		return entities.Translation{}, &domainerrors.TimeoutError{Operation: "compile", Duration: res.Duration}
	}
	if res.Truncated {
		c.cfg.logger.WarnContext(ctx, "compiler output truncated", "command", c.cfg.command)
	}

	diag := res.Diagnostic()
	if !res.Succeeded() {
		if diag == "" {
			diag = fmt.Sprintf("%s exited with code %d", c.cfg.command, res.ExitCode)
		}
		return entities.Translation{}, &domainerrors.CompilationError{Operation: "compile", Message: diag}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return entities.Translation{}, &domainerrors.CompilationError{
			Operation: "compile",
			Message:   "compiler produced no output",
			Err:       err,
		}
	}

	return entities.Translation{
		Target:          data,
		ErrorWarningMsg: diag,
		IsText:          !target.Language.IsBinary(),
	}, nil
}

// Disassemble implements ports.Compiler. The command line tool has no
// disassembly mode.
func (c *Compiler) Disassemble(_ context.Context, source entities.DisassembleDesc) (entities.Translation, error) {
	return entities.Translation{}, &domainerrors.CompilationError{
		Operation: "disassemble",
		Message:   fmt.Sprintf("%s cannot disassemble %s binaries", c.cfg.command, source.Language),
		Err:       ports.ErrUnsupported,
	}
}

// Args builds the ShaderConductorCmd argument list.
func Args(source entities.SourceDesc, target entities.TargetDesc, input, output string) []string {
	args := []string{
		"-E", source.EntryPoint,
		"-I", input,
		"-O", output,
		"-S", source.Stage.Short(),
		"-T", target.Language.String(),
	}
	if target.Version != 0 {
		args = append(args, "-V", strconv.Itoa(int(target.Version)))
	}
	for _, d := range source.Defines {
		if d.Value == "" {
			args = append(args, "-D", d.Name)
			continue
		}
		args = append(args, "-D", d.Name+"="+d.Value)
	}
	return args
}

func inputName(fileName string) string {
	base := filepath.Base(fileName)
	if fileName == "" || base == "." || base == string(filepath.Separator) {
		return "shader.hlsl"
	}
	return base
}

func unsupportedOptions(source entities.SourceDesc, target entities.TargetDesc) []string {
	var ignored []string
	o := source.Options
	if o.ShaderModel != nil {
		ignored = append(ignored, "shader_model")
	}
	if o.OptimizationLevel != 0 || o.DisableOptimizations {
		ignored = append(ignored, "optimization")
	}
	if o.PackMatricesInRowMajor {
		ignored = append(ignored, "pack_matrices_in_row_major")
	}
	if o.Enable16BitTypes {
		ignored = append(ignored, "enable_16bit_types")
	}
	if o.EnableDebugInfo {
		ignored = append(ignored, "enable_debug_info")
	}
	if target.AsModule {
		ignored = append(ignored, "as_module")
	}
	return ignored
}
