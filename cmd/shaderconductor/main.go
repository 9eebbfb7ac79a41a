// Command shaderconductor cross-compiles HLSL shaders through a pluggable
// compiler backend. It compiles a single file, disassembles a binary, or
// runs a YAML manifest of batch jobs.
//
// Usage:
//
//	shaderconductor -I shader.hlsl -S ps -T spirv -O shader.spv
//	shaderconductor -disasm -I shader.spv -T spirv -backend wasm -wasm compiler.wasm
//	shaderconductor -manifest shaders.yaml
//	shaderconductor -schema
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/modanna/ShaderConductor/application/job"
	"github.com/modanna/ShaderConductor/application/marshal"
	"github.com/modanna/ShaderConductor/application/schema"
	"github.com/modanna/ShaderConductor/application/template"
	"github.com/modanna/ShaderConductor/boundary"
	"github.com/modanna/ShaderConductor/domain/entities"
	"github.com/modanna/ShaderConductor/domain/ports"
	"github.com/modanna/ShaderConductor/host/registry"
	"github.com/modanna/ShaderConductor/infrastructure/parser"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitBackend = 3
)

// defineFlag collects repeated -D NAME[=VALUE] flags.
type defineFlag []entities.MacroDefine

func (d *defineFlag) String() string {
	parts := make([]string, 0, len(*d))
	for _, m := range *d {
		parts = append(parts, m.Name+"="+m.Value)
	}
	return strings.Join(parts, ",")
}

func (d *defineFlag) Set(v string) error {
	name, value, _ := strings.Cut(v, "=")
	if name == "" {
		return fmt.Errorf("define needs a name")
	}
	*d = append(*d, entities.MacroDefine{Name: name, Value: value})
	return nil
}

// varFlag collects repeated -var KEY=VALUE flags for manifest templates.
type varFlag map[string]string

func (v varFlag) String() string {
	parts := make([]string, 0, len(v))
	for k, val := range v {
		parts = append(parts, k+"="+val)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (v varFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected KEY=VALUE")
	}
	v[key] = value
	return nil
}

type options struct {
	entry          string
	input          string
	output         string
	stage          string
	target         string
	version        int
	defines        defineFlag
	vars           varFlag
	backend        string
	backendOptions string
	command        string
	wasmModule     string
	manifest       string
	timeout        time.Duration
	disasm         bool
	dryRun         bool
	printSchema    bool
	listBackends   bool
	verbose        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run is main without the process globals. A nil reg means the built-in
// backends.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, reg *registry.Registry) int {
	fs := flag.NewFlagSet("shaderconductor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := options{vars: varFlag{}}
	fs.StringVar(&o.entry, "E", "main", "Entry point of the shader")
	fs.StringVar(&o.input, "I", "", "Input file")
	fs.StringVar(&o.output, "O", "", "Output file (default: stdout for text, <input>.<ext> for binaries)")
	fs.StringVar(&o.stage, "S", "", "Shader stage: vs, ps, gs, hs, ds, cs, as, ms")
	fs.StringVar(&o.target, "T", "", "Target: dxil, spirv, hlsl, glsl, essl, msl_macos, msl_ios")
	fs.IntVar(&o.version, "V", 0, "Target language version (0 for the compiler default)")
	fs.Var(&o.defines, "D", "Macro define as NAME or NAME=VALUE (repeatable)")
	fs.StringVar(&o.backend, "backend", "exec", "Compiler backend")
	fs.StringVar(&o.backendOptions, "backend-options", "", "Backend options as JSON")
	fs.StringVar(&o.command, "compiler", "", "Path to ShaderConductorCmd for the exec backend")
	fs.StringVar(&o.wasmModule, "wasm", "", "Compiler guest module for the wasm backend")
	fs.StringVar(&o.manifest, "manifest", "", "Run the jobs of a YAML manifest")
	fs.Var(o.vars, "var", "Manifest template variable as KEY=VALUE (repeatable)")
	fs.DurationVar(&o.timeout, "timeout", 0, "Overall time limit (0 for none)")
	fs.BoolVar(&o.disasm, "disasm", false, "Disassemble the input binary instead of compiling")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Compile manifest jobs without writing outputs")
	fs.BoolVar(&o.printSchema, "schema", false, "Print the manifest JSON schema and exit")
	fs.BoolVar(&o.listBackends, "list-backends", false, "List backends and their option schemas")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	level := slog.LevelWarn
	engine := zap.NewNop()
	if o.verbose {
		level = slog.LevelDebug
		if l, err := zap.NewDevelopment(); err == nil {
			engine = l
			defer func() { _ = l.Sync() }()
		}
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if o.printSchema {
		data, err := schema.ManifestSchema()
		if err != nil {
			fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
			return exitFailed
		}
		fmt.Fprintln(stdout, string(data))
		return exitOK
	}

	if reg == nil {
		var err error
		if reg, err = newRegistry(logger, engine); err != nil {
			fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
			return exitBackend
		}
	}

	if o.listBackends {
		for _, name := range reg.List() {
			s, _ := reg.GetSchema(name)
			fmt.Fprintf(stdout, "%s %s\n", titleStyle.Render(name), helpStyle.Render(s))
		}
		return exitOK
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	backendOpts, err := o.backendJSON()
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitUsage
	}
	backend, err := reg.Open(ctx, o.backend, backendOpts)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("backend %s: %v", o.backend, err)))
		return exitBackend
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			logger.Warn("closing backend", "error", err)
		}
	}()

	switch {
	case o.manifest != "":
		return runManifest(ctx, o, backend, logger, stdout, stderr)
	case o.input == "":
		fmt.Fprintln(stderr, errorStyle.Render("missing -I input file"))
		fs.Usage()
		return exitUsage
	case o.disasm:
		return runDisassemble(ctx, o, backend, logger, stdout, stderr)
	default:
		return runCompile(ctx, o, backend, logger, stdout, stderr)
	}
}

// backendJSON merges -backend-options with the per-backend shortcut flags.
func (o options) backendJSON() (json.RawMessage, error) {
	opts := map[string]any{}
	if o.backendOptions != "" {
		if err := json.Unmarshal([]byte(o.backendOptions), &opts); err != nil {
			return nil, fmt.Errorf("-backend-options: %w", err)
		}
	}
	switch o.backend {
	case "exec":
		if o.command != "" {
			opts["command"] = o.command
		}
	case "wasm":
		if o.wasmModule != "" {
			opts["module"] = o.wasmModule
		}
	}
	return json.Marshal(opts)
}

func runCompile(ctx context.Context, o options, c ports.Compiler, logger *slog.Logger, stdout, stderr io.Writer) int {
	stage, err := entities.ParseShaderStage(o.stage)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("-S: %v", err)))
		return exitUsage
	}
	lang, err := entities.ParseShadingLanguage(o.target)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("-T: %v", err)))
		return exitUsage
	}
	src, err := os.ReadFile(o.input)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}

	b := boundary.New(c, boundary.WithLogger(logger))
	defer b.Close()

	rec, err := b.CompileNative(ctx, entities.SourceDesc{
		Source:     string(src),
		EntryPoint: o.entry,
		FileName:   o.input,
		Defines:    o.defines,
		Stage:      stage,
	}, entities.TargetDesc{Language: lang, Version: int32(o.version)}) //nolint:gosec // G115: versions are small
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}
	defer b.Release()

	return emit(o, b, rec, lang.Extension(), stdout, stderr)
}

func runDisassemble(ctx context.Context, o options, c ports.Compiler, logger *slog.Logger, stdout, stderr io.Writer) int {
	lang, err := entities.ParseShadingLanguage(o.target)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("-T: %v", err)))
		return exitUsage
	}
	bin, err := os.ReadFile(o.input)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}

	b := boundary.New(c, boundary.WithLogger(logger))
	defer b.Close()

	rec, err := b.DisassembleNative(ctx, entities.DisassembleDesc{Binary: bin, Language: lang})
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}
	defer b.Release()

	return emit(o, b, rec, ".txt", stdout, stderr)
}

// emit prints the diagnostic of rec and writes its payload.
func emit(o options, b *boundary.Boundary, rec boundary.ResultDescription, ext string, stdout, stderr io.Writer) int {
	diag, _ := b.ReadString(rec.Diagnostic)
	printDiagnostic(stderr, diag, rec.HasError)
	if rec.HasError {
		return exitFailed
	}

	payload, ok := b.ReadBytes(rec.Payload, rec.PayloadSize)
	if !ok {
		fmt.Fprintln(stderr, errorStyle.Render("result payload is not readable"))
		return exitFailed
	}

	out := o.output
	if out == "" && !rec.IsText {
		out = strings.TrimSuffix(o.input, filepath.Ext(o.input)) + ext
	}
	if out == "" || out == "-" {
		_, _ = stdout.Write(payload)
		return exitOK
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil { //nolint:gosec // G306: build outputs are not secret
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}
	fmt.Fprintf(stderr, "%s %s\n", okStyle.Render("wrote"), pathStyle.Render(out))
	return exitOK
}

func runManifest(ctx context.Context, o options, c ports.Compiler, logger *slog.Logger, stdout, stderr io.Writer) int {
	loader, err := job.NewLoader(parser.NewYamlManifestParser(),
		job.WithTemplate(template.NewGoTemplateEngine(), o.vars))
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}
	plan, err := loader.Load(o.manifest)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitUsage
	}

	runner := job.NewRunner(marshal.New(c, marshal.WithLogger(logger)),
		job.WithLogger(logger),
		job.WithDryRun(o.dryRun))
	report, err := runner.Run(ctx, plan)
	printReport(stdout, report)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return exitFailed
	}
	if report.Failures() > 0 {
		return exitFailed
	}
	return exitOK
}
