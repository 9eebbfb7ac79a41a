package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modanna/ShaderConductor/application/schema"
	"github.com/modanna/ShaderConductor/application/validation"
	"github.com/modanna/ShaderConductor/domain/entities"
	"github.com/modanna/ShaderConductor/domain/ports"
	"gopkg.in/yaml.v3"
)

// ManifestError lists every schema violation found in a manifest.
type ManifestError struct {
	Path   string
	Errors []entities.ValidationError
}

func (e *ManifestError) Error() string {
	var sb strings.Builder
	name := e.Path
	if name == "" {
		name = "manifest"
	}
	fmt.Fprintf(&sb, "%s is invalid:", name)
	for _, ve := range e.Errors {
		fmt.Fprintf(&sb, "\n  %s: %s", ve.Field, ve.Message)
	}
	return sb.String()
}

// Loader turns manifest files into Plans. A manifest is checked against
// the manifest JSON schema, decoded, and then checked field by field.
type Loader struct {
	parser    ports.ManifestParser
	validator *schema.ManifestValidator
	renderer  ports.TemplateEngine
	vars      map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTemplate renders manifests through engine with vars before parsing.
func WithTemplate(engine ports.TemplateEngine, vars map[string]string) LoaderOption {
	return func(l *Loader) {
		l.renderer = engine
		l.vars = vars
	}
}

// NewLoader creates a Loader decoding manifests with parser.
func NewLoader(parser ports.ManifestParser, opts ...LoaderOption) (*Loader, error) {
	v, err := schema.NewManifestValidator()
	if err != nil {
		return nil, err
	}
	l := &Loader{parser: parser, validator: v}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load reads the manifest at path. Relative paths inside it are resolved
// against the manifest's directory.
func (l *Loader) Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	plan, err := l.Parse(data, filepath.Dir(path))
	if me, ok := err.(*ManifestError); ok {
		me.Path = path
	}
	return plan, err
}

// Parse builds a Plan from manifest bytes.
func (l *Loader) Parse(data []byte, baseDir string) (*Plan, error) {
	if l.renderer != nil {
		rendered, err := l.renderer.Render(data, l.vars)
		if err != nil {
			return nil, err
		}
		data = rendered
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if res := l.validator.Validate(doc); !res.Valid {
		return nil, &ManifestError{Errors: res.Errors}
	}

	m, err := l.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(m); err != nil {
		return nil, err
	}
	return resolve(m, baseDir)
}
