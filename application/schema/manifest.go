package schema

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const manifestSchemaURL = "manifest.schema.json"

// ManifestSchema returns the JSON schema of a job manifest.
func ManifestSchema() ([]byte, error) {
	data, err := GenerateSchema(&entities.Manifest{})
	if err != nil {
		return nil, &domainerrors.SchemaError{Type: "Manifest", Err: err}
	}
	return data, nil
}

// ManifestValidator checks decoded manifest documents against the manifest
// schema before they are bound to entities.Manifest.
type ManifestValidator struct {
	schema *jsonschema.Schema
}

// NewManifestValidator compiles the manifest schema.
func NewManifestValidator() (*ManifestValidator, error) {
	raw, err := ManifestSchema()
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(manifestSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, &domainerrors.SchemaError{Type: "Manifest", Err: err}
	}
	compiled, err := compiler.Compile(manifestSchemaURL)
	if err != nil {
		return nil, &domainerrors.SchemaError{Type: "Manifest", Err: err}
	}
	return &ManifestValidator{schema: compiled}, nil
}

// Validate checks a document decoded from YAML or JSON. The document is
// round-tripped through encoding/json first so YAML integers and maps take
// the shapes the schema validator expects.
func (v *ManifestValidator) Validate(doc any) *entities.ValidationResult {
	result := &entities.ValidationResult{Valid: true}

	normalized, err := normalize(doc)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   "(root)",
			Message: err.Error(),
		})
		return result
	}

	err = v.schema.Validate(normalized)
	if err == nil {
		return result
	}

	result.Valid = false
	var ve *jsonschema.ValidationError
	if !stdErrors.As(err, &ve) {
		result.Errors = append(result.Errors, entities.ValidationError{Field: "(root)", Message: err.Error()})
		return result
	}

	for _, leaf := range leaves(ve) {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fieldPath(leaf.InstanceLocation),
			Message: leaf.Message,
		})
	}
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Field < result.Errors[j].Field
	})
	return result
}

func normalize(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON compatible: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// leaves flattens the cause tree to the errors that carry the actual reason.
func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// fieldPath turns a JSON pointer ("/jobs/0/name") into a dotted path
// ("jobs.0.name").
func fieldPath(pointer string) string {
	p := strings.TrimPrefix(pointer, "/")
	if p == "" {
		return "(root)"
	}
	return strings.ReplaceAll(p, "/", ".")
}
