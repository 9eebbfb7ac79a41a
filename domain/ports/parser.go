package ports

import "github.com/modanna/ShaderConductor/domain/entities"

// ManifestParser parses raw YAML bytes into a job Manifest.
type ManifestParser interface {
	// Parse unmarshals YAML bytes into a Manifest struct.
	Parse(data []byte) (*entities.Manifest, error)
}
