package template_test

import (
	"testing"

	"github.com/modanna/ShaderConductor/application/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	engine := template.NewGoTemplateEngine()

	t.Run("resolves variables", func(t *testing.T) {
		raw := []byte("output_dir: build/{{.vars.platform}}\njobs: []\n")
		out, err := engine.Render(raw, map[string]string{"platform": "metal"})
		require.NoError(t, err)
		assert.Equal(t, "output_dir: build/metal\njobs: []\n", string(out))
	})

	t.Run("plain manifest is unchanged", func(t *testing.T) {
		raw := []byte("jobs:\n  - name: a\n")
		out, err := engine.Render(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("missing variable fails", func(t *testing.T) {
		_, err := engine.Render([]byte(`target: {{.vars.target}}`), map[string]string{"platform": "metal"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")
	})

	t.Run("missing variable is empty when lenient", func(t *testing.T) {
		out, err := template.NewGoTemplateEngine(template.WithStrict(false)).
			Render([]byte(`target: "{{.vars.target}}"`), nil)
		require.NoError(t, err)
		assert.Equal(t, `target: "<no value>"`, string(out))
	})

	t.Run("invalid template syntax", func(t *testing.T) {
		_, err := engine.Render([]byte(`name: "{{.vars.name"`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse manifest template")
	})
}
