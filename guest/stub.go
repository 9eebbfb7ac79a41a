//go:build !wasip1

package guest

import (
	"github.com/modanna/ShaderConductor/boundary"
	"github.com/modanna/ShaderConductor/domain/ports"
)

// Register is a stub for non-WASM platforms.
func Register(c ports.Compiler, opts ...boundary.Option) {
	// No-op on non-WASM platforms
}
