//go:build wasip1

package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modanna/ShaderConductor/internal/abi"
)

// host_log_message is provided by the host engine; see host.registerHostModule.
//
//go:wasmimport sc_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// Handle serializes a slog.Record and sends it to the host.
func (h *GuestHandler) Handle(ctx context.Context, record slog.Record) error {
	data, err := h.encode(ctx, record)
	if err != nil {
		// Fall back to stdout, which WASI forwards to the host.
		fmt.Printf("log: failed to encode record for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	packed := abi.PtrFromBytes(data)
	host_log_message(packed)
	abi.DeallocatePacked(packed)
	return nil
}

// init routes the default slog logger of a guest to the host.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
