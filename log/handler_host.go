//go:build !wasip1

package log

import (
	"context"
	"log/slog"
)

// Handle writes the record as one JSON line to the configured output.
func (h *GuestHandler) Handle(ctx context.Context, record slog.Record) error {
	data, err := h.encode(ctx, record)
	if err != nil {
		return err
	}
	_, err = h.opts.output.Write(append(data, '\n'))
	return err
}
