package host

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modanna/ShaderConductor/internal/abi"
	"github.com/modanna/ShaderConductor/wireformat"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// registerHostModule instantiates the sc_host module guests import.
func (e *Executor) registerHostModule(ctx context.Context) error {
	_, err := e.runtime.NewHostModuleBuilder(wireformat.HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			ptr, length := abi.SplitPacked(stack[0])
			if length > e.cfg.maxLogMessageSize {
				e.cfg.logger.Warn("host: guest log record too large",
					zap.Uint32("size", length),
					zap.Uint32("limit", e.cfg.maxLogMessageSize))
				return
			}
			payload, ok := mod.Memory().Read(ptr, length)
			if !ok {
				e.cfg.logger.Warn("host: guest log record out of range", zap.Uint32("ptr", ptr), zap.Uint32("size", length))
				return
			}
			logGuestRecord(e.cfg.logger, payload)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export(wireformat.HostLogImport).
		Instantiate(ctx)
	return err
}

// logGuestRecord decodes a LogMessageWire and writes it to logger. Records
// that do not decode are logged raw.
func logGuestRecord(logger *zap.Logger, payload []byte) {
	var msg wireformat.LogMessageWire
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.Info("guest log (raw)", zap.ByteString("payload", payload))
		return
	}

	fields := make([]zap.Field, 0, len(msg.Attrs)+2)
	fields = append(fields, zap.Bool("guest", true))
	if msg.Context.RequestID != "" {
		fields = append(fields, zap.String("request_id", msg.Context.RequestID))
	}
	for _, a := range msg.Attrs {
		fields = append(fields, zap.String(a.Key, a.Value))
	}

	if ce := logger.Check(guestLevel(msg.Level), msg.Message); ce != nil {
		if !msg.Timestamp.IsZero() {
			ce.Time = msg.Timestamp
		}
		ce.Write(fields...)
	}
}

// guestLevel maps slog level names ("DEBUG", "WARN+2", ...) to zap levels.
func guestLevel(level string) zapcore.Level {
	switch {
	case strings.HasPrefix(level, "DEBUG"):
		return zapcore.DebugLevel
	case strings.HasPrefix(level, "WARN"):
		return zapcore.WarnLevel
	case strings.HasPrefix(level, "ERROR"):
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
