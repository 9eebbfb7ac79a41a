package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	wasmcontext "github.com/modanna/ShaderConductor/internal/wasmcontext"
	"github.com/modanna/ShaderConductor/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogAttrWire(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		wantType string
		wantVal  string
	}{
		{
			name:     "string",
			attr:     slog.String("key", "value"),
			wantType: "string",
			wantVal:  "value",
		},
		{
			name:     "int64",
			attr:     slog.Int64("key", 123),
			wantType: "int64",
			wantVal:  "123",
		},
		{
			name:     "bool",
			attr:     slog.Bool("key", true),
			wantType: "bool",
			wantVal:  "true",
		},
		{
			name:     "float64",
			attr:     slog.Float64("key", 1.23),
			wantType: "float64",
			wantVal:  "1.230000",
		},
		{
			name:     "time",
			attr:     slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantType: "time",
			wantVal:  "2024-01-01T00:00:00Z",
		},
		{
			name:     "duration",
			attr:     slog.Duration("key", 1*time.Hour),
			wantType: "duration",
			wantVal:  "1h0m0s",
		},
		{
			name:     "error",
			attr:     slog.Any("key", errors.New("test error")),
			wantType: "error",
			wantVal:  "test error",
		},
		{
			name:     "nil",
			attr:     slog.Any("key", nil),
			wantType: "any",
			wantVal:  "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := toLogAttrWire(tt.attr)
			assert.Equal(t, tt.attr.Key, wire.Key)
			assert.Equal(t, tt.wantType, wire.Type)
			assert.Equal(t, tt.wantVal, wire.Value)
		})
	}
}

func TestToLogAttrWire_JSON(t *testing.T) {
	// Test structured object that should be serialized as JSON
	type MyStruct struct {
		Field string `json:"field"`
	}
	obj := MyStruct{Field: "data"}
	attr := slog.Any("key", obj)

	wire := toLogAttrWire(attr)
	assert.Equal(t, "key", wire.Key)
	assert.Equal(t, "json", wire.Type)

	var decoded MyStruct
	err := json.Unmarshal([]byte(wire.Value), &decoded)
	require.NoError(t, err)
	assert.Equal(t, obj, decoded)
}

func TestToLogAttrWire_LogValuer(t *testing.T) {
	// Test types that implement LogValuer
	attr := slog.Any("key", logValuer{val: "resolved"})
	wire := toLogAttrWire(attr)

	assert.Equal(t, "key", wire.Key)
	assert.Equal(t, "string", wire.Type)
	assert.Equal(t, "resolved", wire.Value)
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler()
	assert.NotNil(t, h)
	// Check default level via Enabled
	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestNewHandler_Options(t *testing.T) {
	h := NewHandler(
		WithLevel(slog.LevelDebug),
		WithSource(true),
	)
	assert.NotNil(t, h)
	assert.True(t, h.Enabled(context.TODO(), slog.LevelDebug))
	assert.True(t, h.opts.addSource)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []wireformat.LogMessageWire {
	t.Helper()
	var out []wireformat.LogMessageWire
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var msg wireformat.LogMessageWire
		require.NoError(t, json.Unmarshal(line, &msg))
		out = append(out, msg)
	}
	return out
}

func TestHandle_WritesWireRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithOutput(&buf), WithLevel(slog.LevelDebug)))

	logger.Debug("compiling", "entry", "main", "stage", "ps")
	logger.Info("next")

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 2)
	assert.Equal(t, "DEBUG", msgs[0].Level)
	assert.Equal(t, "compiling", msgs[0].Message)
	assert.Equal(t, []wireformat.LogAttrWire{
		{Key: "entry", Type: "string", Value: "main"},
		{Key: "stage", Type: "string", Value: "ps"},
	}, msgs[0].Attrs)
}

func TestHandle_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithOutput(&buf))).
		With("backend", "wasm").
		WithGroup("request").
		With("id", 7)

	logger.Info("done", slog.Group("result", slog.Bool("has_error", false)), "size", 128)

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 1)

	got := map[string]string{}
	for _, a := range msgs[0].Attrs {
		got[a.Key] = a.Value
	}
	assert.Equal(t, map[string]string{
		"backend":                  "wasm",
		"request.id":               "7",
		"request.result.has_error": "false",
		"request.size":             "128",
	}, got)
}

func TestHandle_BelowLevelIsDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithOutput(&buf)))
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestHandle_Source(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithOutput(&buf), WithSource(true)))
	logger.Info("with source")

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 1)
	require.NotEmpty(t, msgs[0].Attrs)
	last := msgs[0].Attrs[len(msgs[0].Attrs)-1]
	assert.Equal(t, slog.SourceKey, last.Key)
	assert.Contains(t, last.Value, "log_test.go:")
}

func TestHandle_TagsRecordsWithCallScope(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(WithOutput(&buf)))

	_, exit := wasmcontext.Enter(wireformat.ContextWire{RequestID: "req-42", TimeoutMs: 5000})
	logger.Info("compiling")
	logger.InfoContext(wasmcontext.WithRequestID(context.Background(), "req-7"), "explicit")
	exit()
	logger.Info("after")

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 3)
	assert.Equal(t, "req-42", msgs[0].Context.RequestID)
	assert.Positive(t, msgs[0].Context.TimeoutMs)
	assert.Equal(t, "req-7", msgs[1].Context.RequestID)
	assert.Empty(t, msgs[2].Context.RequestID)
}
