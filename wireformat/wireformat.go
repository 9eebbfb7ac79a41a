// Package wireformat defines the structures exchanged between the WASM host
// and a compiler guest. Requests travel as JSON; results travel as a fixed
// binary record pointing at buffers in guest memory. These types must remain
// stable and backward compatible as they define the ABI contract.
package wireformat

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modanna/ShaderConductor/domain/entities"
	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// Guest export and host import names.
const (
	ExportAllocate    = "allocate"
	ExportDeallocate  = "deallocate"
	ExportCompile     = "sc_compile"
	ExportDisassemble = "sc_disassemble"
	ExportRelease     = "sc_release"

	HostModule    = "sc_host"
	HostLogImport = "log_message"
)

// ContextWire is the JSON wire format for context.Context propagation.
type ContextWire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// CompileRequestWire is the JSON wire format of a compile call from Host to Guest.
type CompileRequestWire struct {
	Source  entities.SourceDesc `json:"source"`
	Target  entities.TargetDesc `json:"target"`
	Context ContextWire         `json:"context"`
}

// DisassembleRequestWire is the JSON wire format of a disassemble call from Host to Guest.
// The binary is base64 encoded by encoding/json.
type DisassembleRequestWire struct {
	Source  entities.DisassembleDesc `json:"source"`
	Context ContextWire              `json:"context"`
}

// ResultRecordSize is the encoded size of a ResultRecord.
const ResultRecordSize = 16

// ResultRecord is the flat result of one boundary call. Diagnostic and
// Payload are pointers into the boundary's scratch heap (0 when absent).
// The diagnostic is NUL-terminated; the payload length is PayloadSize and
// is never inferred from content.
//
// Layout (little endian):
//
//	[0:4]   diagnostic pointer
//	[4:8]   payload pointer
//	[8:12]  payload size
//	[12]    is text
//	[13]    has error
//	[14:16] reserved, zero
type ResultRecord struct {
	Diagnostic     uint32
	DiagnosticSize uint32 // not encoded; the terminator marks the end on the wire
	Payload        uint32
	PayloadSize    uint32
	IsText         bool
	HasError       bool
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r ResultRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ResultRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Diagnostic)
	binary.LittleEndian.PutUint32(buf[4:8], r.Payload)
	binary.LittleEndian.PutUint32(buf[8:12], r.PayloadSize)
	buf[12] = boolByte(r.IsText)
	buf[13] = boolByte(r.HasError)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *ResultRecord) UnmarshalBinary(data []byte) error {
	if len(data) != ResultRecordSize {
		return &domainerrors.WireFormatError{
			Operation: "decode",
			Type:      "ResultRecord",
			Err:       fmt.Errorf("record is %d bytes, want %d", len(data), ResultRecordSize),
		}
	}
	rec := ResultRecord{
		Diagnostic:  binary.LittleEndian.Uint32(data[0:4]),
		Payload:     binary.LittleEndian.Uint32(data[4:8]),
		PayloadSize: binary.LittleEndian.Uint32(data[8:12]),
		IsText:      data[12] != 0,
		HasError:    data[13] != 0,
	}
	if rec.Payload == 0 && rec.PayloadSize != 0 {
		return &domainerrors.WireFormatError{
			Operation: "decode",
			Type:      "ResultRecord",
			Err:       fmt.Errorf("null payload pointer with size %d", rec.PayloadSize),
		}
	}
	*r = rec
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Encode marshals a request to JSON, reporting failures as WireFormatError.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &domainerrors.WireFormatError{Operation: "encode", Type: fmt.Sprintf("%T", v), Err: err}
	}
	return data, nil
}

// Decode unmarshals a JSON request, reporting failures as WireFormatError.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &domainerrors.WireFormatError{Operation: "decode", Type: fmt.Sprintf("%T", v), Err: err}
	}
	return nil
}
