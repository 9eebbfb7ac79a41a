package entities

import "fmt"

// ErrorType classifies an ErrorDetail.
type ErrorType string

// Error types reported by the boundary and its backends.
const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeMisuse      ErrorType = "misuse"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeMemory      ErrorType = "memory"
	ErrorTypeExec        ErrorType = "exec"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeWire        ErrorType = "wire"
)

// ErrorDetail is the serializable form of a boundary failure. The flat
// result record only carries Message; the Go API and logs carry the rest.
type ErrorDetail struct {
	// Cause is the detail of the wrapped error, if any.
	Cause *ErrorDetail `json:"cause,omitempty"`

	Message string    `json:"message"`
	Type    ErrorType `json:"type"`

	// Code narrows Type: the operation, the misuse kind, the invalid field.
	Code string `json:"code,omitempty"`

	// Stack is the goroutine stack of a recovered panic.
	Stack []byte `json:"stack,omitempty"`

	Timeout bool `json:"timeout,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause.Error())
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail of the given type.
func NewErrorDetail(errorType ErrorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}

// WithCode sets Code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithCause sets Cause and returns e.
func (e *ErrorDetail) WithCause(cause *ErrorDetail) *ErrorDetail {
	e.Cause = cause
	return e
}
