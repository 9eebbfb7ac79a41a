package entities

// Translation is what the wrapped compiler hands back for one compile or
// disassemble call. HasError may be set without the call itself failing;
// ErrorWarningMsg then holds the reason, otherwise it carries warnings.
type Translation struct {
	Target          []byte `json:"target,omitempty"`
	ErrorWarningMsg string `json:"error_warning_msg,omitempty"`
	IsText          bool   `json:"is_text"`
	HasError        bool   `json:"has_error"`
}

// OutcomeKind tags an Outcome as Ok or Err.
type OutcomeKind uint8

const (
	// OutcomeOk carries what the compiler returned: a payload, an optional
	// diagnostic and the compiler's own error flag.
	OutcomeOk OutcomeKind = iota

	// OutcomeErr carries a diagnostic only.
	OutcomeErr
)

func (k OutcomeKind) String() string {
	if k == OutcomeErr {
		return "err"
	}
	return "ok"
}

// Outcome is the value form of a compile or disassemble call. Failures of
// the wrapped compiler, including recovered panics, arrive here as an Err
// outcome instead of an error return.
type Outcome struct {
	// Cause is the underlying error for Err outcomes produced from a Go error.
	// It is nil when the compiler reported HasError on its own.
	Cause      error
	Diagnostic string
	Payload    []byte
	Kind       OutcomeKind
	IsText     bool
	// HasError is the compiler's own error flag on an Ok outcome. The
	// payload and IsText are kept as returned.
	HasError bool
}

// Ok builds a successful outcome.
func Ok(payload []byte, diagnostic string, isText bool) Outcome {
	return Outcome{Kind: OutcomeOk, Payload: payload, Diagnostic: diagnostic, IsText: isText}
}

// Reported builds an Ok outcome for a translation the compiler flagged as
// failed without returning an error.
func Reported(payload []byte, diagnostic string, isText bool) Outcome {
	return Outcome{Kind: OutcomeOk, Payload: payload, Diagnostic: diagnostic, IsText: isText, HasError: true}
}

// Err builds a failed outcome. The payload is always empty.
func Err(diagnostic string, cause error) Outcome {
	return Outcome{Kind: OutcomeErr, Diagnostic: diagnostic, Cause: cause}
}

// Failed reports whether the outcome is an Err or the compiler flagged it.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeErr || o.HasError
}

// Text returns the payload as a string. It is only meaningful when IsText is set.
func (o Outcome) Text() string {
	return string(o.Payload)
}
