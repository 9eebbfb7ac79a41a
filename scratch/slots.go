package scratch

import (
	"fmt"
	"log/slog"
	"sync"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// Policy decides what happens when a call starts while the previous call's
// buffers have not been released.
type Policy uint8

const (
	// PolicyReject refuses the call with a MisuseError and leaves the
	// outstanding buffers untouched.
	PolicyReject Policy = iota

	// PolicyFreeBeforeReplace frees the stale buffers, logs a warning and
	// lets the call proceed. Pointers the caller still holds become invalid.
	PolicyFreeBeforeReplace
)

func (p Policy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyFreeBeforeReplace:
		return "free-before-replace"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// SlotsOption configures Slots.
type SlotsOption func(*slotsConfig)

type slotsConfig struct {
	logger *slog.Logger
	policy Policy
}

func defaultSlotsConfig() slotsConfig {
	return slotsConfig{
		policy: PolicyReject,
		logger: slog.Default(),
	}
}

// WithPolicy sets the misuse policy.
func WithPolicy(p Policy) SlotsOption {
	return func(c *slotsConfig) {
		c.policy = p
	}
}

// WithSlotsLogger sets the logger used for misuse warnings.
func WithSlotsLogger(l *slog.Logger) SlotsOption {
	return func(c *slotsConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Slots is the single outstanding pair allocator: one diagnostic and one
// payload buffer per call, freed by Release.
type Slots struct {
	heap    Heap
	cfg     slotsConfig
	current pair
	mu      sync.Mutex
}

// NewSlots creates Slots allocating from heap.
func NewSlots(heap Heap, opts ...SlotsOption) *Slots {
	cfg := defaultSlotsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Slots{heap: heap, cfg: cfg}
}

// Heap returns the heap buffers are allocated from.
func (s *Slots) Heap() Heap {
	return s.heap
}

// Policy returns the configured misuse policy.
func (s *Slots) Policy() Policy {
	return s.cfg.policy
}

// Begin marks the start of a call. If buffers from an earlier call are
// still outstanding it applies the policy.
func (s *Slots) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.outstanding() {
		return nil
	}

	if s.cfg.policy == PolicyReject {
		return &domainerrors.MisuseError{
			Code:   domainerrors.MisuseOutstanding,
			Detail: "release the previous result before issuing another call",
		}
	}

	s.cfg.logger.Warn("scratch: freeing unreleased buffers from previous call",
		"diagnostic_ptr", s.current[KindDiagnostic].Ptr,
		"payload_ptr", s.current[KindPayload].Ptr)
	s.current.free(s.heap)
	return nil
}

// Put copies data into the slot of the given kind. Empty data leaves the
// slot unallocated. A slot that is already allocated is handled according
// to the policy, exactly like Begin.
func (s *Slots) Put(kind Kind, data []byte) (Buffer, error) {
	if kind >= numKinds {
		return Buffer{}, fmt.Errorf("scratch: invalid buffer kind %d", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.current[kind]; !old.IsZero() {
		if s.cfg.policy == PolicyReject {
			return Buffer{}, &domainerrors.MisuseError{
				Code:   domainerrors.MisuseOutstanding,
				Detail: fmt.Sprintf("%s buffer %d is still allocated", kind, old.Ptr),
			}
		}
		s.heap.Free(old.Ptr)
		s.current[kind] = Buffer{}
	}

	buf, err := alloc(s.heap, data)
	if err != nil {
		return Buffer{}, err
	}
	s.current[kind] = buf
	return buf, nil
}

// PutText stores text as a NUL-terminated diagnostic.
func (s *Slots) PutText(text string) (Buffer, error) {
	return s.Put(KindDiagnostic, CString(text))
}

// Release frees both buffers if allocated. It is safe to call at any time,
// any number of times.
func (s *Slots) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.free(s.heap)
}

// State returns the lifecycle state of one slot.
func (s *Slots) State(kind Kind) State {
	if kind >= numKinds {
		return Unallocated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[kind].IsZero() {
		return Unallocated
	}
	return Allocated
}

// Current returns the buffer held in a slot.
func (s *Slots) Current(kind Kind) Buffer {
	if kind >= numKinds {
		return Buffer{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[kind]
}

// Outstanding reports whether any buffer awaits release.
func (s *Slots) Outstanding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.outstanding()
}
