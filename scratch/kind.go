package scratch

// Kind selects one of the two buffers a call can produce.
type Kind uint8

const (
	// KindDiagnostic is the NUL-terminated error or warning text.
	KindDiagnostic Kind = iota

	// KindPayload is the compiled binary or text, with an explicit size.
	KindPayload

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindDiagnostic:
		return "diagnostic"
	case KindPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of one buffer slot.
type State uint8

const (
	Unallocated State = iota
	Allocated
)

func (s State) String() string {
	if s == Allocated {
		return "allocated"
	}
	return "unallocated"
}

// Buffer references one allocation. Size is the exact number of bytes
// stored, including the terminating NUL for diagnostics.
type Buffer struct {
	Ptr  uint32
	Size uint32
}

// IsZero reports whether no buffer is referenced.
func (b Buffer) IsZero() bool {
	return b.Ptr == 0
}

// CString returns text with a terminating NUL, as stored for diagnostics.
// Empty text yields nil so no buffer is allocated.
func CString(text string) []byte {
	if text == "" {
		return nil
	}
	buf := make([]byte, len(text)+1)
	copy(buf, text)
	return buf
}

// GoString strips the terminator from a stored diagnostic, stopping at the
// first NUL.
func GoString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// pair holds the buffers of one call.
type pair [numKinds]Buffer

func (p *pair) outstanding() bool {
	for _, b := range p {
		if !b.IsZero() {
			return true
		}
	}
	return false
}

func (p *pair) free(heap Heap) {
	for i := range p {
		if !p[i].IsZero() {
			heap.Free(p[i].Ptr)
		}
		p[i] = Buffer{}
	}
}

func alloc(heap Heap, data []byte) (Buffer, error) {
	ptr, err := heap.Alloc(data)
	if err != nil {
		return Buffer{}, err
	}
	if ptr == 0 {
		return Buffer{}, nil
	}
	return Buffer{Ptr: ptr, Size: uint32(len(data))}, nil
}
