package scratch

import (
	"fmt"
	"sync"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// Handle names one call's buffers inside an Arena. Zero is never issued.
type Handle uint32

// Arena hands out a Handle per call. Each handle owns its own diagnostic
// and payload buffers until Destroy, so callers never share slots.
type Arena struct {
	heap    Heap
	entries map[Handle]*pair
	next    Handle
	mu      sync.Mutex
}

// NewArena creates an Arena allocating from heap.
func NewArena(heap Heap) *Arena {
	return &Arena{
		heap:    heap,
		entries: make(map[Handle]*pair),
	}
}

// Heap returns the heap buffers are allocated from.
func (a *Arena) Heap() Heap {
	return a.heap
}

// Open reserves a new handle with no buffers.
func (a *Arena) Open() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		a.next++
		if a.next == 0 {
			continue
		}
		if _, used := a.entries[a.next]; !used {
			a.entries[a.next] = &pair{}
			return a.next
		}
	}
}

// Put copies data into the handle's buffer of the given kind, replacing
// (and freeing) any earlier buffer of that kind.
func (a *Arena) Put(h Handle, kind Kind, data []byte) (Buffer, error) {
	if kind >= numKinds {
		return Buffer{}, fmt.Errorf("scratch: invalid buffer kind %d", kind)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.entries[h]
	if !ok {
		return Buffer{}, unknownHandle(h)
	}

	buf, err := alloc(a.heap, data)
	if err != nil {
		return Buffer{}, err
	}
	if old := p[kind]; !old.IsZero() {
		a.heap.Free(old.Ptr)
	}
	p[kind] = buf
	return buf, nil
}

// PutText stores text as the handle's NUL-terminated diagnostic.
func (a *Arena) PutText(h Handle, text string) (Buffer, error) {
	return a.Put(h, KindDiagnostic, CString(text))
}

// Get returns the buffer of the given kind held by h.
func (a *Arena) Get(h Handle, kind Kind) (Buffer, bool) {
	if kind >= numKinds {
		return Buffer{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.entries[h]
	if !ok {
		return Buffer{}, false
	}
	return p[kind], true
}

// Destroy frees the handle's buffers and forgets the handle. Destroying an
// unknown or already destroyed handle is a MisuseError.
func (a *Arena) Destroy(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.entries[h]
	if !ok {
		return unknownHandle(h)
	}
	p.free(a.heap)
	delete(a.entries, h)
	return nil
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Close destroys every live handle.
func (a *Arena) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for h, p := range a.entries {
		p.free(a.heap)
		delete(a.entries, h)
	}
}

func unknownHandle(h Handle) error {
	return &domainerrors.MisuseError{
		Code:   domainerrors.MisuseUnknownHandle,
		Detail: fmt.Sprintf("handle %d is not live", h),
	}
}
