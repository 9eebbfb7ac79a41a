package scratch

import (
	"sync"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// DefaultMaxTotalAllocations is the default cap on bytes held by a heap.
// This prevents a caller that never releases from growing memory unbounded.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Heap allocates the buffers referenced from result records.
// Pointer 0 is never returned for a successful allocation and always means
// "no buffer".
type Heap interface {
	// Alloc copies data into a fresh buffer and returns its pointer.
	// Empty data allocates nothing and returns 0.
	Alloc(data []byte) (uint32, error)

	// Read returns the buffer behind ptr. The slice is only valid until
	// the pointer is freed.
	Read(ptr uint32) ([]byte, bool)

	// Free releases the buffer. Unknown pointers are ignored.
	Free(ptr uint32)

	// Stats reports the number of live buffers and their total size.
	Stats() (allocations int, totalBytes int)
}

// HeapOption configures a TableHeap.
type HeapOption func(*heapConfig)

type heapConfig struct {
	maxTotalAllocations int
}

func defaultHeapConfig() heapConfig {
	return heapConfig{maxTotalAllocations: DefaultMaxTotalAllocations}
}

// WithMaxTotalAllocations caps the total bytes the heap may hold.
// Non-positive values keep the default.
func WithMaxTotalAllocations(limit int) HeapOption {
	return func(c *heapConfig) {
		if limit > 0 {
			c.maxTotalAllocations = limit
		}
	}
}

// TableHeap is a portable Heap whose pointers are handles into a table.
// It keeps a reference to every live slice so the allocation stays pinned
// until it is explicitly freed.
type TableHeap struct {
	bufs           map[uint32][]byte
	cfg            heapConfig
	next           uint32
	totalAllocated int
	mu             sync.Mutex
}

// NewTableHeap creates an empty TableHeap.
func NewTableHeap(opts ...HeapOption) *TableHeap {
	cfg := defaultHeapConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TableHeap{
		bufs: make(map[uint32][]byte),
		cfg:  cfg,
	}
}

// Alloc implements Heap.
func (h *TableHeap) Alloc(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalAllocated+len(data) > h.cfg.maxTotalAllocations {
		return 0, &domainerrors.MemoryError{
			Requested: len(data),
			Current:   h.totalAllocated,
			Limit:     h.cfg.maxTotalAllocations,
		}
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	ptr := h.nextPointer()
	h.bufs[ptr] = buf
	h.totalAllocated += len(buf)
	return ptr, nil
}

// nextPointer returns an unused non-zero handle. Caller holds h.mu.
func (h *TableHeap) nextPointer() uint32 {
	for {
		h.next++
		if h.next == 0 {
			continue
		}
		if _, used := h.bufs[h.next]; !used {
			return h.next
		}
	}
}

// Read implements Heap.
func (h *TableHeap) Read(ptr uint32) ([]byte, bool) {
	if ptr == 0 {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.bufs[ptr]
	return buf, ok
}

// Free implements Heap. Accounting uses the stored length so a double free
// cannot corrupt the counter.
func (h *TableHeap) Free(ptr uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.bufs[ptr]
	if !ok {
		return
	}
	delete(h.bufs, ptr)
	h.totalAllocated -= len(buf)
	if h.totalAllocated < 0 {
		h.totalAllocated = 0
	}
}

// Stats implements Heap.
func (h *TableHeap) Stats() (allocations int, totalBytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bufs), h.totalAllocated
}

// FreeAll drops every live buffer.
func (h *TableHeap) FreeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.bufs)
	h.totalAllocated = 0
}
