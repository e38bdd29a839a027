package accelerator

import (
	"fmt"
	"gpuresize/internal/core/domain"
	"sync"
)

// MemoryStats is a snapshot of device memory bookkeeping.
type MemoryStats struct {
	LiveAllocations int
	LiveBytes       int64
	PeakBytes       int64
	Allocations     uint64
	Frees           uint64
}

// arena emulates device memory: every allocation gets an opaque pointer and is accounted against
// an optional limit. The limit is checked before any host memory is reserved.
type arena struct {
	mu     sync.Mutex
	next   domain.DevicePtr
	live   map[domain.DevicePtr][]byte
	limit  int64
	used   int64
	peak   int64
	nAlloc uint64
	nFree  uint64
}

func newArena(limit int64) *arena {
	return &arena{live: make(map[domain.DevicePtr][]byte), limit: limit}
}

func (a *arena) alloc(n int) (domain.DevicePtr, error) {
	if n < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", n)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit > 0 && int64(n) > a.limit-a.used {
		return 0, fmt.Errorf("%w: requested %d bytes, %d of %d in use", domain.ErrOutOfMemory, n, a.used, a.limit)
	}

	a.next++
	a.live[a.next] = make([]byte, n)
	a.used += int64(n)
	a.nAlloc++
	if a.used > a.peak {
		a.peak = a.used
	}

	return a.next, nil
}

func (a *arena) free(ptr domain.DevicePtr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.live[ptr]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrInvalidPointer, ptr)
	}

	delete(a.live, ptr)
	a.used -= int64(len(buf))
	a.nFree++
	return nil
}

func (a *arena) bytes(ptr domain.DevicePtr) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.live[ptr]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidPointer, ptr)
	}
	return buf, nil
}

// reset frees everything still allocated and returns how many allocations were outstanding.
func (a *arena) reset() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.live)
	a.nFree += uint64(n)
	a.live = make(map[domain.DevicePtr][]byte)
	a.used = 0
	return n
}

func (a *arena) stats() MemoryStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return MemoryStats{
		LiveAllocations: len(a.live),
		LiveBytes:       a.used,
		PeakBytes:       a.peak,
		Allocations:     a.nAlloc,
		Frees:           a.nFree,
	}
}
