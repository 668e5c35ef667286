package ingest

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handle is an opaque, revocable reference to loaded image bytes,
// analogous to a browser object URL.
type Handle struct {
	ID       string
	MIMEType string
	data     []byte
	revoked  bool
}

// Bytes returns the image data, or nil once the handle has been released.
func (h *Handle) Bytes() []byte {
	if h == nil || h.revoked {
		return nil
	}
	return h.data
}

// Revoked reports whether the handle was released
func (h *Handle) Revoked() bool {
	return h == nil || h.revoked
}

// Allocator hands out and revokes image handles.
type Allocator interface {
	Acquire(f RawFile) (*Handle, error)
	Release(h *Handle)
}

// MemoryAllocator keeps handle data in memory and tracks live handles.
type MemoryAllocator struct {
	mu   sync.Mutex
	live map[string]*Handle
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{
		live: make(map[string]*Handle),
	}
}

func (a *MemoryAllocator) Acquire(f RawFile) (*Handle, error) {
	if f.Data == nil {
		return nil, errors.New("no image data to acquire")
	}
	h := &Handle{
		ID:       "blob:" + uuid.NewString(),
		MIMEType: NormalizeType(f.MIMEType),
		data:     f.Data,
	}

	a.mu.Lock()
	a.live[h.ID] = h
	a.mu.Unlock()

	slog.Debug("Acquired image handle", "handle", h.ID, "bytes", len(f.Data))
	return h, nil
}

// Release revokes a handle; releasing nil or an already released handle is a no-op.
func (a *MemoryAllocator) Release(h *Handle) {
	if h == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[h.ID]; !ok {
		return
	}
	delete(a.live, h.ID)
	h.revoked = true
	h.data = nil
	slog.Debug("Released image handle", "handle", h.ID)
}

// Live returns the number of outstanding handles
func (a *MemoryAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
