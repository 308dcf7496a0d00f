package relay

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/wire"
)

// MemoryRelay keeps headers in memory. It backs tests and the regtest
// demo where headers are fed by hand.
type MemoryRelay struct {
	mu      sync.RWMutex
	headers map[uint32]wire.BlockHeader
	best    uint32
}

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{headers: make(map[uint32]wire.BlockHeader)}
}

func (r *MemoryRelay) AddHeader(height uint32, header *wire.BlockHeader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.headers[height] = *header
	if height > r.best {
		r.best = height
	}
}

// SetBestHeight moves the tip without adding headers, to simulate
// confirmations.
func (r *MemoryRelay) SetBestHeight(height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.best = height
}

func (r *MemoryRelay) HeaderAt(_ context.Context, height uint32) (*wire.BlockHeader, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.headers[height]
	if !ok {
		return nil, false, nil
	}
	return &h, true, nil
}

func (r *MemoryRelay) BestHeight(_ context.Context) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.best, nil
}
