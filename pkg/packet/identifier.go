package packet

import (
	"crypto/rand"
	"sync"
)

// IdentifierPool hands out packet identifiers for requests to one server.
// Identifiers come from a counter modulo 256; values still awaiting a
// response are skipped until released.
type IdentifierPool struct {
	mu      sync.Mutex
	next    uint8
	pending [256]bool
	inUse   int
}

// NewIdentifierPool creates a pool starting at a random identifier.
func NewIdentifierPool() *IdentifierPool {
	var seed [1]byte
	_, _ = rand.Read(seed[:])
	return NewIdentifierPoolAt(seed[0])
}

// NewIdentifierPoolAt creates a pool whose first identifier is start.
func NewIdentifierPoolAt(start uint8) *IdentifierPool {
	return &IdentifierPool{next: start}
}

// Acquire reserves the next free identifier.
func (p *IdentifierPool) Acquire() (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse == len(p.pending) {
		return 0, ErrNoFreeIdentifier
	}

	for {
		id := p.next
		p.next++
		if !p.pending[id] {
			p.pending[id] = true
			p.inUse++
			return id, nil
		}
	}
}

// Release returns id to the pool. Releasing a free identifier is a no-op.
func (p *IdentifierPool) Release(id uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending[id] {
		p.pending[id] = false
		p.inUse--
	}
}

// Pending returns the number of identifiers currently reserved.
func (p *IdentifierPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}
