package pdf

import (
	"context"

	"github.com/shopforge/invoicepress/internal/apperr"
)

// surface is one render slot. It carries no engine state; each render
// builds its own document engine, and the slot only caps how many run
// at once. renders counts completed uses of the slot. A slot whose
// render failed is discarded and replaced rather than returned in an
// unknown state.
type surface struct {
	renders int
}

// Pool bounds concurrent renders per worker process. Acquisition is
// context-aware so a per-item timeout also bounds the wait for a free
// slot.
type Pool struct {
	surfaces chan *surface
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{surfaces: make(chan *surface, size)}
	for i := 0; i < size; i++ {
		p.surfaces <- &surface{}
	}
	return p
}

func (p *Pool) acquire(ctx context.Context) (*surface, error) {
	select {
	case s := <-p.surfaces:
		return s, nil
	case <-ctx.Done():
		return nil, apperr.NewResource("acquire render surface", ctx.Err())
	}
}

// release returns a healthy surface for reuse.
func (p *Pool) release(s *surface) {
	s.renders++
	p.surfaces <- s
}

// discard drops a failed surface and replaces it with a fresh one so
// the pool never shrinks.
func (p *Pool) discard(*surface) {
	p.surfaces <- &surface{}
}
