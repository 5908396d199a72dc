package slashing

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter"
)

// ErrAlreadyPending is returned when a candidate already has a request in the pool.
var ErrAlreadyPending = errors.New("slashing already pending for candidate")

// Pool keeps slashing requests until the host includes them in a block.
// It implements Punisher.
type Pool struct {
	lock     sync.RWMutex
	pending  []inter.SlashingRequest
	included map[hash.Hash]bool
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{included: make(map[hash.Hash]bool)}
}

// SubmitSlashing queues req. One request per candidate is accepted.
func (p *Pool) SubmitSlashing(req inter.SlashingRequest) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.included[req.Candidate] {
		return errors.Wrapf(ErrAlreadyPending, "candidate %s was included", req.Candidate.String())
	}
	for _, r := range p.pending {
		if r.Candidate == req.Candidate {
			return errors.Wrapf(ErrAlreadyPending, "candidate %s", req.Candidate.String())
		}
	}
	p.pending = append(p.pending, req)
	return nil
}

// Pending returns a copy of the queued requests in submission order.
func (p *Pool) Pending() []inter.SlashingRequest {
	p.lock.RLock()
	defer p.lock.RUnlock()

	res := make([]inter.SlashingRequest, len(p.pending))
	copy(res, p.pending)
	return res
}

// MarkIncluded removes the request of candidate from the queue for good.
func (p *Pool) MarkIncluded(candidate hash.Hash) {
	p.lock.Lock()
	defer p.lock.Unlock()

	for i, r := range p.pending {
		if r.Candidate == candidate {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
	p.included[candidate] = true
}
