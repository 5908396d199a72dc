// Package forks carries a verdict to every competing branch of the relay chain.
//
// An Invalid verdict bars the disputed block for good and prunes every active
// head built on top of it, whichever branch the dispute was raised on. Heads
// that do not descend from the disputed block are left alone. A Valid verdict
// bars nothing.
package forks

import (
	"context"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/inter"
)

var log = logrus.WithField("prefix", "forks")

// ForkChoice is the view of active branches the propagator needs.
type ForkChoice interface {
	// Heads lists the active branch heads.
	Heads() []hash.Hash
	// IsDescendant reports whether head has block among its ancestors or is block itself.
	IsDescendant(ctx context.Context, head, block hash.Hash) (bool, error)
	// InvalidateBranch prunes the branch of head starting at from and returns the removed blocks.
	InvalidateBranch(ctx context.Context, head, from hash.Hash) ([]hash.Hash, error)
}

// Blacklist is the permanent set of barred blocks. It has no removal.
type Blacklist struct {
	store *dstore.Store
}

// NewBlacklist returns the blacklist kept in store.
func NewBlacklist(store *dstore.Store) *Blacklist {
	return &Blacklist{store: store}
}

// Add bars block. Adding twice is harmless.
func (b *Blacklist) Add(block hash.Hash) error {
	return b.store.Blacklist(block)
}

// Contains reports whether block is barred.
func (b *Blacklist) Contains(block hash.Hash) (bool, error) {
	return b.store.IsBlacklisted(block)
}

// All lists the barred blocks.
func (b *Blacklist) All() ([]hash.Hash, error) {
	return b.store.BlacklistedBlocks()
}

// Propagation reports what one verdict changed.
type Propagation struct {
	Block       hash.Hash
	Verdict     inter.Verdict
	Blacklisted bool
	// Invalidated are the heads pruned because they descend from Block.
	Invalidated []hash.Hash
	// Pruned are all blocks removed from the fork tree.
	Pruned []hash.Hash
}

// Propagator applies verdicts to the blacklist and the fork choice.
type Propagator struct {
	blacklist *Blacklist
	forks     ForkChoice
}

// NewPropagator returns a propagator. forks may be nil when the host tracks no branches.
func NewPropagator(blacklist *Blacklist, forks ForkChoice) *Propagator {
	return &Propagator{blacklist: blacklist, forks: forks}
}

// Propagate applies res. On Invalid the block is blacklisted first and then
// every descending head is invalidated.
func (p *Propagator) Propagate(ctx context.Context, res inter.Resolution) (Propagation, error) {
	ctx, span := trace.StartSpan(ctx, "forks.Propagate")
	defer span.End()

	out := Propagation{Block: res.Candidate, Verdict: res.Verdict}
	if res.Verdict != inter.Invalid {
		return out, nil
	}

	if err := p.blacklist.Add(res.Candidate); err != nil {
		return out, errors.Wrap(err, "could not blacklist disputed block")
	}
	out.Blacklisted = true
	if p.forks == nil {
		return out, nil
	}

	pruned := make(map[hash.Hash]bool)
	for _, head := range p.forks.Heads() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if pruned[head] {
			// removed together with an earlier head sharing the block
			out.Invalidated = append(out.Invalidated, head)
			continue
		}
		descends, err := p.forks.IsDescendant(ctx, head, res.Candidate)
		if err != nil {
			return out, errors.Wrapf(err, "could not check ancestry of head %s", head.String())
		}
		if !descends {
			continue
		}
		removed, err := p.forks.InvalidateBranch(ctx, head, res.Candidate)
		if err != nil {
			return out, errors.Wrapf(err, "could not invalidate head %s", head.String())
		}
		for _, b := range removed {
			pruned[b] = true
		}
		out.Invalidated = append(out.Invalidated, head)
		out.Pruned = append(out.Pruned, removed...)
	}

	log.WithFields(logrus.Fields{
		"block":       res.Candidate.String(),
		"invalidated": len(out.Invalidated),
		"pruned":      len(out.Pruned),
	}).Info("Invalid block barred from all branches")
	return out, nil
}
