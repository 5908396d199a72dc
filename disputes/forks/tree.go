package forks

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownBlock is returned when a block is not in the tree.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrUnknownParent is returned when inserting a block whose parent is not in the tree.
	ErrUnknownParent = errors.New("unknown parent")
	// ErrDuplicateBlock is returned when a block is inserted twice.
	ErrDuplicateBlock = errors.New("block already in tree")
	// ErrNotDescendant is returned when invalidating a head that does not descend from the given block.
	ErrNotDescendant = errors.New("head does not descend from block")
	// ErrPrunedBlock is returned when inserting a pruned block or a child of one.
	ErrPrunedBlock = errors.New("block was pruned")
)

// node is one block of the tree with links both ways.
type node struct {
	block    hash.Hash
	number   idx.Block
	parent   *node
	children []*node
}

// Tree is an in-memory block tree of unfinalized relay blocks. Leaves are the
// active heads. It is safe for concurrent use.
type Tree struct {
	mu      sync.RWMutex
	root    *node
	byBlock map[hash.Hash]*node
	pruned  map[hash.Hash]struct{}
}

// NewTree returns an empty tree. The first inserted block becomes the root.
func NewTree() *Tree {
	return &Tree{
		byBlock: make(map[hash.Hash]*node),
		pruned:  make(map[hash.Hash]struct{}),
	}
}

// Insert adds block as a child of parent. The first block, or the first after
// the root was pruned, may name any parent that was not pruned.
func (t *Tree) Insert(block, parent hash.Hash, number idx.Block) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byBlock[block]; ok {
		return errors.Wrapf(ErrDuplicateBlock, "block %s", block.String())
	}
	if _, ok := t.pruned[block]; ok {
		return errors.Wrapf(ErrPrunedBlock, "block %s", block.String())
	}
	if _, ok := t.pruned[parent]; ok {
		return errors.Wrapf(ErrPrunedBlock, "block %s parent %s", block.String(), parent.String())
	}
	n := &node{block: block, number: number}
	if t.root == nil {
		t.root = n
		t.byBlock[block] = n
		return nil
	}
	p, ok := t.byBlock[parent]
	if !ok {
		return errors.Wrapf(ErrUnknownParent, "block %s parent %s", block.String(), parent.String())
	}
	n.parent = p
	p.children = append(p.children, n)
	t.byBlock[block] = n
	return nil
}

// Has reports whether block is in the tree.
func (t *Tree) Has(block hash.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byBlock[block]
	return ok
}

// Number returns the height of block.
func (t *Tree) Number(block hash.Hash) (idx.Block, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byBlock[block]
	if !ok {
		return 0, false
	}
	return n.number, true
}

// Len is the number of blocks in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byBlock)
}

// Heads returns the leaves in hash order.
func (t *Tree) Heads() []hash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var heads []hash.Hash
	for h, n := range t.byBlock {
		if len(n.children) == 0 {
			heads = append(heads, h)
		}
	}
	sort.Slice(heads, func(i, j int) bool {
		return bytes.Compare(heads[i].Bytes(), heads[j].Bytes()) < 0
	})
	return heads
}

// IsDescendant walks parents from head and reports whether block is met.
// A head descends from itself.
func (t *Tree) IsDescendant(ctx context.Context, head, block hash.Hash) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.byBlock[head]
	if !ok {
		return false, errors.Wrapf(ErrUnknownBlock, "head %s", head.String())
	}
	for ; n != nil; n = n.parent {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if n.block == block {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateBranch prunes the subtree rooted at from, which removes head and
// every other branch built on from. A head already pruned is a no-op. The
// parent of from becomes a head again if from was its only child.
func (t *Tree) InvalidateBranch(ctx context.Context, head, from hash.Hash) ([]hash.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.byBlock[head]
	if !ok {
		return nil, nil
	}
	start, ok := t.byBlock[from]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %s", from.String())
	}
	descends := false
	for n := h; n != nil; n = n.parent {
		if n == start {
			descends = true
			break
		}
	}
	if !descends {
		return nil, errors.Wrapf(ErrNotDescendant, "head %s block %s", head.String(), from.String())
	}

	removed, err := collect(ctx, start)
	if err != nil {
		return nil, err
	}
	for _, b := range removed {
		delete(t.byBlock, b)
		t.pruned[b] = struct{}{}
	}
	if p := start.parent; p != nil {
		for i, c := range p.children {
			if c == start {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		start.parent = nil
	}
	if start == t.root {
		t.root = nil
	}
	return removed, nil
}

// collect lists n and all its descendants, depth first.
func collect(ctx context.Context, n *node) ([]hash.Hash, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	res := []hash.Hash{n.block}
	for _, c := range n.children {
		sub, err := collect(ctx, c)
		if err != nil {
			return nil, err
		}
		res = append(res, sub...)
	}
	return res, nil
}
