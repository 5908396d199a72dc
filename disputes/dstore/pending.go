package dstore

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/utils/bits"
)

// ErrUnknownCandidate is returned when no pending commitment names the candidate.
var ErrUnknownCandidate = errors.New("unknown candidate")

// PendingCommitment is a candidate occupying a core while availability is collected.
type PendingCommitment struct {
	Candidate  hash.Hash
	Descriptor inter.CandidateDescriptor
	HeadData   inter.HeadData
	Core       uint32
	Group      uint32
	// Availability has one bit per validator of the session that reported the chunk.
	Availability      []byte
	RelayParentNumber idx.Block
	BackedIn          idx.Block
}

// Receipt is the candidate receipt derived from the commitment.
func (c PendingCommitment) Receipt() inter.CandidateReceipt {
	return inter.CandidateReceipt{
		Candidate:  c.Candidate,
		Descriptor: c.Descriptor,
		HeadData:   append(inter.HeadData(nil), c.HeadData...),
		Core:       c.Core,
		Group:      c.Group,
	}
}

// Available is how many validators reported their chunk.
func (c PendingCommitment) Available() int {
	return bits.Wrap(c.Availability).Count()
}

func paraKey(para inter.ParaID) []byte {
	return bigendian.Uint32ToBytes(uint32(para))
}

// PendingAvailability is the store-backed candidate provider. One commitment is
// pending per para; a new one replaces the old and drops its candidate index.
type PendingAvailability struct {
	s *Store
}

// NewPendingAvailability returns the pending-availability view of s.
func NewPendingAvailability(s *Store) *PendingAvailability {
	return &PendingAvailability{s: s}
}

// Put records c as the pending commitment of its para.
func (p *PendingAvailability) Put(c PendingCommitment) error {
	para := c.Descriptor.ParaID
	prev, err := p.Get(para)
	if err != nil {
		return err
	}
	if prev != nil && prev.Candidate != c.Candidate {
		if err := p.s.table.Candidates.Delete(prev.Candidate.Bytes()); err != nil {
			return errors.Wrap(err, "failed to drop candidate index")
		}
	}
	if err := set(p.s.table.Pending, paraKey(para), &c); err != nil {
		return err
	}
	return errors.Wrap(p.s.table.Candidates.Put(c.Candidate.Bytes(), paraKey(para)), "failed to index candidate")
}

// Get returns the pending commitment of para, nil if the core is free.
func (p *PendingAvailability) Get(para inter.ParaID) (*PendingCommitment, error) {
	var c PendingCommitment
	ok, err := get(p.s.table.Pending, paraKey(para), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// RecordAvailability marks validator index i as holding its chunk of the
// candidate pending for para and returns how many validators now do.
func (p *PendingAvailability) RecordAvailability(para inter.ParaID, i int) (int, error) {
	c, err := p.Get(para)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, errors.Wrapf(ErrUnknownCandidate, "para %d has no pending candidate", para)
	}
	field := bits.Wrap(c.Availability)
	if !field.Set(i) {
		return field.Count(), nil
	}
	c.Availability = field.Bytes
	if err := set(p.s.table.Pending, paraKey(para), c); err != nil {
		return 0, err
	}
	return field.Count(), nil
}

// Remove frees the core of para.
func (p *PendingAvailability) Remove(para inter.ParaID) error {
	prev, err := p.Get(para)
	if err != nil || prev == nil {
		return err
	}
	if err := p.s.table.Candidates.Delete(prev.Candidate.Bytes()); err != nil {
		return errors.Wrap(err, "failed to drop candidate index")
	}
	return errors.Wrap(p.s.table.Pending.Delete(paraKey(para)), "failed to drop commitment")
}

// Candidate returns the receipt of the candidate included in block.
func (p *PendingAvailability) Candidate(block hash.Hash) (inter.CandidateReceipt, error) {
	buf, err := p.s.table.Candidates.Get(block.Bytes())
	if err != nil {
		return inter.CandidateReceipt{}, errors.Wrap(err, "failed to read candidate index")
	}
	if buf == nil {
		return inter.CandidateReceipt{}, errors.Wrapf(ErrUnknownCandidate, "block %s", block.String())
	}
	c, err := p.Get(inter.ParaID(bigendian.BytesToUint32(buf)))
	if err != nil {
		return inter.CandidateReceipt{}, err
	}
	if c == nil || c.Candidate != block {
		return inter.CandidateReceipt{}, errors.Wrapf(ErrUnknownCandidate, "block %s", block.String())
	}
	return c.Receipt(), nil
}
