package dstore

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter"
)

// VoteRecord is the stored part of a vote. Candidate and validator are the key.
type VoteRecord struct {
	Session idx.Epoch
	Valid   bool
	Source  inter.VoteSource
}

func voteKey(candidate hash.Hash, validator idx.ValidatorID) []byte {
	return append(candidate.Bytes(), bigendian.Uint32ToBytes(uint32(validator))...)
}

// GetVote returns the vote of validator on candidate, nil if it never voted.
func (s *Store) GetVote(candidate hash.Hash, validator idx.ValidatorID) (*inter.ValidatorVote, error) {
	var rec VoteRecord
	ok, err := get(s.table.Votes, voteKey(candidate, validator), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &inter.ValidatorVote{
		Validator: validator,
		Session:   rec.Session,
		Candidate: candidate,
		Valid:     rec.Valid,
	}, nil
}

// HasVote reports whether validator already voted on candidate in any session.
func (s *Store) HasVote(candidate hash.Hash, validator idx.ValidatorID) (bool, error) {
	ok, err := s.table.Votes.Has(voteKey(candidate, validator))
	return ok, errors.Wrap(err, "failed to check vote")
}

// SetVote stores a vote. It overwrites, so callers check HasVote first.
func (s *Store) SetVote(v inter.ValidatorVote, source inter.VoteSource) error {
	return set(s.table.Votes, voteKey(v.Candidate, v.Validator), &VoteRecord{
		Session: v.Session,
		Valid:   v.Valid,
		Source:  source,
	})
}

// ForEachVote iterates the votes on candidate in validator order.
func (s *Store) ForEachVote(candidate hash.Hash, fn func(inter.ValidatorVote) error) error {
	return forEach(s.table.Votes, candidate.Bytes(), func(key, val []byte) error {
		var rec VoteRecord
		if err := decode(val, &rec); err != nil {
			return errors.Wrapf(err, "vote %x", key)
		}
		return fn(inter.ValidatorVote{
			Validator: idx.ValidatorID(bigendian.BytesToUint32(key[len(key)-4:])),
			Session:   rec.Session,
			Candidate: candidate,
			Valid:     rec.Valid,
		})
	})
}

// DeleteVotes removes every vote on candidate.
func (s *Store) DeleteVotes(candidate hash.Hash) (int, error) {
	return deletePrefix(s.table.Votes, candidate.Bytes())
}

// GetTally returns the counters of candidate, nil if nobody voted yet.
func (s *Store) GetTally(candidate hash.Hash) (*inter.DisputeTally, error) {
	var t inter.DisputeTally
	ok, err := get(s.table.Tallies, candidate.Bytes(), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// SetTally stores the counters of t.Candidate.
func (s *Store) SetTally(t inter.DisputeTally) error {
	return set(s.table.Tallies, t.Candidate.Bytes(), &t)
}

// DeleteTally removes the counters of candidate.
func (s *Store) DeleteTally(candidate hash.Hash) error {
	return errors.Wrap(s.table.Tallies.Delete(candidate.Bytes()), "failed to delete tally")
}

// TalliedCandidates lists candidates with a tally, in key order.
func (s *Store) TalliedCandidates() ([]hash.Hash, error) {
	var res []hash.Hash
	err := forEach(s.table.Tallies, nil, func(key, _ []byte) error {
		res = append(res, hash.BytesToHash(key))
		return nil
	})
	return res, err
}
