package dstore

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter"
)

// ErrResolutionExists is returned when a second resolution is written for a candidate.
var ErrResolutionExists = errors.New("resolution already recorded")

// GetDispute returns the lifecycle record of candidate, nil if it was never disputed.
func (s *Store) GetDispute(candidate hash.Hash) (*inter.CandidateDispute, error) {
	var d inter.CandidateDispute
	ok, err := get(s.table.Disputes, candidate.Bytes(), &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

// SetDispute stores d under d.Candidate.
func (s *Store) SetDispute(d inter.CandidateDispute) error {
	return set(s.table.Disputes, d.Candidate.Bytes(), &d)
}

// ForEachDispute iterates all dispute records in candidate order.
func (s *Store) ForEachDispute(fn func(inter.CandidateDispute) error) error {
	return forEach(s.table.Disputes, nil, func(key, val []byte) error {
		var d inter.CandidateDispute
		if err := decode(val, &d); err != nil {
			return errors.Wrapf(err, "dispute %x", key)
		}
		return fn(d)
	})
}

// OpenDisputes returns every dispute still in state Open.
func (s *Store) OpenDisputes() ([]inter.CandidateDispute, error) {
	var res []inter.CandidateDispute
	err := s.ForEachDispute(func(d inter.CandidateDispute) error {
		if d.State == inter.Open {
			res = append(res, d)
		}
		return nil
	})
	return res, err
}

// GetResolution returns the resolution of candidate, nil if it has none.
func (s *Store) GetResolution(candidate hash.Hash) (*inter.Resolution, error) {
	var r inter.Resolution
	ok, err := get(s.table.Resolutions, candidate.Bytes(), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// AddResolution stores r. A resolution is written once; a second write fails
// with ErrResolutionExists and leaves the first one in place.
func (s *Store) AddResolution(r inter.Resolution) error {
	exists, err := s.table.Resolutions.Has(r.Candidate.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to check resolution")
	}
	if exists {
		return errors.Wrapf(ErrResolutionExists, "candidate %s", r.Candidate.String())
	}
	return set(s.table.Resolutions, r.Candidate.Bytes(), &r)
}

// ForEachResolution iterates resolutions in candidate order.
func (s *Store) ForEachResolution(fn func(inter.Resolution) error) error {
	return forEach(s.table.Resolutions, nil, func(key, val []byte) error {
		var r inter.Resolution
		if err := decode(val, &r); err != nil {
			return errors.Wrapf(err, "resolution %x", key)
		}
		return fn(r)
	})
}

var blacklisted = []byte{1}

// Blacklist marks block as permanently barred. There is no way to undo it.
func (s *Store) Blacklist(block hash.Hash) error {
	return errors.Wrap(s.table.Blacklist.Put(block.Bytes(), blacklisted), "failed to blacklist")
}

// IsBlacklisted reports whether block was barred.
func (s *Store) IsBlacklisted(block hash.Hash) (bool, error) {
	ok, err := s.table.Blacklist.Has(block.Bytes())
	return ok, errors.Wrap(err, "failed to check blacklist")
}

// BlacklistedBlocks lists every barred block in hash order.
func (s *Store) BlacklistedBlocks() ([]hash.Hash, error) {
	var res []hash.Hash
	err := forEach(s.table.Blacklist, nil, func(key, _ []byte) error {
		res = append(res, hash.BytesToHash(key))
		return nil
	})
	return res, err
}
