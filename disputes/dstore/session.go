package dstore

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter/isession"
)

var (
	sessionKey    = []byte("session")
	validatorsKey = []byte("validators")
)

// SetSnapshot persists the validator set of s.Session.
func (s *Store) SetSnapshot(snap *isession.Snapshot) error {
	return set(s.table.Snapshots, snap.Session.Bytes(), snap)
}

// GetSnapshot loads the validator set of session, nil if it was never stored.
func (s *Store) GetSnapshot(session idx.Epoch) (*isession.Snapshot, error) {
	var stored isession.Snapshot
	ok, err := get(s.table.Snapshots, session.Bytes(), &stored)
	if err != nil || !ok {
		return nil, err
	}
	snap, err := isession.NewSnapshot(stored.Session, stored.Members)
	return snap, errors.Wrapf(err, "session %d", session)
}

// SetCurrentSession records the index of the live session.
func (s *Store) SetCurrentSession(session idx.Epoch) error {
	return errors.Wrap(s.table.Meta.Put(sessionKey, session.Bytes()), "failed to set session")
}

// GetCurrentSession returns the live session index. ok is false before the first session.
func (s *Store) GetCurrentSession() (session idx.Epoch, ok bool, err error) {
	buf, err := s.table.Meta.Get(sessionKey)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to get session")
	}
	if buf == nil {
		return 0, false, nil
	}
	return idx.Epoch(bigendian.BytesToUint32(buf)), true, nil
}

// SetValidators records the ordered validator list of the live session.
func (s *Store) SetValidators(ids []idx.ValidatorID) error {
	return set(s.table.Meta, validatorsKey, ids)
}

// GetValidators returns the ordered validator list of the live session.
func (s *Store) GetValidators() ([]idx.ValidatorID, error) {
	var ids []idx.ValidatorID
	_, err := get(s.table.Meta, validatorsKey, &ids)
	return ids, err
}
