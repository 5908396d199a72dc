// Package dstore is the persistent state of the dispute core.
//
// Everything lives in one lachesis kvdb.Store split into prefixed tables.
// Records are RLP encoded; keys are fixed-width big-endian so that prefix
// iteration walks them in numeric order. A nil value from Get means "absent".
//
//	v  candidate|validator -> VoteRecord
//	t  candidate           -> inter.DisputeTally
//	d  candidate           -> inter.CandidateDispute
//	r  candidate           -> inter.Resolution
//	b  block               -> blacklist marker
//	p  para                -> PendingCommitment
//	c  candidate           -> para
//	s  session             -> isession.Snapshot
//	i  meta keys           -> current session, ordered validator list
package dstore

import (
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "dstore")

// Store is the dispute state over a kvdb.Store.
type Store struct {
	db kvdb.Store

	table struct {
		Votes       kvdb.Store
		Tallies     kvdb.Store
		Disputes    kvdb.Store
		Resolutions kvdb.Store
		Blacklist   kvdb.Store
		Pending     kvdb.Store
		Candidates  kvdb.Store
		Snapshots   kvdb.Store
		Meta        kvdb.Store
	}
}

// New wraps db. The caller keeps ownership of db and closes it.
func New(db kvdb.Store) *Store {
	s := &Store{db: db}
	s.table.Votes = table.New(db, []byte("v"))
	s.table.Tallies = table.New(db, []byte("t"))
	s.table.Disputes = table.New(db, []byte("d"))
	s.table.Resolutions = table.New(db, []byte("r"))
	s.table.Blacklist = table.New(db, []byte("b"))
	s.table.Pending = table.New(db, []byte("p"))
	s.table.Candidates = table.New(db, []byte("c"))
	s.table.Snapshots = table.New(db, []byte("s"))
	s.table.Meta = table.New(db, []byte("i"))
	return s
}

// get decodes the record under key into to. It reports false when the key is absent.
func get(t kvdb.Store, key []byte, to interface{}) (bool, error) {
	buf, err := t.Get(key)
	if err != nil {
		return false, errors.Wrapf(err, "failed to get %x", key)
	}
	if buf == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(buf, to); err != nil {
		return false, errors.Wrapf(err, "failed to decode %x", key)
	}
	return true, nil
}

func decode(buf []byte, to interface{}) error {
	return rlp.DecodeBytes(buf, to)
}

func set(t kvdb.Store, key []byte, val interface{}) error {
	buf, err := rlp.EncodeToBytes(val)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %x", key)
	}
	if err := t.Put(key, buf); err != nil {
		return errors.Wrapf(err, "failed to put %x", key)
	}
	return nil
}

// forEach calls fn for every key/value under prefix. Keys are copied, so fn may keep them.
func forEach(t kvdb.Store, prefix []byte, fn func(key, val []byte) error) error {
	it := t.NewIterator(prefix, nil)
	defer it.Release()
	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		if err := fn(key, it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// deletePrefix removes every key under prefix and returns how many were removed.
func deletePrefix(t kvdb.Store, prefix []byte) (int, error) {
	var keys [][]byte
	err := forEach(t, prefix, func(key, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := t.Delete(key); err != nil {
			return 0, errors.Wrapf(err, "failed to delete %x", key)
		}
	}
	if len(keys) > 0 {
		log.WithField("keys", len(keys)).Debugf("Deleted prefix %x", prefix)
	}
	return len(keys), nil
}
