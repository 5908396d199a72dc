// Package isession defines the validator-set snapshot a session runs with.
//
// A Snapshot is built once per session boundary and never mutated afterwards.
// Every vote submitted during the session is checked against the live snapshot,
// so replacing it is a single pointer swap through Live: readers see either the
// old set or the new set, never a mix of both.
package isession

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-disputes/inter/validatorpk"
)

var (
	// ErrDuplicateMember is returned when a validator appears twice in one session.
	ErrDuplicateMember = errors.New("duplicate validator in session")
	// ErrEmptyValidatorSet is returned for a session without validators.
	ErrEmptyValidatorSet = errors.New("empty validator set")
)

// Member is one validator of a session together with the key it announced for it.
type Member struct {
	ID         idx.ValidatorID
	SessionKey validatorpk.PubKey
}

// Snapshot is the ordered validator set of one session.
type Snapshot struct {
	Session idx.Epoch
	Members []Member

	set *pos.Validators
}

// NewSnapshot builds a snapshot preserving the order of members.
func NewSnapshot(session idx.Epoch, members []Member) (*Snapshot, error) {
	if len(members) == 0 {
		return nil, ErrEmptyValidatorSet
	}
	seen := make(map[idx.ValidatorID]struct{}, len(members))
	ids := make([]idx.ValidatorID, 0, len(members))
	cp := make([]Member, len(members))
	for i, m := range members {
		if _, ok := seen[m.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMember, m.ID)
		}
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
		cp[i] = Member{ID: m.ID, SessionKey: m.SessionKey.Copy()}
	}
	return &Snapshot{
		Session: session,
		Members: cp,
		set:     pos.EqualWeightValidators(ids, 1),
	}, nil
}

// Contains reports whether id is a validator of the session.
func (s *Snapshot) Contains(id idx.ValidatorID) bool {
	if s == nil {
		return false
	}
	return s.set.Exists(id)
}

// Len is the size of the validator set.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Members)
}

// IDs returns validator IDs in session order.
func (s *Snapshot) IDs() []idx.ValidatorID {
	if s == nil {
		return nil
	}
	ids := make([]idx.ValidatorID, len(s.Members))
	for i, m := range s.Members {
		ids[i] = m.ID
	}
	return ids
}

// Validators exposes the set as equal-weight lachesis validators.
func (s *Snapshot) Validators() *pos.Validators {
	return s.set
}

// Member returns the member entry of id.
func (s *Snapshot) Member(id idx.ValidatorID) (Member, bool) {
	if !s.Contains(id) {
		return Member{}, false
	}
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Copy returns a deep copy.
func (s *Snapshot) Copy() *Snapshot {
	if s == nil {
		return nil
	}
	cp, err := NewSnapshot(s.Session, s.Members)
	if err != nil {
		// s was built by NewSnapshot, so its members are already valid
		panic(err)
	}
	return cp
}

// Hash is the SHA256 of the RLP-encoded session index and members.
func (s *Snapshot) Hash() hash.Hash {
	hasher := sha256.New()
	err := rlp.Encode(hasher, s)
	if err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}

// Live holds the current snapshot. Load and Store are atomic, so the snapshot
// can be swapped while readers hold the previous one.
type Live struct {
	v atomic.Value
}

// Load returns the current snapshot, nil before the first Store.
func (l *Live) Load() *Snapshot {
	s, _ := l.v.Load().(*Snapshot)
	return s
}

// Store makes s the current snapshot.
func (l *Live) Store(s *Snapshot) {
	l.v.Store(s)
}
