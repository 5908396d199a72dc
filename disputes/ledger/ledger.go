// Package ledger records validator votes on disputed candidates and keeps the
// running pro/against counters for each of them.
//
// A validator votes at most once per candidate. The first vote is final: a
// repeated vote is rejected whether it agrees with the first one or not, and
// nothing is written. Counters are updated together with the vote, so reading
// a tally never scans votes.
package ledger

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/isession"
)

var log = logrus.WithField("prefix", "ledger")

var (
	// ErrUnknownValidator is returned for a vote from outside the live validator set.
	ErrUnknownValidator = errors.New("unknown validator")
	// ErrDuplicateVote is returned when the validator already voted on the candidate.
	ErrDuplicateVote = errors.New("duplicate vote")
	// ErrStaleSession is returned for a vote signed for another session than the live one.
	ErrStaleSession = errors.New("vote session is not the live session")
	// ErrNoSession is returned before the first session snapshot is installed.
	ErrNoSession = errors.New("no live session")
)

// Ledger owns the votes and tallies of the dispute store.
type Ledger struct {
	store *dstore.Store
	live  *isession.Live
}

// New returns a ledger that checks votes against the snapshot held by live.
func New(store *dstore.Store, live *isession.Live) *Ledger {
	return &Ledger{store: store, live: live}
}

// SubmitVote records vote and returns the updated tally of its candidate.
// On error nothing is written.
func (l *Ledger) SubmitVote(vote inter.ValidatorVote, source inter.VoteSource) (inter.DisputeTally, error) {
	snap := l.live.Load()
	if snap == nil {
		return inter.DisputeTally{}, ErrNoSession
	}
	if vote.Session != snap.Session {
		return inter.DisputeTally{}, errors.Wrapf(ErrStaleSession, "vote session %d, live %d", vote.Session, snap.Session)
	}
	if !snap.Contains(vote.Validator) {
		return inter.DisputeTally{}, errors.Wrapf(ErrUnknownValidator, "validator %d", vote.Validator)
	}
	voted, err := l.store.HasVote(vote.Candidate, vote.Validator)
	if err != nil {
		return inter.DisputeTally{}, err
	}
	if voted {
		return inter.DisputeTally{}, errors.Wrapf(ErrDuplicateVote, "validator %d on %s", vote.Validator, vote.Candidate.String())
	}

	tally, err := l.Tally(vote.Candidate)
	if err != nil {
		return inter.DisputeTally{}, err
	}
	if tally.Total() == 0 {
		tally.Session = vote.Session
	}
	if vote.Valid {
		tally.Pro++
	} else {
		tally.Against++
	}

	if err := l.store.SetVote(vote, source); err != nil {
		return inter.DisputeTally{}, err
	}
	if err := l.store.SetTally(tally); err != nil {
		return inter.DisputeTally{}, err
	}
	log.WithField("vote", vote.String()).WithField("source", source.String()).Debug("Vote recorded")
	return tally, nil
}

// Tally returns the counters of candidate. A candidate nobody voted on has a zero tally.
func (l *Ledger) Tally(candidate hash.Hash) (inter.DisputeTally, error) {
	t, err := l.store.GetTally(candidate)
	if err != nil {
		return inter.DisputeTally{}, err
	}
	if t == nil {
		return inter.DisputeTally{Candidate: candidate}, nil
	}
	return *t, nil
}

// Vote returns the vote of validator on candidate, nil if there is none.
func (l *Ledger) Vote(candidate hash.Hash, validator idx.ValidatorID) (*inter.ValidatorVote, error) {
	return l.store.GetVote(candidate, validator)
}

// Voters returns, in ascending ID order, the validators that cast the bit valid on candidate.
func (l *Ledger) Voters(candidate hash.Hash, valid bool) ([]idx.ValidatorID, error) {
	var ids []idx.ValidatorID
	err := l.store.ForEachVote(candidate, func(v inter.ValidatorVote) error {
		if v.Valid == valid {
			ids = append(ids, v.Validator)
		}
		return nil
	})
	return ids, err
}

// Candidates lists every candidate that has at least one vote.
func (l *Ledger) Candidates() ([]hash.Hash, error) {
	return l.store.TalliedCandidates()
}

// Purge removes the votes and the tally of candidate and returns how many votes were removed.
func (l *Ledger) Purge(candidate hash.Hash) (int, error) {
	n, err := l.store.DeleteVotes(candidate)
	if err != nil {
		return 0, err
	}
	if err := l.store.DeleteTally(candidate); err != nil {
		return n, err
	}
	return n, nil
}
