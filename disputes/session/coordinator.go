// Package session applies session boundaries to the dispute state.
//
// A new session installs a new validator snapshot. Disputes that are still
// open keep their votes and tallies and continue in the new session; the votes
// of disputes that were resolved or timed out are dropped.
package session

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/disputes/ledger"
	"github.com/rony4d/go-disputes/inter/isession"
)

var log = logrus.WithField("prefix", "session")

var (
	// ErrSessionRegression is returned for a notification that does not move the session forward.
	ErrSessionRegression = errors.New("session does not advance")
	// ErrUnknownSession is returned when no snapshot was stored for a session.
	ErrUnknownSession = errors.New("unknown session")
)

// Notification announces a session boundary.
type Notification struct {
	Session    idx.Epoch
	Validators []isession.Member
}

// Rollover reports what a session change did to the dispute state.
type Rollover struct {
	Previous idx.Epoch
	Session  idx.Epoch
	// Retained are candidates with open disputes whose votes were carried over.
	Retained []hash.Hash
	// Purged are candidates of concluded disputes whose votes were dropped.
	Purged      []hash.Hash
	PurgedVotes int
}

// Coordinator is the only writer of the live snapshot.
type Coordinator struct {
	store  *dstore.Store
	ledger *ledger.Ledger
	live   *isession.Live
}

// NewCoordinator returns a coordinator writing snapshots into live.
func NewCoordinator(store *dstore.Store, l *ledger.Ledger, live *isession.Live) *Coordinator {
	return &Coordinator{store: store, ledger: l, live: live}
}

// Current returns the live snapshot, nil before the first session.
func (c *Coordinator) Current() *isession.Snapshot {
	return c.live.Load()
}

// Restore installs the last persisted session, if any. It reports whether one was found.
func (c *Coordinator) Restore() (bool, error) {
	session, ok, err := c.store.GetCurrentSession()
	if err != nil || !ok {
		return false, err
	}
	snap, err := c.store.GetSnapshot(session)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, errors.Wrapf(ErrUnknownSession, "session %d has no snapshot", session)
	}
	c.live.Store(snap)
	log.WithField("session", session).WithField("validators", snap.Len()).Info("Session restored")
	return true, nil
}

// OnNewSession persists the new snapshot, applies vote retention and then
// swaps the snapshot in.
func (c *Coordinator) OnNewSession(n Notification) (Rollover, error) {
	prev := c.live.Load()
	out := Rollover{Session: n.Session}
	if prev != nil {
		if n.Session <= prev.Session {
			return out, errors.Wrapf(ErrSessionRegression, "live %d, notified %d", prev.Session, n.Session)
		}
		out.Previous = prev.Session
	}

	snap, err := isession.NewSnapshot(n.Session, n.Validators)
	if err != nil {
		return out, errors.Wrapf(err, "session %d", n.Session)
	}
	if err := c.store.SetSnapshot(snap); err != nil {
		return out, err
	}
	if err := c.store.SetValidators(snap.IDs()); err != nil {
		return out, err
	}
	if err := c.store.SetCurrentSession(n.Session); err != nil {
		return out, err
	}

	candidates, err := c.ledger.Candidates()
	if err != nil {
		return out, err
	}
	for _, candidate := range candidates {
		d, err := c.store.GetDispute(candidate)
		if err != nil {
			return out, err
		}
		if d == nil || !d.State.Concluded() {
			out.Retained = append(out.Retained, candidate)
			continue
		}
		removed, err := c.ledger.Purge(candidate)
		if err != nil {
			return out, errors.Wrapf(err, "could not purge %s", candidate.String())
		}
		out.Purged = append(out.Purged, candidate)
		out.PurgedVotes += removed
	}

	c.live.Store(snap)

	log.WithFields(logrus.Fields{
		"session":    n.Session,
		"validators": snap.Len(),
		"retained":   len(out.Retained),
		"purged":     len(out.Purged),
	}).Info("New session")
	return out, nil
}

// Archive answers validator-history queries from persisted snapshots.
type Archive struct {
	store *dstore.Store
}

// NewArchive returns the history view of store.
func NewArchive(store *dstore.Store) *Archive {
	return &Archive{store: store}
}

// OriginalValidators returns the validator set of session in session order.
func (a *Archive) OriginalValidators(session idx.Epoch) ([]idx.ValidatorID, error) {
	snap, err := a.store.GetSnapshot(session)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.Wrapf(ErrUnknownSession, "session %d", session)
	}
	return snap.IDs(), nil
}
