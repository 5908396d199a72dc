package session

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/disputes/ledger"
	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/isession"
)

type testEnv struct {
	store  *dstore.Store
	ledger *ledger.Ledger
	coord  *Coordinator
}

func newEnv() *testEnv {
	store := dstore.New(memorydb.New())
	live := &isession.Live{}
	l := ledger.New(store, live)
	return &testEnv{store: store, ledger: l, coord: NewCoordinator(store, l, live)}
}

func notification(session idx.Epoch, ids ...idx.ValidatorID) Notification {
	n := Notification{Session: session}
	for _, id := range ids {
		n.Validators = append(n.Validators, isession.Member{ID: id})
	}
	return n
}

func (e *testEnv) vote(t *testing.T, c hash.Hash, session idx.Epoch, id idx.ValidatorID, valid bool) {
	_, err := e.ledger.SubmitVote(inter.ValidatorVote{Validator: id, Session: session, Candidate: c, Valid: valid}, inter.ApprovalVote)
	require.NoError(t, err)
}

func TestFirstSession(t *testing.T) {
	require := require.New(t)
	e := newEnv()
	require.Nil(e.coord.Current())

	out, err := e.coord.OnNewSession(notification(1, 1, 2, 3))
	require.NoError(err)
	require.Equal(idx.Epoch(1), out.Session)
	require.Equal(3, e.coord.Current().Len())

	ids, err := e.store.GetValidators()
	require.NoError(err)
	require.Equal([]idx.ValidatorID{1, 2, 3}, ids)
	session, ok, err := e.store.GetCurrentSession()
	require.NoError(err)
	require.True(ok)
	require.Equal(idx.Epoch(1), session)
}

func TestSessionRegression(t *testing.T) {
	require := require.New(t)
	e := newEnv()

	_, err := e.coord.OnNewSession(notification(5, 1))
	require.NoError(err)
	_, err = e.coord.OnNewSession(notification(5, 1, 2))
	require.ErrorIs(err, ErrSessionRegression)
	_, err = e.coord.OnNewSession(notification(4, 1, 2))
	require.ErrorIs(err, ErrSessionRegression)
	require.Equal(idx.Epoch(5), e.coord.Current().Session)

	_, err = e.coord.OnNewSession(notification(6, 1, 1))
	require.ErrorIs(err, isession.ErrDuplicateMember)
	require.Equal(idx.Epoch(5), e.coord.Current().Session, "failed rollover keeps the live snapshot")
}

// TestRolloverRetention: open disputes keep their tallies, concluded ones lose their votes.
func TestRolloverRetention(t *testing.T) {
	require := require.New(t)
	e := newEnv()
	_, err := e.coord.OnNewSession(notification(1, 1, 2, 3, 4))
	require.NoError(err)

	open := hash.Of([]byte("open"))
	resolved := hash.Of([]byte("resolved"))
	timedOut := hash.Of([]byte("timed out"))

	for _, c := range []hash.Hash{open, resolved, timedOut} {
		require.NoError(e.store.SetDispute(inter.CandidateDispute{Candidate: c, Session: 1, OpenedAt: 10}))
	}
	e.vote(t, open, 1, 1, true)
	e.vote(t, open, 1, 2, false)
	e.vote(t, resolved, 1, 1, false)
	e.vote(t, resolved, 1, 3, false)
	e.vote(t, timedOut, 1, 4, true)

	d, _ := e.store.GetDispute(resolved)
	require.NoError(d.Conclude(inter.Resolved, inter.Invalid, 12))
	require.NoError(e.store.SetDispute(*d))
	d, _ = e.store.GetDispute(timedOut)
	require.NoError(d.Conclude(inter.TimedOut, inter.Undecided, 20))
	require.NoError(e.store.SetDispute(*d))

	before, err := e.ledger.Tally(open)
	require.NoError(err)

	out, err := e.coord.OnNewSession(notification(2, 1, 2, 3, 4, 5))
	require.NoError(err)
	require.Equal(idx.Epoch(1), out.Previous)
	require.Equal([]hash.Hash{open}, out.Retained)
	require.ElementsMatch([]hash.Hash{resolved, timedOut}, out.Purged)
	require.Equal(3, out.PurgedVotes)

	after, err := e.ledger.Tally(open)
	require.NoError(err)
	require.Equal(before, after, "open tally carried over unchanged")

	for _, c := range []hash.Hash{resolved, timedOut} {
		tally, err := e.ledger.Tally(c)
		require.NoError(err)
		require.Zero(tally.Total())
		v, err := e.ledger.Vote(c, 1)
		require.NoError(err)
		require.Nil(v)
	}

	// resolution records outlive the votes
	d, err = e.store.GetDispute(resolved)
	require.NoError(err)
	require.Equal(inter.Resolved, d.State)

	// the carried-over dispute accepts votes of the new session
	e.vote(t, open, 2, 5, false)
	after, err = e.ledger.Tally(open)
	require.NoError(err)
	require.Equal(uint32(2), after.Against)
}

func TestRestoreAndArchive(t *testing.T) {
	require := require.New(t)
	e := newEnv()

	ok, err := e.coord.Restore()
	require.NoError(err)
	require.False(ok)

	_, err = e.coord.OnNewSession(notification(1, 7, 8))
	require.NoError(err)
	_, err = e.coord.OnNewSession(notification(2, 8, 9))
	require.NoError(err)

	archive := NewArchive(e.store)
	ids, err := archive.OriginalValidators(1)
	require.NoError(err)
	require.Equal([]idx.ValidatorID{7, 8}, ids)
	_, err = archive.OriginalValidators(3)
	require.ErrorIs(err, ErrUnknownSession)

	// a fresh coordinator over the same store picks up session 2
	live := &isession.Live{}
	restored := NewCoordinator(e.store, ledger.New(e.store, live), live)
	ok, err = restored.Restore()
	require.NoError(err)
	require.True(ok)
	require.Equal(idx.Epoch(2), restored.Current().Session)
	require.True(restored.Current().Contains(9))
}
