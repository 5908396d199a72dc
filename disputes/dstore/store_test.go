package dstore

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/isession"
)

func newTestStore() *Store {
	return New(memorydb.New())
}

func TestVotes(t *testing.T) {
	require := require.New(t)
	s := newTestStore()

	a := hash.Of([]byte("a"))
	b := hash.Of([]byte("b"))

	v, err := s.GetVote(a, 1)
	require.NoError(err)
	require.Nil(v)

	for _, vote := range []inter.ValidatorVote{
		{Validator: 3, Session: 1, Candidate: a, Valid: true},
		{Validator: 1, Session: 1, Candidate: a, Valid: false},
		{Validator: 2, Session: 1, Candidate: b, Valid: true},
	} {
		require.NoError(s.SetVote(vote, inter.ApprovalVote))
	}

	v, err = s.GetVote(a, 1)
	require.NoError(err)
	require.NotNil(v)
	require.False(v.Valid)
	require.Equal(idx.Epoch(1), v.Session)

	has, err := s.HasVote(a, 3)
	require.NoError(err)
	require.True(has)
	has, err = s.HasVote(b, 3)
	require.NoError(err)
	require.False(has)

	var seen []idx.ValidatorID
	require.NoError(s.ForEachVote(a, func(v inter.ValidatorVote) error {
		require.Equal(a, v.Candidate)
		seen = append(seen, v.Validator)
		return nil
	}))
	require.Equal([]idx.ValidatorID{1, 3}, seen, "votes iterate in validator order")

	n, err := s.DeleteVotes(a)
	require.NoError(err)
	require.Equal(2, n)
	has, err = s.HasVote(a, 1)
	require.NoError(err)
	require.False(has)
	has, err = s.HasVote(b, 2)
	require.NoError(err)
	require.True(has, "other candidates are untouched")
}

func TestTallies(t *testing.T) {
	require := require.New(t)
	s := newTestStore()
	c := hash.Of([]byte("c"))

	tally, err := s.GetTally(c)
	require.NoError(err)
	require.Nil(tally)

	require.NoError(s.SetTally(inter.DisputeTally{Candidate: c, Session: 2, Pro: 3, Against: 1}))
	tally, err = s.GetTally(c)
	require.NoError(err)
	require.Equal(uint32(3), tally.Pro)
	require.Equal(uint32(1), tally.Against)

	cs, err := s.TalliedCandidates()
	require.NoError(err)
	require.Equal([]hash.Hash{c}, cs)

	require.NoError(s.DeleteTally(c))
	tally, err = s.GetTally(c)
	require.NoError(err)
	require.Nil(tally)
}

func TestDisputesAndResolutions(t *testing.T) {
	require := require.New(t)
	s := newTestStore()

	open := inter.CandidateDispute{Candidate: hash.Of([]byte("open")), Session: 1, OpenedAt: 5}
	done := inter.CandidateDispute{Candidate: hash.Of([]byte("done")), Session: 1, OpenedAt: 4}
	require.NoError(done.Conclude(inter.Resolved, inter.Invalid, 6))
	require.NoError(s.SetDispute(open))
	require.NoError(s.SetDispute(done))

	got, err := s.GetDispute(done.Candidate)
	require.NoError(err)
	require.Equal(done, *got)

	opened, err := s.OpenDisputes()
	require.NoError(err)
	require.Len(opened, 1)
	require.Equal(open.Candidate, opened[0].Candidate)

	res := inter.Resolution{
		Candidate:   done.Candidate,
		Session:     1,
		Verdict:     inter.Invalid,
		Punished:    []idx.ValidatorID{2, 4},
		BlockNumber: 3,
		ConcludedAt: 6,
	}
	require.NoError(s.AddResolution(res))
	require.ErrorIs(s.AddResolution(inter.Resolution{Candidate: done.Candidate, Verdict: inter.Valid}), ErrResolutionExists)

	stored, err := s.GetResolution(done.Candidate)
	require.NoError(err)
	require.Equal(res.Hash(), stored.Hash(), "first resolution stands")
}

func TestBlacklist(t *testing.T) {
	require := require.New(t)
	s := newTestStore()
	h := hash.Of([]byte("bad"))

	ok, err := s.IsBlacklisted(h)
	require.NoError(err)
	require.False(ok)

	require.NoError(s.Blacklist(h))
	require.NoError(s.Blacklist(h))
	ok, err = s.IsBlacklisted(h)
	require.NoError(err)
	require.True(ok)

	all, err := s.BlacklistedBlocks()
	require.NoError(err)
	require.Equal([]hash.Hash{h}, all)
}

func TestPendingAvailability(t *testing.T) {
	require := require.New(t)
	p := NewPendingAvailability(newTestStore())

	first := PendingCommitment{
		Candidate:  hash.Of([]byte("first")),
		Descriptor: inter.CandidateDescriptor{ParaID: 7, PovHash: hash.Of([]byte("pov"))},
		HeadData:   inter.HeadData{0xde, 0xad},
		Core:       1,
		Group:      2,
	}
	require.NoError(p.Put(first))

	rc, err := p.Candidate(first.Candidate)
	require.NoError(err)
	require.Equal(inter.ParaID(7), rc.Descriptor.ParaID)
	require.Equal(inter.HeadData{0xde, 0xad}, rc.HeadData)
	require.Equal(uint32(2), rc.Group)

	second := first
	second.Candidate = hash.Of([]byte("second"))
	require.NoError(p.Put(second))

	_, err = p.Candidate(first.Candidate)
	require.ErrorIs(err, ErrUnknownCandidate, "replaced commitment is no longer indexed")
	_, err = p.Candidate(second.Candidate)
	require.NoError(err)

	require.NoError(p.Remove(7))
	_, err = p.Candidate(second.Candidate)
	require.ErrorIs(err, ErrUnknownCandidate)
	require.NoError(p.Remove(7))
}

func TestRecordAvailability(t *testing.T) {
	require := require.New(t)
	p := NewPendingAvailability(newTestStore())

	_, err := p.RecordAvailability(3, 0)
	require.ErrorIs(err, ErrUnknownCandidate)

	require.NoError(p.Put(PendingCommitment{
		Candidate:  hash.Of([]byte("c")),
		Descriptor: inter.CandidateDescriptor{ParaID: 3},
	}))
	for _, i := range []int{4, 0, 4, 11} {
		_, err := p.RecordAvailability(3, i)
		require.NoError(err)
	}
	c, err := p.Get(3)
	require.NoError(err)
	require.Equal(3, c.Available(), "a repeated report counts once")
	require.Equal([]byte{0x11, 0x08}, c.Availability)
}

func TestSessionMeta(t *testing.T) {
	require := require.New(t)
	s := newTestStore()

	_, ok, err := s.GetCurrentSession()
	require.NoError(err)
	require.False(ok)

	require.NoError(s.SetCurrentSession(9))
	session, ok, err := s.GetCurrentSession()
	require.NoError(err)
	require.True(ok)
	require.Equal(idx.Epoch(9), session)

	require.NoError(s.SetValidators([]idx.ValidatorID{5, 2, 8}))
	ids, err := s.GetValidators()
	require.NoError(err)
	require.Equal([]idx.ValidatorID{5, 2, 8}, ids)

	snap, err := isession.NewSnapshot(9, []isession.Member{{ID: 5}, {ID: 2}})
	require.NoError(err)
	require.NoError(s.SetSnapshot(snap))

	loaded, err := s.GetSnapshot(9)
	require.NoError(err)
	require.Equal(snap.IDs(), loaded.IDs())
	require.True(loaded.Contains(2), "membership set is rebuilt on load")

	missing, err := s.GetSnapshot(10)
	require.NoError(err)
	require.Nil(missing)
}
