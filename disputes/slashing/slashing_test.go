package slashing

import (
	"math/rand"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/drivertype"
)

type fakeVotes struct {
	pro, against []idx.ValidatorID
}

func (f fakeVotes) Voters(_ hash.Hash, valid bool) ([]idx.ValidatorID, error) {
	if valid {
		return f.pro, nil
	}
	return f.against, nil
}

type fakeHistory map[idx.Epoch][]idx.ValidatorID

func (f fakeHistory) OriginalValidators(session idx.Epoch) ([]idx.ValidatorID, error) {
	ids, ok := f[session]
	if !ok {
		return nil, errors.New("no such session")
	}
	return ids, nil
}

var candidate = hash.Of([]byte("candidate"))

func TestSelectOffendersInvalid(t *testing.T) {
	require := require.New(t)

	s := NewScheduler(
		fakeVotes{pro: []idx.ValidatorID{2, 5}, against: []idx.ValidatorID{1, 3, 4}},
		fakeHistory{7: {3, 5, 6}},
		nil,
	)
	offenders, err := s.SelectOffenders(inter.Invalid, candidate, 7)
	require.NoError(err)

	require.Equal([]drivertype.Offender{
		{ValidatorID: 2, Status: drivertype.AttestedInvalidBit},
		{ValidatorID: 5, Status: drivertype.AttestedInvalidBit | drivertype.BackedInvalidBit},
		{ValidatorID: 6, Status: drivertype.BackedInvalidBit},
	}, offenders, "backer 3 voted invalid and is spared")
}

func TestSelectOffendersValid(t *testing.T) {
	require := require.New(t)

	s := NewScheduler(
		fakeVotes{pro: []idx.ValidatorID{1, 2, 3}, against: []idx.ValidatorID{9, 4}},
		fakeHistory{},
		nil,
	)
	offenders, err := s.SelectOffenders(inter.Valid, candidate, 7)
	require.NoError(err, "history is not consulted for a valid verdict")
	require.Equal([]drivertype.Offender{
		{ValidatorID: 4, Status: drivertype.FalseAccusationBit},
		{ValidatorID: 9, Status: drivertype.FalseAccusationBit},
	}, offenders)
}

func TestSelectOffendersErrors(t *testing.T) {
	require := require.New(t)

	s := NewScheduler(fakeVotes{}, fakeHistory{}, nil)
	_, err := s.SelectOffenders(inter.Undecided, candidate, 1)
	require.ErrorIs(err, ErrNoVerdict)

	_, err = s.SelectOffenders(inter.Invalid, candidate, 1)
	require.Error(err, "missing history fails an invalid verdict")
}

// TestOffendersDisjointFromWinners checks on random vote splits that nobody
// on the winning side is ever punished.
func TestOffendersDisjointFromWinners(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(60)
		var votes fakeVotes
		var backers []idx.ValidatorID
		for id := idx.ValidatorID(1); id <= idx.ValidatorID(n); id++ {
			switch r.Intn(3) {
			case 0:
				votes.pro = append(votes.pro, id)
			case 1:
				votes.against = append(votes.against, id)
			}
			if r.Intn(2) == 0 {
				backers = append(backers, id)
			}
		}
		for _, verdict := range []inter.Verdict{inter.Valid, inter.Invalid} {
			s := NewScheduler(votes, fakeHistory{1: backers}, nil)
			offenders, err := s.SelectOffenders(verdict, candidate, 1)
			require.NoError(t, err)

			winners := votes.pro
			if verdict == inter.Invalid {
				winners = votes.against
			}
			won := make(map[idx.ValidatorID]bool)
			for _, id := range winners {
				won[id] = true
			}
			for j, o := range offenders {
				require.False(t, won[o.ValidatorID], "winner %d punished", o.ValidatorID)
				require.NotEqual(t, drivertype.OkStatus, o.Status)
				if j > 0 {
					require.Less(t, uint32(offenders[j-1].ValidatorID), uint32(o.ValidatorID), "sorted and unique")
				}
			}
		}
	}
}

func TestScheduleSubmitsToPool(t *testing.T) {
	require := require.New(t)

	pool := NewPool()
	s := NewScheduler(fakeVotes{pro: []idx.ValidatorID{1}, against: []idx.ValidatorID{2}}, fakeHistory{}, pool)

	req, err := s.Schedule(inter.Valid, candidate, 3)
	require.NoError(err)
	require.Equal([]idx.ValidatorID{2}, req.IDs())
	require.Equal(inter.Valid, req.Verdict)
	require.Equal(idx.Epoch(3), req.Session)
	require.Len(pool.Pending(), 1)

	_, err = s.Schedule(inter.Valid, candidate, 3)
	require.ErrorIs(err, ErrAlreadyPending)
}

func TestRequestDoesNotSubmit(t *testing.T) {
	require := require.New(t)

	pool := NewPool()
	s := NewScheduler(fakeVotes{pro: []idx.ValidatorID{1}, against: []idx.ValidatorID{2}}, fakeHistory{}, pool)
	req, err := s.Request(inter.Valid, candidate, 3)
	require.NoError(err)
	require.Equal([]idx.ValidatorID{2}, req.IDs())
	require.Empty(pool.Pending())

	require.NoError(s.Submit(req))
	require.Len(pool.Pending(), 1)
	require.ErrorIs(s.Submit(req), ErrAlreadyPending)
}

func TestScheduleEmptyIsNotSubmitted(t *testing.T) {
	require := require.New(t)

	pool := NewPool()
	s := NewScheduler(fakeVotes{pro: []idx.ValidatorID{1}}, fakeHistory{}, pool)
	req, err := s.Schedule(inter.Valid, candidate, 3)
	require.NoError(err)
	require.True(req.Empty())
	require.Empty(pool.Pending())
}

func TestPool(t *testing.T) {
	require := require.New(t)

	pool := NewPool()
	a := inter.SlashingRequest{Candidate: hash.Of([]byte("a"))}
	b := inter.SlashingRequest{Candidate: hash.Of([]byte("b"))}
	require.NoError(pool.SubmitSlashing(a))
	require.NoError(pool.SubmitSlashing(b))
	require.ErrorIs(pool.SubmitSlashing(a), ErrAlreadyPending)

	pool.MarkIncluded(a.Candidate)
	pending := pool.Pending()
	require.Len(pending, 1)
	require.Equal(b.Candidate, pending[0].Candidate)
	require.ErrorIs(pool.SubmitSlashing(a), ErrAlreadyPending, "included requests stay known")
}
