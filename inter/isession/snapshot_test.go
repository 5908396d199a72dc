package isession

import (
	"sync"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-disputes/inter/validatorpk"
)

func members(ids ...idx.ValidatorID) []Member {
	res := make([]Member, len(ids))
	for i, id := range ids {
		res[i] = Member{
			ID:         id,
			SessionKey: validatorpk.PubKey{Type: validatorpk.Types.Sr25519, Raw: []byte{byte(id)}},
		}
	}
	return res
}

func TestNewSnapshot(t *testing.T) {
	require := require.New(t)

	s, err := NewSnapshot(5, members(3, 1, 2))
	require.NoError(err)
	require.Equal(3, s.Len())
	require.Equal([]idx.ValidatorID{3, 1, 2}, s.IDs(), "session order is kept")
	require.True(s.Contains(1))
	require.False(s.Contains(4))
	require.Equal(idx.Validator(3), s.Validators().Len())

	m, ok := s.Member(2)
	require.True(ok)
	require.Equal([]byte{2}, m.SessionKey.Raw)
	_, ok = s.Member(9)
	require.False(ok)

	_, err = NewSnapshot(5, members(1, 2, 1))
	require.ErrorIs(err, ErrDuplicateMember)

	_, err = NewSnapshot(5, nil)
	require.ErrorIs(err, ErrEmptyValidatorSet)
}

func TestNilSnapshot(t *testing.T) {
	require := require.New(t)

	var s *Snapshot
	require.False(s.Contains(1))
	require.Zero(s.Len())
	require.Nil(s.IDs())
	require.Nil(s.Copy())
}

func TestSnapshotCopyAndHash(t *testing.T) {
	require := require.New(t)

	s, err := NewSnapshot(1, members(1, 2))
	require.NoError(err)
	cp := s.Copy()
	require.Equal(s.Hash(), cp.Hash())

	cp.Members[0].SessionKey.Raw[0] = 0xff
	require.Equal(byte(1), s.Members[0].SessionKey.Raw[0])
	require.NotEqual(s.Hash(), cp.Hash())

	next, err := NewSnapshot(2, members(1, 2))
	require.NoError(err)
	require.NotEqual(s.Hash(), next.Hash())
}

func TestLive(t *testing.T) {
	require := require.New(t)

	var live Live
	require.Nil(live.Load())

	first, _ := NewSnapshot(1, members(1, 2, 3))
	second, _ := NewSnapshot(2, members(4, 5))
	live.Store(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := live.Load()
				// a reader sees one whole snapshot, never a mix
				if s.Session == 1 {
					assert.Equal(t, 3, s.Len())
				} else {
					assert.Equal(t, 2, s.Len())
				}
			}
		}()
	}
	live.Store(second)
	wg.Wait()
	require.Equal(idx.Epoch(2), live.Load().Session)
}
