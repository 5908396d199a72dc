// Package inter defines the data structures shared by every part of the dispute
// resolution core: the candidate being disputed, the votes cast on it, the
// lifecycle record of a dispute and the resolution it ends with.
//
// A candidate is identified by the hash of the relay block that included it, so
// the "disputed block" and the "candidate" are the same hash throughout.
// Sessions are lachesis epochs (idx.Epoch) and validators are idx.ValidatorID.
package inter

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidTransition is returned when a dispute is asked to leave a terminal state.
var ErrInvalidTransition = errors.New("invalid dispute state transition")

// ParaID identifies the parachain a candidate belongs to.
type ParaID uint32

// HeadData is the opaque parachain head produced by a candidate.
type HeadData = hexutil.Bytes

// CandidateDescriptor is the part of a candidate receipt that identifies the work.
type CandidateDescriptor struct {
	ParaID      ParaID
	RelayParent hash.Hash
	// PovHash is the hash of the proof-of-validity block the candidate was checked against.
	PovHash hash.Hash
}

// CandidateReceipt is what the candidate provider reports for a disputed block.
type CandidateReceipt struct {
	Candidate  hash.Hash
	Descriptor CandidateDescriptor
	HeadData   HeadData
	Core       uint32
	Group      uint32
}

// DisputeState is the lifecycle position of a CandidateDispute.
type DisputeState uint8

const (
	// Open disputes still accept votes.
	Open DisputeState = iota
	// Resolved disputes reached a verdict.
	Resolved
	// TimedOut disputes stayed open past the configured window.
	TimedOut
)

func (s DisputeState) String() string {
	switch s {
	case Open:
		return "open"
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Concluded reports whether the state is terminal.
func (s DisputeState) Concluded() bool {
	return s == Resolved || s == TimedOut
}

// Verdict is the binding outcome of a dispute. Undecided is not an outcome,
// it means no side has reached the threshold yet.
type Verdict uint8

const (
	Undecided Verdict = iota
	Valid
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case Undecided:
		return "undecided"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("verdict(%d)", uint8(v))
	}
}

// Winner reports which vote bit won under this verdict. ok is false for Undecided.
func (v Verdict) Winner() (valid bool, ok bool) {
	switch v {
	case Valid:
		return true, true
	case Invalid:
		return false, true
	}
	return false, false
}

// CandidateDispute is the lifecycle record of one disputed candidate.
type CandidateDispute struct {
	Candidate   hash.Hash
	Session     idx.Epoch
	OpenedAt    idx.Block
	State       DisputeState
	Verdict     Verdict
	ConcludedAt idx.Block
}

// Conclude moves an open dispute into a terminal state. Resolved needs a
// decided verdict, TimedOut must not carry one.
func (d *CandidateDispute) Conclude(state DisputeState, verdict Verdict, at idx.Block) error {
	if d.State != Open {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.State, state)
	}
	switch state {
	case Resolved:
		if verdict == Undecided {
			return fmt.Errorf("%w: resolved without verdict", ErrInvalidTransition)
		}
	case TimedOut:
		if verdict != Undecided {
			return fmt.Errorf("%w: timed out with verdict %s", ErrInvalidTransition, verdict)
		}
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.State, state)
	}
	d.State = state
	d.Verdict = verdict
	d.ConcludedAt = at
	return nil
}

// Expired reports whether an open dispute has outlived the timeout window at block now.
// A zero window never expires.
func (d CandidateDispute) Expired(now, window idx.Block) bool {
	if d.State != Open || window == 0 || now < d.OpenedAt {
		return false
	}
	return now-d.OpenedAt >= window
}

// DisputeTally is the running count of votes on one candidate.
type DisputeTally struct {
	Candidate hash.Hash
	Session   idx.Epoch
	Pro       uint32
	Against   uint32
}

// Total is the number of validators that voted either way.
func (t DisputeTally) Total() uint32 {
	return t.Pro + t.Against
}
