package disputes

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/drivertype"
)

const (
	// DisputeIndicatedEvent is sent when the first vote on a candidate opens a dispute.
	DisputeIndicatedEvent = iota + 1

	// DisputeResolvedEvent is sent when a dispute reaches a verdict.
	DisputeResolvedEvent

	// DisputeTimedOutEvent is sent when a dispute stays open past the timeout window.
	DisputeTimedOutEvent
)

// Event is one dispute lifecycle notification. Data holds the *Data struct
// matching Type.
type Event struct {
	Type int
	Data interface{}
}

func (e Event) String() string {
	switch e.Type {
	case DisputeIndicatedEvent:
		return "DisputeIndicated"
	case DisputeResolvedEvent:
		return "DisputeResolved"
	case DisputeTimedOutEvent:
		return "DisputeTimedOut"
	}
	return fmt.Sprintf("Event(%d)", e.Type)
}

// DisputeIndicatedData is the data sent with DisputeIndicatedEvent.
type DisputeIndicatedData struct {
	Candidate   hash.Hash
	Session     idx.Epoch
	BlockNumber idx.Block
	// Receipt is nil when the candidate provider does not know the candidate.
	Receipt *inter.CandidateReceipt
}

// ResolvedPayload carries the verdict and what it caused.
type ResolvedPayload struct {
	Verdict   inter.Verdict
	BlockHash hash.Hash
	HeadData  inter.HeadData
	Session   idx.Epoch
	Punished  []idx.ValidatorID
	Offenders []drivertype.Offender
	// Invalidated are the branch heads pruned by an invalid verdict.
	Invalidated []hash.Hash
}

// DisputeResolvedData is the data sent with DisputeResolvedEvent.
type DisputeResolvedData struct {
	Candidate hash.Hash
	Payload   ResolvedPayload
}

// DisputeTimedOutData is the data sent with DisputeTimedOutEvent.
type DisputeTimedOutData struct {
	Candidate hash.Hash
	HeadData  inter.HeadData
}
