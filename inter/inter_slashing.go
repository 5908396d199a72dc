package inter

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-disputes/inter/drivertype"
)

/*
Slashing requests and resolutions.

A concluded dispute always has a losing side. When the candidate is proven
invalid, the losers are the validators that vouched for it: those that voted
"valid" and those that originally validated it at inclusion time. When the
candidate is proven valid, the losers are the validators that accused it.

The core never punishes anyone. It hands a SlashingRequest to the punishment
module and records a Resolution so the outcome can be replayed and audited.
*/

// SlashingRequest is what the punishment module receives for one concluded dispute.
type SlashingRequest struct {
	Offenders []drivertype.Offender
	Candidate hash.Hash
	Session   idx.Epoch
	Verdict   Verdict
}

// IDs returns the offender validator IDs in request order.
func (r SlashingRequest) IDs() []idx.ValidatorID {
	ids := make([]idx.ValidatorID, len(r.Offenders))
	for i, o := range r.Offenders {
		ids[i] = o.ValidatorID
	}
	return ids
}

// Empty reports whether nobody is to be punished.
func (r SlashingRequest) Empty() bool {
	return len(r.Offenders) == 0
}

// Resolution is the immutable outcome of a concluded dispute.
type Resolution struct {
	Candidate   hash.Hash
	Session     idx.Epoch
	Verdict     Verdict
	Punished    []idx.ValidatorID
	BlockNumber idx.Block
	ConcludedAt idx.Block
}

// Hash fingerprints the resolution. Punished IDs are hashed in stored order.
func (r Resolution) Hash() hash.Hash {
	hasher := sha256.New()
	hasher.Write(r.Candidate.Bytes())
	hasher.Write(r.Session.Bytes())
	hasher.Write([]byte{byte(r.Verdict)})
	hasher.Write(bigendian.Uint32ToBytes(uint32(len(r.Punished))))
	for _, id := range r.Punished {
		hasher.Write(bigendian.Uint32ToBytes(uint32(id)))
	}
	hasher.Write(r.BlockNumber.Bytes())
	hasher.Write(r.ConcludedAt.Bytes())
	return hash.BytesToHash(hasher.Sum(nil))
}
