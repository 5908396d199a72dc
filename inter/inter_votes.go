package inter

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

/*
Votes on a disputed candidate.

Each validator states one bit about one candidate: the candidate is valid, or
it is not. The bit is all the core needs; signatures are checked before a vote
reaches this package.

Votes reach the core from two places:
  - approval checking: validators re-executing the candidate after inclusion,
  - backing: the statements the backing group made when the candidate was
    included. A backing statement is an implicit "valid" vote.

VoteSourcePolicy decides which of the two count toward the tally.
*/

// ValidatorVote is one validator's stance on one candidate in one session.
type ValidatorVote struct {
	Validator idx.ValidatorID
	Session   idx.Epoch
	Candidate hash.Hash
	Valid     bool
}

// Hash digests the vote. Field order is fixed: candidate, session, validator, bit.
func (v ValidatorVote) Hash() hash.Hash {
	hasher := sha256.New()
	hasher.Write(v.Candidate.Bytes())
	hasher.Write(v.Session.Bytes())
	hasher.Write(bigendian.Uint32ToBytes(uint32(v.Validator)))
	if v.Valid {
		hasher.Write([]byte{1})
	} else {
		hasher.Write([]byte{0})
	}
	return hash.BytesToHash(hasher.Sum(nil))
}

func (v ValidatorVote) String() string {
	bit := "invalid"
	if v.Valid {
		bit = "valid"
	}
	return fmt.Sprintf("vote{%d %s on %s@%d}", v.Validator, bit, v.Candidate.String(), v.Session)
}

// VoteSource says where a vote came from.
type VoteSource uint8

const (
	ApprovalVote VoteSource = iota
	BackingVote
)

func (s VoteSource) String() string {
	if s == BackingVote {
		return "backing"
	}
	return "approval"
}

// VoteSourcePolicy selects which vote sources count toward a dispute.
type VoteSourcePolicy uint8

const (
	// ApprovalOnly counts votes from approval checking. Default.
	ApprovalOnly VoteSourcePolicy = iota
	// BackingOnly counts backing statements only.
	BackingOnly
	// AnySource counts both.
	AnySource
)

// Admits reports whether a vote from src counts under the policy.
func (p VoteSourcePolicy) Admits(src VoteSource) bool {
	switch p {
	case ApprovalOnly:
		return src == ApprovalVote
	case BackingOnly:
		return src == BackingVote
	case AnySource:
		return true
	}
	return false
}

func (p VoteSourcePolicy) String() string {
	switch p {
	case ApprovalOnly:
		return "approval"
	case BackingOnly:
		return "backing"
	case AnySource:
		return "both"
	}
	return fmt.Sprintf("sources(%d)", uint8(p))
}

// ParseVoteSourcePolicy accepts "approval", "backing" or "both".
func ParseVoteSourcePolicy(s string) (VoteSourcePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "approval":
		return ApprovalOnly, nil
	case "backing":
		return BackingOnly, nil
	case "both", "any":
		return AnySource, nil
	}
	return ApprovalOnly, fmt.Errorf("unknown vote source policy %q (valid: approval, backing, both)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p VoteSourcePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *VoteSourcePolicy) UnmarshalText(input []byte) error {
	res, err := ParseVoteSourcePolicy(string(input))
	if err != nil {
		return err
	}
	*p = res
	return nil
}
