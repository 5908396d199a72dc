// Package drivertype defines how offenders are handed to the punishment module:
// the validator ID plus a status word whose bits say why the validator is
// being punished. A validator can carry several bits at once, for example an
// original backer that also voted "valid" on a candidate later proven invalid.
package drivertype

import (
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

var (
	// AttestedInvalidBit marks a validator that voted "valid" on a candidate
	// the dispute concluded to be invalid.
	AttestedInvalidBit = uint64(1 << 0)

	// BackedInvalidBit marks a validator of the session that originally
	// validated a candidate later concluded invalid.
	BackedInvalidBit = uint64(1 << 1)

	// FalseAccusationBit marks a validator that voted "invalid" on a candidate
	// the dispute concluded to be valid.
	FalseAccusationBit = uint64(1 << 2)

	// OkStatus is a validator with no offence bits set.
	OkStatus = uint64(0)
)

// Offender pairs a validator with the offence bits it is punished for.
type Offender struct {
	ValidatorID idx.ValidatorID
	Status      uint64
}

// Has reports whether bit is set on the offender.
func (o Offender) Has(bit uint64) bool {
	return o.Status&bit != 0
}

// Reasons renders the set bits, e.g. "attested-invalid|backed-invalid".
func (o Offender) Reasons() string {
	if o.Status == OkStatus {
		return "none"
	}
	var parts []string
	if o.Has(AttestedInvalidBit) {
		parts = append(parts, "attested-invalid")
	}
	if o.Has(BackedInvalidBit) {
		parts = append(parts, "backed-invalid")
	}
	if o.Has(FalseAccusationBit) {
		parts = append(parts, "false-accusation")
	}
	return strings.Join(parts, "|")
}
