// Package threshold decides when the votes on a candidate bind a verdict.
//
// A verdict needs a supermajority: strictly more than two thirds of the
// validator set. With every validator voting at most once, two supermajorities
// cannot coexist, so seeing both sides at threshold means vote admission or the
// validator count is broken. That case is reported as ErrAmbiguousResolution
// and must never be resolved by picking a side.
package threshold

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/inter"
)

// ErrAmbiguousResolution is returned when both sides reach the threshold.
var ErrAmbiguousResolution = errors.New("ambiguous resolution: both sides reached threshold")

// Threshold is the smallest vote count strictly greater than 2n/3.
func Threshold(n int) int {
	if n < 0 {
		n = 0
	}
	return 2*n/3 + 1
}

// LegacyThreshold adds the whole remainder of 2n/3 instead of a single vote.
// For n = 1 it exceeds the validator count, and for n = 3k it equals exactly
// 2n/3. Only used when configured explicitly.
func LegacyThreshold(n int) int {
	if n < 0 {
		n = 0
	}
	return 2*n/3 + (2*n)%3
}

// Policy selects the threshold formula.
type Policy uint8

const (
	// Supermajority uses Threshold. Default.
	Supermajority Policy = iota
	// Legacy uses LegacyThreshold.
	Legacy
)

// Threshold returns the vote count binding a verdict over n validators. It is never below 1.
func (p Policy) Threshold(n int) int {
	var t int
	switch p {
	case Legacy:
		t = LegacyThreshold(n)
	default:
		t = Threshold(n)
	}
	if t < 1 {
		return 1
	}
	return t
}

// DetermineVerdict applies the policy threshold to the counters.
func (p Policy) DetermineVerdict(pro, against uint32, n int) (inter.Verdict, error) {
	t := uint32(p.Threshold(n))
	switch {
	case pro >= t && against >= t:
		return inter.Undecided, errors.Wrapf(ErrAmbiguousResolution, "pro=%d against=%d threshold=%d n=%d", pro, against, t, n)
	case pro >= t:
		return inter.Valid, nil
	case against >= t:
		return inter.Invalid, nil
	}
	return inter.Undecided, nil
}

func (p Policy) String() string {
	switch p {
	case Supermajority:
		return "supermajority"
	case Legacy:
		return "legacy"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy accepts "supermajority" or "legacy".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "supermajority":
		return Supermajority, nil
	case "legacy":
		return Legacy, nil
	}
	return Supermajority, fmt.Errorf("unknown threshold policy %q (valid: supermajority, legacy)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(input []byte) error {
	res, err := ParsePolicy(string(input))
	if err != nil {
		return err
	}
	*p = res
	return nil
}

// DetermineVerdict decides with the supermajority threshold.
func DetermineVerdict(pro, against uint32, n int) (inter.Verdict, error) {
	return Supermajority.DetermineVerdict(pro, against, n)
}
