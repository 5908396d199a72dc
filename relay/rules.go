// Package relay defines the network rules of the relay chain that the dispute
// core reads its parameters from.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Dispute rules: timeout window, threshold formula, admitted vote sources
//     and how many sessions back a candidate may still be disputed
//
// Rules is the value the host hands to the dispute core as its configuration
// provider; the validator-set size is not part of it and comes from the live
// session snapshot.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-disputes/disputes/threshold"
	"github.com/rony4d/go-disputes/inter"
)

// Network identification constants
const (
	// MainNetworkID is the network ID of the main relay chain
	MainNetworkID uint64 = 0x2a
	// TestNetworkID is the network ID of the public test relay chain
	TestNetworkID uint64 = 0x2b
	// FakeNetworkID is used by local and in-process networks
	FakeNetworkID uint64 = 0x2c
)

// DisputeRules are the consensus-critical dispute parameters.
type DisputeRules struct {
	// TimeoutBlocks is how many blocks a dispute may stay open before it times out.
	// Zero disables timeouts.
	TimeoutBlocks idx.Block

	// Period is how many sessions back a concluded candidate may still be disputed.
	Period idx.Epoch

	// Threshold selects the supermajority formula.
	Threshold threshold.Policy

	// VoteSources selects which votes count toward a dispute.
	VoteSources inter.VoteSourcePolicy
}

// Rules describes the configuration of one relay network.
type Rules struct {
	Name      string
	NetworkID uint64

	Disputes DisputeRules
}

// MainNetRules returns the rules of the main network.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Disputes:  DefaultDisputeRules(),
	}
}

// TestNetRules returns the rules of the test network.
func TestNetRules() Rules {
	return Rules{
		Name:      "test",
		NetworkID: TestNetworkID,
		Disputes: DisputeRules{
			TimeoutBlocks: 100,
			Period:        6,
			Threshold:     threshold.Supermajority,
			VoteSources:   inter.AnySource,
		},
	}
}

// FakeNetRules returns rules with a short timeout for local runs and tests.
func FakeNetRules() Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Disputes:  FakeDisputeRules(),
	}
}

// RulesByName returns the preset rules of a network: "main", "test" or "fake".
func RulesByName(name string) (Rules, error) {
	switch name {
	case "main":
		return MainNetRules(), nil
	case "test":
		return TestNetRules(), nil
	case "fake":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("unknown network %q (valid: main, test, fake)", name)
}

// DefaultDisputeRules are the main network dispute parameters.
func DefaultDisputeRules() DisputeRules {
	return DisputeRules{
		TimeoutBlocks: 200,
		Period:        6,
		Threshold:     threshold.Supermajority,
		VoteSources:   inter.ApprovalOnly,
	}
}

// FakeDisputeRules time out after 10 blocks.
func FakeDisputeRules() DisputeRules {
	return DisputeRules{
		TimeoutBlocks: 10,
		Period:        2,
		Threshold:     threshold.Supermajority,
		VoteSources:   inter.ApprovalOnly,
	}
}

// DisputeRules returns the dispute part of the rules.
func (r Rules) DisputeRules() DisputeRules {
	return r.Disputes
}

// Validate rejects rules the dispute core cannot run with.
func (r Rules) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rules: empty network name")
	}
	if r.Disputes.Period == 0 {
		return fmt.Errorf("rules %s: dispute period must be at least one session", r.Name)
	}
	if r.Disputes.Threshold > threshold.Legacy {
		return fmt.Errorf("rules %s: unknown threshold policy %d", r.Name, r.Disputes.Threshold)
	}
	if r.Disputes.VoteSources > inter.AnySource {
		return fmt.Errorf("rules %s: unknown vote source policy %d", r.Name, r.Disputes.VoteSources)
	}
	return nil
}

// Copy returns a copy of the rules. Rules hold no references, so this is a plain copy.
func (r Rules) Copy() Rules {
	return r
}

// String renders the rules as JSON.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
