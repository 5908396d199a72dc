package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/rony4d/go-disputes/disputes"
	"github.com/rony4d/go-disputes/disputes/session"
	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/isession"
	"github.com/rony4d/go-disputes/integration"
)

// Scenario is a scripted run of the dispute module. Steps are applied in order.
//
// Block hashes are either 0x-prefixed hex or arbitrary names, which are hashed.
//
//	{"steps": [
//	  {"op": "session", "session": 1, "validators": [1, 2, 3, 4]},
//	  {"op": "fork", "hash": "G"},
//	  {"op": "fork", "hash": "H", "parent": "G", "number": 1},
//	  {"op": "block", "number": 2},
//	  {"op": "vote", "validator": 1, "session": 1, "candidate": "H", "valid": false},
//	  {"op": "conclude", "number": 1, "candidate": "H", "session": 1},
//	  {"op": "finalize"}
//	]}
type Scenario struct {
	Steps []Step `json:"steps"`
}

// Step is one scenario operation. Fields not used by Op are ignored.
type Step struct {
	Op string `json:"op"`

	Session    uint32   `json:"session,omitempty"`
	Validators []uint32 `json:"validators,omitempty"`

	Number uint64 `json:"number,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Parent string `json:"parent,omitempty"`

	Validator uint32 `json:"validator,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Valid     bool   `json:"valid,omitempty"`
	Source    string `json:"source,omitempty"`
}

// EventLine is how a finalized event is printed by replay.
type EventLine struct {
	Block       uint64   `json:"block"`
	Event       string   `json:"event"`
	Candidate   string   `json:"candidate"`
	Session     uint32   `json:"session,omitempty"`
	Verdict     string   `json:"verdict,omitempty"`
	HeadData    string   `json:"headData,omitempty"`
	Punished    []uint32 `json:"punished,omitempty"`
	Invalidated []string `json:"invalidated,omitempty"`
}

// LoadScenario reads a JSON scenario file.
func LoadScenario(path string) (Scenario, error) {
	var s Scenario
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, errors.Wrapf(err, "scenario %s", path)
	}
	return s, nil
}

// ParseHash accepts 0x-prefixed hex or a name, hashed into a stable value.
// The empty string is the zero hash.
func ParseHash(s string) hash.Hash {
	switch {
	case s == "":
		return hash.Hash{}
	case strings.HasPrefix(s, "0x") && len(s) == 2+2*common.HashLength:
		return hash.Hash(common.HexToHash(s))
	}
	return hash.Of([]byte(s))
}

// Replay applies s to the engine and writes one JSON line per finalized event
// to out. The events are returned too. A trailing finalize is implied.
func Replay(ctx context.Context, e *integration.Engine, s Scenario, out io.Writer) ([]disputes.Event, error) {
	var (
		all []disputes.Event
		enc = json.NewEncoder(out)
	)
	finalize := func() error {
		events := e.Module.Finalize()
		for _, ev := range events {
			if err := enc.Encode(eventLine(uint64(e.Module.Now()), ev)); err != nil {
				return err
			}
		}
		all = append(all, events...)
		return nil
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		if err := applyStep(ctx, e, step, finalize); err != nil {
			return all, errors.Wrapf(err, "step %d (%s)", i, step.Op)
		}
	}
	return all, finalize()
}

func applyStep(ctx context.Context, e *integration.Engine, step Step, finalize func() error) error {
	m := e.Module
	switch step.Op {
	case "session":
		n := session.Notification{Session: idx.Epoch(step.Session)}
		for _, id := range step.Validators {
			n.Validators = append(n.Validators, isession.Member{ID: idx.ValidatorID(id)})
		}
		return m.OnNewSession(n)
	case "fork":
		return e.Forks.Insert(ParseHash(step.Hash), ParseHash(step.Parent), idx.Block(step.Number))
	case "block":
		if err := finalize(); err != nil {
			return err
		}
		return m.Initialize(idx.Block(step.Number))
	case "vote":
		source := inter.ApprovalVote
		if step.Source == "backing" {
			source = inter.BackingVote
		}
		_, err := m.SubmitVote(inter.ValidatorVote{
			Validator: idx.ValidatorID(step.Validator),
			Session:   idx.Epoch(step.Session),
			Candidate: ParseHash(step.Candidate),
			Valid:     step.Valid,
		}, source)
		return err
	case "conclude":
		return m.ProcessConcluded(ctx, idx.Block(step.Number), ParseHash(step.Candidate), idx.Epoch(step.Session))
	case "finalize":
		return finalize()
	}
	return fmt.Errorf("unknown op %q (valid: session, fork, block, vote, conclude, finalize)", step.Op)
}

func eventLine(block uint64, e disputes.Event) EventLine {
	line := EventLine{Block: block, Event: e.String()}
	switch data := e.Data.(type) {
	case *disputes.DisputeIndicatedData:
		line.Candidate = data.Candidate.String()
		line.Session = uint32(data.Session)
	case *disputes.DisputeResolvedData:
		p := data.Payload
		line.Candidate = data.Candidate.String()
		line.Session = uint32(p.Session)
		line.Verdict = p.Verdict.String()
		if len(p.HeadData) != 0 {
			line.HeadData = p.HeadData.String()
		}
		for _, id := range p.Punished {
			line.Punished = append(line.Punished, uint32(id))
		}
		for _, h := range p.Invalidated {
			line.Invalidated = append(line.Invalidated, h.String())
		}
	case *disputes.DisputeTimedOutData:
		line.Candidate = data.Candidate.String()
		line.Verdict = inter.Undecided.String()
		if len(data.HeadData) != 0 {
			line.HeadData = data.HeadData.String()
		}
	}
	return line
}
