// Package slashing picks the validators a concluded dispute punishes and
// hands them to the punishment module.
//
// Offenders are always taken from the losing side:
//   - Invalid: validators that voted valid, plus the validators of the session
//     that originally validated the candidate.
//   - Valid: validators that voted invalid.
//
// Validators that voted with the winning side are removed from the result, so
// an original backer that later voted invalid is not punished.
package slashing

import (
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/drivertype"
)

var log = logrus.WithField("prefix", "slashing")

// ErrNoVerdict is returned when asked to punish for an undecided dispute.
var ErrNoVerdict = errors.New("dispute has no verdict")

// VoteReader lists the voters of one side of a candidate.
type VoteReader interface {
	Voters(candidate hash.Hash, valid bool) ([]idx.ValidatorID, error)
}

// History returns the validator set that validated candidates in a past session.
type History interface {
	OriginalValidators(session idx.Epoch) ([]idx.ValidatorID, error)
}

// Punisher accepts slashing requests. It decides magnitudes and submits them.
type Punisher interface {
	SubmitSlashing(req inter.SlashingRequest) error
}

// Scheduler builds slashing requests.
type Scheduler struct {
	votes    VoteReader
	history  History
	punisher Punisher
}

// NewScheduler returns a scheduler. punisher may be nil, then requests are only returned.
func NewScheduler(votes VoteReader, history History, punisher Punisher) *Scheduler {
	return &Scheduler{votes: votes, history: history, punisher: punisher}
}

// SelectOffenders returns the offenders of a concluded dispute sorted by validator ID.
func (s *Scheduler) SelectOffenders(verdict inter.Verdict, candidate hash.Hash, session idx.Epoch) ([]drivertype.Offender, error) {
	winnerValid, ok := verdict.Winner()
	if !ok {
		return nil, errors.Wrapf(ErrNoVerdict, "candidate %s", candidate.String())
	}

	status := make(map[idx.ValidatorID]uint64)
	losers, err := s.votes.Voters(candidate, !winnerValid)
	if err != nil {
		return nil, errors.Wrap(err, "could not read losing voters")
	}
	loserBit := drivertype.FalseAccusationBit
	if verdict == inter.Invalid {
		loserBit = drivertype.AttestedInvalidBit
	}
	for _, id := range losers {
		status[id] |= loserBit
	}

	if verdict == inter.Invalid {
		backers, err := s.history.OriginalValidators(session)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read validators of session %d", session)
		}
		for _, id := range backers {
			status[id] |= drivertype.BackedInvalidBit
		}
	}

	winners, err := s.votes.Voters(candidate, winnerValid)
	if err != nil {
		return nil, errors.Wrap(err, "could not read winning voters")
	}
	for _, id := range winners {
		delete(status, id)
	}

	offenders := make([]drivertype.Offender, 0, len(status))
	for id, st := range status {
		offenders = append(offenders, drivertype.Offender{ValidatorID: id, Status: st})
	}
	sort.Slice(offenders, func(i, j int) bool {
		return offenders[i].ValidatorID < offenders[j].ValidatorID
	})
	return offenders, nil
}

// Request selects the offenders and builds the slashing request without
// submitting it.
func (s *Scheduler) Request(verdict inter.Verdict, candidate hash.Hash, session idx.Epoch) (inter.SlashingRequest, error) {
	offenders, err := s.SelectOffenders(verdict, candidate, session)
	if err != nil {
		return inter.SlashingRequest{}, err
	}
	return inter.SlashingRequest{
		Offenders: offenders,
		Candidate: candidate,
		Session:   session,
		Verdict:   verdict,
	}, nil
}

// Submit hands req to the punisher. Empty requests are not submitted.
func (s *Scheduler) Submit(req inter.SlashingRequest) error {
	if req.Empty() || s.punisher == nil {
		return nil
	}
	if err := s.punisher.SubmitSlashing(req); err != nil {
		return errors.Wrap(err, "could not submit slashing")
	}
	log.WithFields(logrus.Fields{
		"candidate": req.Candidate.String(),
		"verdict":   req.Verdict.String(),
		"offenders": len(req.Offenders),
	}).Info("Slashing submitted")
	return nil
}

// Schedule is Request followed by Submit.
func (s *Scheduler) Schedule(verdict inter.Verdict, candidate hash.Hash, session idx.Epoch) (inter.SlashingRequest, error) {
	req, err := s.Request(verdict, candidate, session)
	if err != nil {
		return req, err
	}
	return req, s.Submit(req)
}
