// Package disputes is the dispute-resolution core of the relay chain.
//
// The host drives a Module once per block:
//
//	m.Initialize(now)                 // times out overdue disputes
//	m.SubmitVote(vote, source)        // any number of times
//	m.ProcessConcluded(ctx, n, h, s)  // once per candidate ready for adjudication
//	events := m.Finalize()            // drains the events of the block
//
// and calls OnNewSession at every session boundary. A verdict is reached when
// one side of the vote holds a supermajority of the validator set. An Invalid
// verdict bars the disputed block on every branch, and either verdict hands
// the losing side to the punishment module.
//
// The Module has a single writer. Atomicity of one block's writes is provided
// by the store the host passes in, typically flushed or dropped as a whole.
package disputes

import (
	"context"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/rony4d/go-disputes/disputes/dstore"
	"github.com/rony4d/go-disputes/disputes/forks"
	"github.com/rony4d/go-disputes/disputes/ledger"
	"github.com/rony4d/go-disputes/disputes/session"
	"github.com/rony4d/go-disputes/disputes/slashing"
	"github.com/rony4d/go-disputes/inter"
	"github.com/rony4d/go-disputes/inter/isession"
	"github.com/rony4d/go-disputes/relay"
)

var log = logrus.WithField("prefix", "disputes")

var (
	// ErrVoteSourceExcluded is returned for a vote whose source the rules do not count.
	ErrVoteSourceExcluded = errors.New("vote source not admitted")
	// ErrFutureSession is returned when adjudicating a candidate of a session not started yet.
	ErrFutureSession = errors.New("session is in the future")
	// ErrAncientSession is returned when the candidate's session is outside the dispute period.
	ErrAncientSession = errors.New("session is outside the dispute period")
	// ErrMissingStore is returned by New without a store.
	ErrMissingStore = errors.New("missing dispute store")
	// ErrMissingConfig is returned by New without a configuration provider.
	ErrMissingConfig = errors.New("missing configuration provider")
)

// ConfigProvider supplies the dispute parameters. relay.Rules implements it.
type ConfigProvider interface {
	DisputeRules() relay.DisputeRules
}

// CandidateProvider describes the candidate included in a block. It returns an
// error wrapping dstore.ErrUnknownCandidate for blocks it does not know.
type CandidateProvider interface {
	Candidate(block hash.Hash) (inter.CandidateReceipt, error)
}

// Deps are the collaborators of a Module. Store and Config are required.
type Deps struct {
	Store  *dstore.Store
	Config ConfigProvider

	// Candidates defaults to the pending-availability commitments of Store.
	Candidates CandidateProvider
	// History defaults to the session snapshots persisted in Store.
	History slashing.History
	// Forks is optional; without it an invalid verdict only blacklists the block.
	Forks forks.ForkChoice
	// Punisher is optional; without it slashing requests are only reported in events.
	Punisher slashing.Punisher
}

// VoteStatus says what happened to a submitted vote.
type VoteStatus uint8

const (
	// VoteRecorded means the vote was counted.
	VoteRecorded VoteStatus = iota
	// AlreadyConcluded means the dispute had concluded and the vote was ignored.
	AlreadyConcluded
)

func (s VoteStatus) String() string {
	if s == AlreadyConcluded {
		return "already-concluded"
	}
	return "recorded"
}

// VoteOutcome is the result of SubmitVote.
type VoteOutcome struct {
	Status  VoteStatus
	Tally   inter.DisputeTally
	Dispute inter.CandidateDispute
	// Opened is set when this vote opened the dispute.
	Opened bool
}

// Module is the dispute core. It is not safe for concurrent use.
type Module struct {
	store      *dstore.Store
	config     ConfigProvider
	candidates CandidateProvider

	live       *isession.Live
	ledger     *ledger.Ledger
	blacklist  *forks.Blacklist
	propagator *forks.Propagator
	scheduler  *slashing.Scheduler
	sessions   *session.Coordinator

	now     idx.Block
	pending []Event
	feed    event.Feed
}

// New assembles a Module and restores the last persisted session from the store.
func New(deps Deps) (*Module, error) {
	if deps.Store == nil {
		return nil, ErrMissingStore
	}
	if deps.Config == nil {
		return nil, ErrMissingConfig
	}
	if deps.Candidates == nil {
		deps.Candidates = dstore.NewPendingAvailability(deps.Store)
	}
	if deps.History == nil {
		deps.History = session.NewArchive(deps.Store)
	}

	live := &isession.Live{}
	l := ledger.New(deps.Store, live)
	blacklist := forks.NewBlacklist(deps.Store)
	m := &Module{
		store:      deps.Store,
		config:     deps.Config,
		candidates: deps.Candidates,
		live:       live,
		ledger:     l,
		blacklist:  blacklist,
		propagator: forks.NewPropagator(blacklist, deps.Forks),
		scheduler:  slashing.NewScheduler(l, deps.History, deps.Punisher),
		sessions:   session.NewCoordinator(deps.Store, l, live),
	}
	restored, err := m.sessions.Restore()
	if err != nil {
		return nil, errors.Wrap(err, "could not restore session")
	}
	if restored {
		sessionGauge.Set(float64(live.Load().Session))
	}
	open, err := deps.Store.OpenDisputes()
	if err != nil {
		return nil, errors.Wrap(err, "could not count open disputes")
	}
	disputesOpen.Set(float64(len(open)))
	return m, nil
}

// Initialize starts block now and times out every dispute open for longer than
// the window without reaching a verdict. A dispute holding a verdict stays open
// for ProcessConcluded to resolve.
func (m *Module) Initialize(now idx.Block) error {
	m.now = now
	rules := m.config.DisputeRules()
	if rules.TimeoutBlocks == 0 {
		return nil
	}
	open, err := m.store.OpenDisputes()
	if err != nil {
		return err
	}
	for _, d := range open {
		if !d.Expired(now, rules.TimeoutBlocks) {
			continue
		}
		verdict, err := m.verdict(d.Candidate, rules)
		if err != nil {
			return err
		}
		if verdict != inter.Undecided {
			log.WithFields(logrus.Fields{
				"candidate": d.Candidate.String(),
				"verdict":   verdict.String(),
			}).Debug("Expired dispute awaits resolution")
			continue
		}
		if err := m.timeOut(d, now); err != nil {
			return err
		}
	}
	return nil
}

// Finalize ends the block, sends its events to subscribers and returns them.
func (m *Module) Finalize() []Event {
	events := m.pending
	m.pending = nil
	for _, e := range events {
		m.feed.Send(e)
	}
	return events
}

// SubscribeEvents delivers every finalized event to ch. Send blocks until ch
// accepts, so subscribers must keep reading or unsubscribe.
func (m *Module) SubscribeEvents(ch chan<- Event) event.Subscription {
	return m.feed.Subscribe(ch)
}

// OnNewSession installs the validator set of the next session.
func (m *Module) OnNewSession(n session.Notification) error {
	out, err := m.sessions.OnNewSession(n)
	if err != nil {
		return err
	}
	sessionGauge.Set(float64(out.Session))
	return nil
}

// SubmitVote counts a vote. The first vote on a candidate opens its dispute.
// Votes on concluded disputes are ignored with status AlreadyConcluded.
func (m *Module) SubmitVote(vote inter.ValidatorVote, source inter.VoteSource) (VoteOutcome, error) {
	if !m.config.DisputeRules().VoteSources.Admits(source) {
		votesRejected.WithLabelValues("source").Inc()
		return VoteOutcome{}, errors.Wrapf(ErrVoteSourceExcluded, "%s vote", source.String())
	}

	d, err := m.store.GetDispute(vote.Candidate)
	if err != nil {
		return VoteOutcome{}, err
	}
	if d != nil && d.State.Concluded() {
		tally, err := m.ledger.Tally(vote.Candidate)
		if err != nil {
			return VoteOutcome{}, err
		}
		log.WithField("vote", vote.String()).WithField("state", d.State.String()).Debug("Vote on concluded dispute ignored")
		return VoteOutcome{Status: AlreadyConcluded, Tally: tally, Dispute: *d}, nil
	}

	var receipt *inter.CandidateReceipt
	if d == nil {
		if receipt, err = m.receipt(vote.Candidate); err != nil {
			return VoteOutcome{}, err
		}
	}

	tally, err := m.ledger.SubmitVote(vote, source)
	if err != nil {
		votesRejected.WithLabelValues(rejectReason(err)).Inc()
		log.WithError(err).WithField("vote", vote.String()).Debug("Vote rejected")
		return VoteOutcome{}, err
	}
	votesAccepted.WithLabelValues(source.String()).Inc()

	out := VoteOutcome{Status: VoteRecorded, Tally: tally}
	if d == nil {
		d = &inter.CandidateDispute{
			Candidate: vote.Candidate,
			Session:   vote.Session,
			OpenedAt:  m.now,
			State:     inter.Open,
		}
		if err := m.store.SetDispute(*d); err != nil {
			return VoteOutcome{}, err
		}
		m.emit(DisputeIndicatedEvent, &DisputeIndicatedData{
			Candidate:   vote.Candidate,
			Session:     vote.Session,
			BlockNumber: m.now,
			Receipt:     receipt,
		})
		disputesOpened.Inc()
		disputesOpen.Inc()
		out.Opened = true
		log.WithFields(logrus.Fields{
			"candidate": vote.Candidate.String(),
			"session":   vote.Session,
			"block":     m.now,
		}).Info("Dispute indicated")
	}
	out.Dispute = *d
	return out, nil
}

// ProcessConcluded adjudicates the candidate included in blockHash at
// blockNumber during session. Without a verdict the dispute stays open, or
// times out once the window has passed. With a verdict the block's branches
// and the offenders are dealt with and the resolution is recorded.
// An error wrapping threshold.ErrAmbiguousResolution must stop the host.
func (m *Module) ProcessConcluded(ctx context.Context, blockNumber idx.Block, blockHash hash.Hash, session idx.Epoch) error {
	ctx, span := trace.StartSpan(ctx, "disputes.ProcessConcluded")
	defer span.End()

	snap := m.live.Load()
	if snap == nil {
		return ledger.ErrNoSession
	}
	rules := m.config.DisputeRules()
	if session > snap.Session {
		return errors.Wrapf(ErrFutureSession, "session %d, live %d", session, snap.Session)
	}
	if snap.Session-session > rules.Period {
		return errors.Wrapf(ErrAncientSession, "session %d, live %d, period %d", session, snap.Session, rules.Period)
	}

	d, err := m.store.GetDispute(blockHash)
	if err != nil {
		return err
	}
	if d == nil || d.State.Concluded() {
		return nil
	}

	verdict, err := m.verdict(blockHash, rules)
	if err != nil {
		return err
	}

	clock := m.now
	if clock < blockNumber {
		clock = blockNumber
	}
	if verdict == inter.Undecided {
		if d.Expired(clock, rules.TimeoutBlocks) {
			return m.timeOut(*d, clock)
		}
		return nil
	}
	return m.resolve(ctx, *d, verdict, blockNumber, session, clock)
}

// verdict reads the tally of candidate and applies the threshold of the live
// validator set, or of the voters if they outnumber it.
func (m *Module) verdict(candidate hash.Hash, rules relay.DisputeRules) (inter.Verdict, error) {
	tally, err := m.ledger.Tally(candidate)
	if err != nil {
		return inter.Undecided, err
	}
	n := m.live.Load().Len()
	if voted := int(tally.Total()); voted > n {
		// votes carried over from a larger previous set
		n = voted
	}
	verdict, err := rules.Threshold.DetermineVerdict(tally.Pro, tally.Against, n)
	if err != nil {
		ambiguousResolutions.Inc()
		log.WithError(err).WithField("candidate", candidate.String()).Error("Dispute cannot be resolved")
		return inter.Undecided, errors.Wrapf(err, "candidate %s", candidate.String())
	}
	return verdict, nil
}

// resolve concludes d with verdict. Offenders and the receipt are read before
// anything is written, so a failed read leaves the dispute untouched.
func (m *Module) resolve(ctx context.Context, d inter.CandidateDispute, verdict inter.Verdict, blockNumber idx.Block, session idx.Epoch, at idx.Block) error {
	if err := d.Conclude(inter.Resolved, verdict, at); err != nil {
		return err
	}
	req, err := m.scheduler.Request(verdict, d.Candidate, session)
	if err != nil {
		return err
	}
	receipt, err := m.receipt(d.Candidate)
	if err != nil {
		return err
	}
	res := inter.Resolution{
		Candidate:   d.Candidate,
		Session:     session,
		Verdict:     verdict,
		Punished:    req.IDs(),
		BlockNumber: blockNumber,
		ConcludedAt: at,
	}

	propagation, err := m.propagator.Propagate(ctx, res)
	if err != nil {
		return err
	}
	if err := m.scheduler.Submit(req); err != nil && !errors.Is(err, slashing.ErrAlreadyPending) {
		return err
	}
	if err := m.store.AddResolution(res); err != nil && !errors.Is(err, dstore.ErrResolutionExists) {
		return err
	}
	if err := m.store.SetDispute(d); err != nil {
		return err
	}

	payload := ResolvedPayload{
		Verdict:     verdict,
		BlockHash:   d.Candidate,
		Session:     session,
		Punished:    res.Punished,
		Offenders:   req.Offenders,
		Invalidated: propagation.Invalidated,
	}
	if receipt != nil {
		payload.HeadData = receipt.HeadData
	}
	m.emit(DisputeResolvedEvent, &DisputeResolvedData{Candidate: d.Candidate, Payload: payload})

	disputesResolved.WithLabelValues(verdict.String()).Inc()
	disputesOpen.Dec()
	offendersScheduled.Add(float64(len(req.Offenders)))
	if propagation.Blacklisted {
		blocksBlacklisted.Inc()
	}
	headsInvalidated.Add(float64(len(propagation.Invalidated)))

	log.WithFields(logrus.Fields{
		"candidate": d.Candidate.String(),
		"verdict":   verdict.String(),
		"punished":  len(res.Punished),
		"block":     at,
	}).Info("Dispute resolved")
	return nil
}

func (m *Module) timeOut(d inter.CandidateDispute, at idx.Block) error {
	if err := d.Conclude(inter.TimedOut, inter.Undecided, at); err != nil {
		return err
	}
	receipt, err := m.receipt(d.Candidate)
	if err != nil {
		return err
	}
	if err := m.store.SetDispute(d); err != nil {
		return err
	}
	data := &DisputeTimedOutData{Candidate: d.Candidate}
	if receipt != nil {
		data.HeadData = receipt.HeadData
	}
	m.emit(DisputeTimedOutEvent, data)

	disputesTimedOut.Inc()
	disputesOpen.Dec()
	log.WithFields(logrus.Fields{
		"candidate": d.Candidate.String(),
		"opened":    d.OpenedAt,
		"block":     at,
	}).Info("Dispute timed out")
	return nil
}

// receipt asks the candidate provider about block. Unknown candidates yield nil.
func (m *Module) receipt(block hash.Hash) (*inter.CandidateReceipt, error) {
	r, err := m.candidates.Candidate(block)
	if errors.Is(err, dstore.ErrUnknownCandidate) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not describe candidate")
	}
	return &r, nil
}

func (m *Module) emit(typ int, data interface{}) {
	m.pending = append(m.pending, Event{Type: typ, Data: data})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrUnknownValidator):
		return "unknown-validator"
	case errors.Is(err, ledger.ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, ledger.ErrStaleSession):
		return "stale-session"
	case errors.Is(err, ledger.ErrNoSession):
		return "no-session"
	}
	return "error"
}

// Now is the block number set by the last Initialize.
func (m *Module) Now() idx.Block {
	return m.now
}

// Session returns the live validator snapshot.
func (m *Module) Session() *isession.Snapshot {
	return m.live.Load()
}

// Ledger exposes vote and tally reads.
func (m *Module) Ledger() *ledger.Ledger {
	return m.ledger
}

// Blacklist exposes the barred blocks.
func (m *Module) Blacklist() *forks.Blacklist {
	return m.blacklist
}

// Dispute returns the lifecycle record of candidate, nil if it was never disputed.
func (m *Module) Dispute(candidate hash.Hash) (*inter.CandidateDispute, error) {
	return m.store.GetDispute(candidate)
}

// Resolution returns the resolution of candidate, nil while it has none.
func (m *Module) Resolution(candidate hash.Hash) (*inter.Resolution, error) {
	return m.store.GetResolution(candidate)
}

// Threshold is the vote count binding a verdict in the live session.
func (m *Module) Threshold() int {
	return m.config.DisputeRules().Threshold.Threshold(m.live.Load().Len())
}
