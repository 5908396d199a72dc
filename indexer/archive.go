// Package indexer mirrors dispute events into a SQL database so resolutions and
// punished validators can be queried after the fact. It is fed from the
// module's event feed and never writes back to the dispute store.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rony4d/go-disputes/disputes"
	"github.com/rony4d/go-disputes/inter"
)

var log = logrus.WithField("prefix", "indexer")

// Open connects to the archive database. It returns nil without error when no
// DSN is configured, which disables archiving.
func Open(dialect, dsn string) (*gorm.DB, error) {
	if dialect == "" || dsn == "" {
		return nil, nil
	}
	// only errors reach the log
	gormLogger := logger.New(log, logger.Config{
		LogLevel:                  logger.Error,
		IgnoreRecordNotFoundError: true,
	})
	switch dialect {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	default:
		return nil, fmt.Errorf("unsupported archive dialect: %s", dialect)
	}
}

// AutoMigrate creates or updates the archive tables.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&DisputeRecord{},
		&OffenderRecord{},
		&InvalidatedHead{},
	)
}

// Archive writes dispute events to the database.
type Archive struct {
	db  *gorm.DB
	now func() time.Time
}

// NewArchive returns an archive over db.
func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db, now: time.Now}
}

// Run records events until ctx is done or events is closed. A failed write is
// logged and skipped.
func (a *Archive) Run(ctx context.Context, events <-chan disputes.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := a.Record(e); err != nil {
				log.WithError(err).WithField("event", e.String()).Warn("Failed to archive dispute event")
			}
		}
	}
}

// EventSource delivers finalized dispute events. disputes.Module implements it.
type EventSource interface {
	SubscribeEvents(ch chan<- disputes.Event) event.Subscription
}

// Follow subscribes to src and records its events in the background until
// ctx is done or stop is called. The subscription ends with the run, so the
// sender never blocks on an archive that stopped reading.
func (a *Archive) Follow(ctx context.Context, src EventSource, buffer int) (stop func()) {
	events := make(chan disputes.Event, buffer)
	sub := src.SubscribeEvents(events)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Unsubscribe()
		a.Run(ctx, events)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Record writes one event.
func (a *Archive) Record(e disputes.Event) error {
	rec, ok := disputeRecord(e, a.now())
	if !ok {
		return errors.Errorf("unexpected event %s", e.String())
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		var row DisputeRecord
		if err := tx.Where(DisputeRecord{Candidate: rec.Candidate}).Assign(rec).FirstOrCreate(&row).Error; err != nil {
			return errors.Wrapf(err, "dispute %s", rec.Candidate)
		}
		data, ok := e.Data.(*disputes.DisputeResolvedData)
		if !ok {
			return nil
		}
		if offenders := offenderRecords(data); len(offenders) != 0 {
			if err := tx.CreateInBatches(offenders, 1000).Error; err != nil {
				return errors.Wrapf(err, "offenders of %s", rec.Candidate)
			}
		}
		if heads := invalidatedHeads(data); len(heads) != 0 {
			if err := tx.CreateInBatches(heads, 1000).Error; err != nil {
				return errors.Wrapf(err, "invalidated heads of %s", rec.Candidate)
			}
		}
		return nil
	})
}

// disputeRecord maps an event onto the columns it updates. Zero fields are
// left untouched by Assign.
func disputeRecord(e disputes.Event, now time.Time) (DisputeRecord, bool) {
	switch data := e.Data.(type) {
	case *disputes.DisputeIndicatedData:
		rec := DisputeRecord{
			Candidate: data.Candidate.String(),
			Session:   uint32(data.Session),
			OpenedAt:  uint64(data.BlockNumber),
			State:     inter.Open.String(),
		}
		if data.Receipt != nil {
			rec.ParaID = uint32(data.Receipt.Descriptor.ParaID)
		}
		return rec, true
	case *disputes.DisputeResolvedData:
		p := data.Payload
		return DisputeRecord{
			Candidate:   data.Candidate.String(),
			Session:     uint32(p.Session),
			State:       inter.Resolved.String(),
			Verdict:     p.Verdict.String(),
			HeadData:    p.HeadData.String(),
			Punished:    len(p.Punished),
			Invalidated: len(p.Invalidated),
			ConcludedAt: now,
		}, true
	case *disputes.DisputeTimedOutData:
		return DisputeRecord{
			Candidate:   data.Candidate.String(),
			State:       inter.TimedOut.String(),
			Verdict:     inter.Undecided.String(),
			HeadData:    data.HeadData.String(),
			ConcludedAt: now,
		}, true
	}
	return DisputeRecord{}, false
}

func offenderRecords(data *disputes.DisputeResolvedData) []OffenderRecord {
	out := make([]OffenderRecord, 0, len(data.Payload.Offenders))
	for _, o := range data.Payload.Offenders {
		out = append(out, OffenderRecord{
			Candidate:   data.Candidate.String(),
			ValidatorID: uint32(o.ValidatorID),
			Verdict:     data.Payload.Verdict.String(),
			Reasons:     o.Reasons(),
			Status:      o.Status,
		})
	}
	return out
}

func invalidatedHeads(data *disputes.DisputeResolvedData) []InvalidatedHead {
	out := make([]InvalidatedHead, 0, len(data.Payload.Invalidated))
	for _, h := range data.Payload.Invalidated {
		out = append(out, InvalidatedHead{
			Candidate: data.Candidate.String(),
			Head:      h.String(),
		})
	}
	return out
}
