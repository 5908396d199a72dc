package disputes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	disputesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_opened_total",
		Help: "Number of disputes opened by a first vote",
	})
	disputesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_resolved_total",
		Help: "Number of disputes resolved, by verdict",
	}, []string{"verdict"})
	disputesTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_timed_out_total",
		Help: "Number of disputes that timed out without a verdict",
	})
	disputesOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "disputes_open",
		Help: "Disputes currently open",
	})
	votesAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_votes_total",
		Help: "Votes recorded, by source",
	}, []string{"source"})
	votesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_votes_rejected_total",
		Help: "Votes rejected, by reason",
	}, []string{"reason"})
	offendersScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_offenders_total",
		Help: "Validators handed to the punishment module",
	})
	blocksBlacklisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_blacklisted_blocks_total",
		Help: "Blocks barred by an invalid verdict",
	})
	headsInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_invalidated_heads_total",
		Help: "Branch heads pruned because they descend from an invalid block",
	})
	ambiguousResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_ambiguous_total",
		Help: "Times both sides reached the threshold. Any non-zero value is a bug",
	})
	sessionGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "disputes_session",
		Help: "The live session index",
	})
)
