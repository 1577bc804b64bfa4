package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric a replica exports. Unlike a general-purpose
// server, a single room has three concerns worth instrumenting: the commit
// protocol, the failure detector, and the songlist itself.
type Registry struct {
	// Commit protocol metrics
	CommitRoundsTotal    *prometheus.CounterVec // result: commit, abort
	CommitRoundDuration  prometheus.Histogram
	VotesTotal           *prometheus.CounterVec // vote: yes, no
	ElectionsTotal       *prometheus.CounterVec // result: won (election wins and bootstrap self-promotion)
	CurrentCommitIter    prometheus.Gauge

	// Failure detector metrics
	HeartbeatsSentTotal     *prometheus.CounterVec // peer
	HeartbeatsReceivedTotal *prometheus.CounterVec // peer
	AliveParticipants       prometheus.Gauge
	CurrentRole             *prometheus.GaugeVec // role: participant, coordinator, observer

	// Songlist metrics
	SongListSize prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry, built once.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry builds a Registry against a fresh prometheus.Registry. Tests
// and multi-replica-in-one-process harnesses should call this directly
// rather than sharing DefaultRegistry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.CommitRoundsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "songlist_commit_rounds_total",
			Help: "Total number of 3PC rounds, by terminal result",
		},
		[]string{"result"},
	)
	r.CommitRoundDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name: "songlist_commit_round_duration_seconds",
			Help: "Wall time from VoteReq broadcast to terminal decision",
		},
	)
	r.VotesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "songlist_votes_total",
			Help: "Votes cast by this replica as a participant",
		},
		[]string{"vote"},
	)
	r.ElectionsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "songlist_elections_total",
			Help: "Elections this replica participated in, by outcome",
		},
		[]string{"result"},
	)
	r.CurrentCommitIter = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "songlist_commit_iter",
			Help: "Current commit round counter",
		},
	)

	r.HeartbeatsSentTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "songlist_heartbeats_sent_total",
			Help: "Heartbeats sent, by destination peer",
		},
		[]string{"peer"},
	)
	r.HeartbeatsReceivedTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "songlist_heartbeats_received_total",
			Help: "Heartbeats received, by source peer",
		},
		[]string{"peer"},
	)
	r.AliveParticipants = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "songlist_alive_participants",
			Help: "Number of participants currently considered alive",
		},
	)
	r.CurrentRole = promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "songlist_role",
			Help: "1 for the currently announced role, 0 for the others",
		},
		[]string{"role"},
	)

	r.SongListSize = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "songlist_entries",
			Help: "Number of songs currently held in the local songlist",
		},
	)

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry, for
// wiring into an HTTP /metrics handler.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
