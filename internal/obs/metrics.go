package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the instruments a host process may register against its own
// prometheus.Registry. Exporting them over HTTP is a non-goal for this
// repository; the instruments exist so a host can wire them into whatever
// exporter it runs.
type Metrics struct {
	PeerBans          prometheus.Counter
	ReputationChanges *prometheus.CounterVec
	PoolSize          *prometheus.GaugeVec
	ConsensusRounds   prometheus.Counter
	RoundLatency      prometheus.Histogram
	SubmissionResult  *prometheus.CounterVec
}

// NewMetrics constructs the instrument set without registering it anywhere.
func NewMetrics() *Metrics {
	return &Metrics{
		PeerBans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "angstrom_peer_bans_total",
			Help: "Number of peers banned for reputation exceeding the ban threshold.",
		}),
		ReputationChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "angstrom_reputation_changes_total",
			Help: "Reputation changes applied to peers, by offense kind.",
		}, []string{"kind"}),
		PoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "angstrom_order_pool_size",
			Help: "Number of orders currently held, by pool id and sub-pool.",
		}, []string{"pool_id", "subpool"}),
		ConsensusRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "angstrom_consensus_rounds_total",
			Help: "Number of consensus rounds that reached Finalization.",
		}),
		RoundLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "angstrom_consensus_round_latency_seconds",
			Help:    "Wall-clock time from BidAggregation entry to Finalization.",
			Buckets: prometheus.DefBuckets,
		}),
		SubmissionResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "angstrom_submission_result_total",
			Help: "Bundle submission outcomes, by sink kind and result.",
		}, []string{"sink", "result"}),
	}
}

// Register adds every instrument to reg. Callers that don't want metrics at
// all simply never call this.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PeerBans, m.ReputationChanges, m.PoolSize,
		m.ConsensusRounds, m.RoundLatency, m.SubmissionResult,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
