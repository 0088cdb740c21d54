package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation for a membership registry.
// A nil *Metrics is valid and every method on it is a no-op, so callers
// that don't care about metrics can pass nil straight through.
type Metrics struct {
	InflightRPCs prometheus.Gauge
	QueueDepth   prometheus.Gauge
	Version      prometheus.Gauge
	RPCsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers a full set of membership metrics against
// reg. Passing a nil reg skips registration (useful for tests that want the
// instruments without a live Prometheus endpoint).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InflightRPCs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_dispatcher_inflight_rpcs",
			Help: "Number of membership-update RPCs currently in flight.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_dispatcher_queue_depth",
			Help: "Number of committed deltas currently buffered in the update queue.",
		}),
		Version: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_server_list_version",
			Help: "Current committed version of the server list.",
		}),
		RPCsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_dispatcher_rpcs_total",
			Help: "Membership-update RPCs dispatched, partitioned by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.InflightRPCs, m.QueueDepth, m.Version, m.RPCsTotal)
	}
	return m
}

func (m *Metrics) setInflight(n int) {
	if m == nil {
		return
	}
	m.InflightRPCs.Set(float64(n))
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) setVersion(v uint64) {
	if m == nil {
		return
	}
	m.Version.Set(float64(v))
}

func (m *Metrics) incRPC(result string) {
	if m == nil {
		return
	}
	m.RPCsTotal.WithLabelValues(result).Inc()
}

// SetInflight records the current number of in-flight update RPCs.
func (m *Metrics) SetInflight(n int) { m.setInflight(n) }

// SetQueueDepth records the current depth of the committed-delta queue.
func (m *Metrics) SetQueueDepth(n int) { m.setQueueDepth(n) }

// SetVersion records the registry's current committed version.
func (m *Metrics) SetVersion(v uint64) { m.setVersion(v) }

// ObserveRPCResult increments the RPC outcome counter for result, one of
// "ok", "timeout", or "not_up".
func (m *Metrics) ObserveRPCResult(result string) { m.incRPC(result) }
