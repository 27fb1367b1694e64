// Package telemetry exposes prometheus metrics for the debate engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry records engine-level metrics. A nil *Telemetry is a valid no-op
// receiver, so callers never need to guard their calls.
type Telemetry struct {
	debatesTotal    prometheus.Counter
	chunksTotal     prometheus.Counter
	memberTerminals *prometheus.CounterVec
	memberLatency   *prometheus.HistogramVec
	synthesisTotal  *prometheus.CounterVec
}

// New registers the engine metrics on the given registerer.
func New(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		debatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "council_debates_total",
			Help: "Debates started by the orchestration engine",
		}),
		chunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "council_chunks_total",
			Help: "Text fragments forwarded to callers",
		}),
		memberTerminals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "council_member_responses_total",
			Help: "Member responses by terminal status",
		}, []string{"status"}),
		memberLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "council_member_response_seconds",
			Help:    "Wall time per member generation call",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		}, []string{"model"}),
		synthesisTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "council_synthesis_total",
			Help: "Synthesis outcomes by status",
		}, []string{"status"}),
	}
}

// DebateStarted counts one accepted debate.
func (t *Telemetry) DebateStarted() {
	if t == nil {
		return
	}
	t.debatesTotal.Inc()
}

// ChunkForwarded counts one streamed fragment.
func (t *Telemetry) ChunkForwarded() {
	if t == nil {
		return
	}
	t.chunksTotal.Inc()
}

// MemberTerminal records one member reaching a terminal status.
func (t *Telemetry) MemberTerminal(model, status string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.memberTerminals.WithLabelValues(status).Inc()
	t.memberLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// SynthesisFinished records one synthesis outcome ("complete", "error" or
// "skipped").
func (t *Telemetry) SynthesisFinished(status string) {
	if t == nil {
		return
	}
	t.synthesisTotal.WithLabelValues(status).Inc()
}
