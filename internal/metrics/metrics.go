// Package metrics instruments façade calls and guard state with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hpungsan/wortal/internal/guard"
)

// OutcomeOK labels a successful call.
const OutcomeOK = "ok"

// Recorder owns the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	calls      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wortal",
				Subsystem: "facade",
				Name:      "calls_total",
				Help:      "Façade calls by operation and outcome (ok or error kind)",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wortal",
				Subsystem: "facade",
				Name:      "call_duration_seconds",
				Help:      "Time spent in the capability provider per operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wortal",
				Subsystem: "guard",
				Name:      "rejections_total",
				Help:      "Calls rejected with PENDING_REQUEST per capability class",
			},
			[]string{"class"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "wortal",
				Subsystem: "guard",
				Name:      "in_flight",
				Help:      "1 while a capability class has a pending request",
			},
			[]string{"class"},
		),
	}

	for _, c := range []prometheus.Collector{r.calls, r.duration, r.rejections, r.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveCall records one finished call.
func (r *Recorder) ObserveCall(op, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Entered implements guard.Observer.
func (r *Recorder) Entered(class guard.Class) {
	if r == nil {
		return
	}
	r.inFlight.WithLabelValues(string(class)).Set(1)
}

// Exited implements guard.Observer.
func (r *Recorder) Exited(class guard.Class) {
	if r == nil {
		return
	}
	r.inFlight.WithLabelValues(string(class)).Set(0)
}

// Rejected implements guard.Observer.
func (r *Recorder) Rejected(class guard.Class) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(string(class)).Inc()
}
