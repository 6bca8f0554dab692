package prometheus

import (
	"strconv"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Observer exports relay activity as Prometheus metrics.
type Observer struct {
	sessions    prometheus.Gauge
	submissions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	reaped      prometheus.Counter
}

var _ ports.RelayObserver = (*Observer)(nil)

func NewObserver(registerer prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of live sessions.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotations_submitted_total",
			Help:      "Annotations submitted, by whether a live session absorbed them.",
		}, []string{"routed"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed polls, by the reason they returned.",
		}, []string{"reason"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reaped_total",
			Help:      "Sessions evicted for inactivity.",
		}),
	}

	for _, collector := range []prometheus.Collector{o.sessions, o.submissions, o.polls, o.reaped} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (o *Observer) SessionsChanged(live int) {
	o.sessions.Set(float64(live))
}

func (o *Observer) AnnotationSubmitted(routed bool) {
	o.submissions.WithLabelValues(strconv.FormatBool(routed)).Inc()
}

func (o *Observer) PollCompleted(reason domain.PollReason) {
	o.polls.WithLabelValues(string(reason)).Inc()
}

func (o *Observer) SessionsReaped(count int) {
	o.reaped.Add(float64(count))
}
