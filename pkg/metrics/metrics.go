package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalvas/hdverifier/pkg/client"
)

// Metrics holds the Prometheus metrics of the verifier
type Metrics struct {
	verifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	requestsSent  prometheus.Counter
	responses     prometheus.Counter
	discarded     prometheus.Counter
	timeouts      prometheus.Counter
	errors        prometheus.Counter
}

// New creates the verifier metrics. Nothing is registered until Register.
func New() *Metrics {
	return &Metrics{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdverifier_verifications_total",
				Help: "Total verifications by mode and outcome",
			},
			[]string{"mode", "status"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hdverifier_verification_duration_seconds",
				Help:    "Time from request to terminal outcome",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),

		requestsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hdverifier_radius_requests_sent_total",
				Help: "Total Access-Request datagrams sent, retries included",
			},
		),

		responses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hdverifier_radius_responses_received_total",
				Help: "Total datagrams accepted as the answer to a pending request",
			},
		),

		discarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hdverifier_radius_discarded_total",
				Help: "Total datagrams dropped for an unexpected source or no pending request",
			},
		),

		timeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hdverifier_radius_timeouts_total",
				Help: "Total attempts that got no reply in time",
			},
		),

		errors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hdverifier_radius_errors_total",
				Help: "Total socket failures while talking to the server",
			},
		),
	}
}

// Register registers all collectors with reg, or the default registerer when
// reg is nil. When an equal collector is already registered, it is adopted so
// that everything recorded here shows up in reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error

	if m.verifications, err = register(reg, m.verifications); err != nil {
		return err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return err
	}

	for _, c := range []*prometheus.Counter{&m.requestsSent, &m.responses, &m.discarded, &m.timeouts, &m.errors} {
		if *c, err = register(reg, *c); err != nil {
			return err
		}
	}

	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	return c, err
}

// RecordVerification records one finished verification.
func (m *Metrics) RecordVerification(mode, status string, duration time.Duration) {
	m.verifications.WithLabelValues(mode, status).Inc()
	m.latency.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordExchange adds the wire counters of one exchange with the server.
func (m *Metrics) RecordExchange(stats client.Statistics) {
	m.requestsSent.Add(float64(stats.RequestsSent))
	m.responses.Add(float64(stats.ResponsesReceived))
	m.discarded.Add(float64(stats.Discarded))
	m.timeouts.Add(float64(stats.Timeouts))
	m.errors.Add(float64(stats.Errors))
}

// Handler returns an HTTP handler exposing metrics from g, or the default
// gatherer when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
