package uploadguard

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports intake verdicts to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	verdicts      *prometheus.CounterVec
	detected      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	acceptedBytes prometheus.Counter
}

// NewMetrics registers the intake collectors on reg.
// Collectors already registered under the same names are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "uploadguard"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{}
	var err error

	m.verdicts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdicts_total",
		Help:      "Upload verdicts by outcome and rejection reason.",
	}, []string{"outcome", "reason"}))
	if err != nil {
		return nil, err
	}

	m.detected, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detected_types_total",
		Help:      "Uploads by type detected from magic bytes.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	m.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent evaluating an upload attempt.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	m.acceptedBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accepted_bytes_total",
		Help:      "Cumulative size of accepted uploads.",
	}))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register intake metric: %w", err)
	}
	return c, nil
}

// Observe records a verdict
func (m *Metrics) Observe(v *Verdict) {
	if m == nil || v == nil {
		return
	}

	outcome := "rejected"
	reason := ""
	if v.Accepted {
		outcome = "accepted"
		m.acceptedBytes.Add(float64(v.Size))
	} else if v.Rejection != nil {
		reason = string(v.Rejection.Reason)
	}

	m.verdicts.WithLabelValues(outcome, reason).Inc()
	m.duration.WithLabelValues(outcome).Observe(v.Duration.Seconds())
	if v.DetectedType != "" {
		m.detected.WithLabelValues(string(v.DetectedType)).Inc()
	}
}
