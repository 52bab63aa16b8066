package cnwlicense

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts Gate verifications. Labels carry reason codes only, never
// license ids or fingerprints.
type Metrics struct {
	verifications *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewMetrics registers the Gate collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cnw",
			Subsystem: "license",
			Name:      "verifications_total",
			Help:      "License verifications by outcome and reason code.",
		}, []string{"result", "reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cnw",
			Subsystem: "license",
			Name:      "verification_duration_seconds",
			Help:      "Time spent verifying a license, including file reads.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(m.verifications, m.duration)
	return m
}

func (m *Metrics) observe(res VerifyResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "rejected"
	if res.OK {
		result = "ok"
	}
	m.verifications.WithLabelValues(result, ReasonCode(res.Reason)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeError(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues("error", "configuration").Inc()
	m.duration.Observe(elapsed.Seconds())
}
