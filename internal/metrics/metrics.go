package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for media delivery. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	responses    *prometheus.CounterVec
	bytesSent    *prometheus.CounterVec
	openFailures *prometheus.CounterVec
	uploads      *prometheus.CounterVec
}

// MustNew registers the collectors with reg and panics on duplicate registration.
// Tests pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elearn",
			Subsystem: "media",
			Name:      "responses_total",
			Help:      "Streamed media responses by kind and status code.",
		}, []string{"kind", "status"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elearn",
			Subsystem: "media",
			Name:      "bytes_sent_total",
			Help:      "Body bytes written by media responses.",
		}, []string{"kind"}),
		openFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elearn",
			Subsystem: "media",
			Name:      "open_failures_total",
			Help:      "Object store stream opens that failed, by reason.",
		}, []string{"kind", "reason"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elearn",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Media uploads by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.responses, m.bytesSent, m.openFailures, m.uploads)
	return m
}

func (m *Metrics) ObserveResponse(kind string, status int, bytes int64) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	if bytes > 0 {
		m.bytesSent.WithLabelValues(kind).Add(float64(bytes))
	}
}

// ObserveOpenFailure counts a failed open; reason is "not_found", "unresolved" or "error".
func (m *Metrics) ObserveOpenFailure(kind, reason string) {
	if m == nil {
		return
	}
	m.openFailures.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) ObserveUpload(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.uploads.WithLabelValues(kind, outcome).Inc()
}
