// Package metrics exposes prometheus counters for message handling and
// the IMAP/SMTP round trips behind it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricNormalize = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minimail_normalize_total",
			Help: "Number of raw messages normalized, by result.",
		},
		[]string{"result"},
	)
	metricSend = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minimail_send_total",
			Help: "Number of outgoing messages, by result.",
		},
		[]string{"result"},
	)
	metricTransport = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minimail_transport_duration_seconds",
			Help:    "Duration of IMAP and SMTP operations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"op", "result"},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Normalized counts one normalize attempt
func Normalized(err error) {
	metricNormalize.WithLabelValues(result(err)).Inc()
}

// Sent counts one send attempt
func Sent(err error) {
	metricSend.WithLabelValues(result(err)).Inc()
}

// Transport records how long op took since start
func Transport(op string, start time.Time, err error) {
	metricTransport.WithLabelValues(op, result(err)).Observe(float64(time.Since(start)) / float64(time.Second))
}

// Handler serves the default registry in the prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
