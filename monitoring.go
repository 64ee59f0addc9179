package laptracker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var prometheusMonitoringHandler = http.NotFoundHandler

func InitMonitoring() {
	logrus.Infof("initialising Prometheus monitoring")

	prometheus.MustRegister(scanCounter, lapDuration, httpInFlightGauge, httpCounter, httpDuration)
	prometheusMonitoringHandler = promhttp.Handler
}

// MonitoringWrapper instruments handlers once monitoring is initialised.
func MonitoringWrapper(handler string, next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(httpInFlightGauge,
		promhttp.InstrumentHandlerDuration(httpDuration.MustCurryWith(prometheus.Labels{"handler": handler}),
			promhttp.InstrumentHandlerCounter(httpCounter, next),
		),
	)
}

// scanCounter is partitioned by scan outcome: accepted, cooldown or unknown.
var scanCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "laptracker_scans_total",
		Help: "A counter of processed QR scans by outcome.",
	},
	[]string{"result"},
)

// lapDuration buckets reflect expected lap times for a school running
// circuit (tens of seconds to a few minutes).
var lapDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "laptracker_lap_duration_seconds",
		Help:    "A histogram of recorded lap times.",
		Buckets: []float64{30, 60, 90, 120, 180, 300, 600},
	},
)

var httpInFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "in_flight_requests",
	Help: "A gauge of requests currently being served by the wrapped handler.",
})

var httpCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "web_requests_total",
		Help: "A counter for requests to the wrapped handler.",
	},
	[]string{"code", "method"},
)

var httpDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "request_duration_seconds",
		Help:    "A histogram of latencies for requests.",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10},
	},
	[]string{"handler", "method"},
)
