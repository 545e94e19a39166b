package simulator

import "github.com/prometheus/client_golang/prometheus"

var (
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenwatch_simulation_passes_total",
			Help: "Simulation passes by trigger and result.",
		},
		[]string{"trigger", "result"},
	)
	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "havenwatch_simulation_pass_duration_seconds",
			Help:    "Duration of simulation passes.",
			Buckets: prometheus.DefBuckets,
		},
	)
	readingsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenwatch_simulation_readings_total",
			Help: "Readings written by the simulator by kind.",
		},
		[]string{"kind"},
	)
	failuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "havenwatch_simulation_failures_total",
			Help: "Per-resident failures during simulation passes.",
		},
	)
)

func init() {
	prometheus.MustRegister(passesTotal)
	prometheus.MustRegister(passDuration)
	prometheus.MustRegister(readingsWrittenTotal)
	prometheus.MustRegister(failuresTotal)
}

func observePass(res *PassResult) {
	result := "ok"
	switch {
	case res.Error != "":
		result = "error"
	case res.Canceled:
		result = "canceled"
	case res.Failures > 0:
		result = "partial"
	}
	passesTotal.WithLabelValues(res.Trigger, result).Inc()
	passDuration.Observe(res.Duration.Seconds())
	readingsWrittenTotal.WithLabelValues("health").Add(float64(res.HealthReadings))
	readingsWrittenTotal.WithLabelValues("environment").Add(float64(res.EnvironmentReadings))
	failuresTotal.Add(float64(res.Failures))
}
