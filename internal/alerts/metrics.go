package alerts

import "github.com/prometheus/client_golang/prometheus"

var (
	alertsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenwatch_alerts_created_total",
			Help: "Alerts created by type and severity.",
		},
		[]string{"type", "severity"},
	)
	alertTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenwatch_alert_transitions_total",
			Help: "Alert status transitions by target status.",
		},
		[]string{"status"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havenwatch_alert_notifications_total",
			Help: "Alert notification deliveries by notifier and result.",
		},
		[]string{"notifier", "result"},
	)
)

func init() {
	prometheus.MustRegister(alertsCreatedTotal)
	prometheus.MustRegister(alertTransitionsTotal)
	prometheus.MustRegister(notificationsTotal)
}
