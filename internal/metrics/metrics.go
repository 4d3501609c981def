package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wcn_notifications_total",
			Help: "Status notifications by outcome reason and channel",
		},
		[]string{"reason", "channel"}, // sent|disabled|no_phone|..., simulated|business_api|none
	)

	SendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wcn_channel_send_seconds",
			Help:    "Latency of channel send calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	WorkerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wcn_worker_events_total",
			Help: "Status-change events consumed by the notifier worker",
		},
		[]string{"result"}, // processed|poison|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		NotificationsTotal,
		SendDuration,
		WorkerEventsTotal,
	)
}
