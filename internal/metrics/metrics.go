// Package metrics exposes Prometheus collectors for the poll pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const prefix = "evohome_monitor_"

var (
	// PollsTotal counts successful poll cycles.
	PollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "polls_total",
		Help: "Successful poll cycles",
	})

	// PollErrorsTotal counts failed poll cycles.
	PollErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "poll_errors_total",
		Help: "Failed poll cycles",
	})

	// ConsecutiveFailures is the current run of failed polls.
	ConsecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "consecutive_poll_failures",
		Help: "Current run of consecutive poll failures",
	})

	// OverridesDetected counts override START events by classification.
	OverridesDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "overrides_detected_total",
		Help: "Override events detected, by classification",
	}, []string{"type"})

	// OverridesCleared counts override CLEAR events.
	OverridesCleared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "overrides_cleared_total",
		Help: "Override cleared events",
	})

	// NotificationsSent counts notification delivery attempts by outcome.
	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "notifications_total",
		Help: "Notification deliveries, by outcome",
	}, []string{"result"})

	// StorageErrors counts forensic store write failures. These are loud:
	// a dropped event means a hole in the forensic record.
	StorageErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "storage_errors_total",
		Help: "Forensic store write failures",
	})

	// ZoneTargetTemp reports the last observed target setpoint per zone.
	ZoneTargetTemp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: prefix + "zone_target_celsius",
		Help: "Last observed target setpoint per zone",
	}, []string{"zone"})

	// ZoneCurrentTemp reports the last measured temperature per zone.
	ZoneCurrentTemp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: prefix + "zone_current_celsius",
		Help: "Last measured temperature per zone",
	}, []string{"zone"})
)

// Register installs all collectors on the default registry. Call once at
// process start.
func Register() {
	prometheus.MustRegister(
		PollsTotal,
		PollErrorsTotal,
		ConsecutiveFailures,
		OverridesDetected,
		OverridesCleared,
		NotificationsSent,
		StorageErrors,
		ZoneTargetTemp,
		ZoneCurrentTemp,
	)
}
