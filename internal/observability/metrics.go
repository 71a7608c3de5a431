package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "duty_bot",
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Number of duty shifts started.",
	})

	sessionsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "duty_bot",
		Subsystem: "sessions",
		Name:      "ended_total",
		Help:      "Number of duty shifts ended, by reason.",
	}, []string{"reason"})

	remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "duty_bot",
		Subsystem: "reminders",
		Name:      "sent_total",
		Help:      "Number of liveness reminders delivered.",
	})

	pointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "duty_bot",
		Subsystem: "points",
		Name:      "awarded_total",
		Help:      "Points persisted to the ledger at shift end.",
	})
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionsEnded, remindersSent, pointsAwarded)
}

// SessionStarted counts one started shift.
func SessionStarted() {
	sessionsStarted.Inc()
}

// SessionEnded counts one ended shift under the given reason label
// (manual, no_response, duration_limit).
func SessionEnded(reason string) {
	sessionsEnded.WithLabelValues(reason).Inc()
}

// ReminderSent counts one delivered reminder.
func ReminderSent() {
	remindersSent.Inc()
}

// PointsAwarded adds the persisted payout to the running counter.
func PointsAwarded(n int64) {
	if n <= 0 {
		return
	}
	pointsAwarded.Add(float64(n))
}
