package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JudgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_request_duration_seconds",
			Help:    "Duration of one testcase execution against the remote judge",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	JudgeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_errors_total",
			Help: "Remote judge failures by kind",
		},
		[]string{"kind"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Judged submissions by mode and verdict",
		},
		[]string{"mode", "verdict"},
	)

	StreakUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_updates_total",
			Help: "Streak updates by result (incremented, reset, unchanged)",
		},
		[]string{"result"},
	)
)

// Register adds every collector to reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(JudgeRequestDuration)
	reg.MustRegister(JudgeErrorsTotal)
	reg.MustRegister(SubmissionsTotal)
	reg.MustRegister(StreakUpdatesTotal)
}
