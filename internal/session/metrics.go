package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_session_started_total",
		Help: "Exam sessions successfully materialized and started.",
	})
	metricSessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exam_session_live",
		Help: "Sessions currently held by the manager.",
	})
	metricSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_session_submissions_total",
		Help: "Submission outcomes by result.",
	}, []string{"outcome"})
	metricAutosaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_session_autosave_failures_total",
		Help: "Durable answer-set writes that failed (session continues).",
	})
	metricClockExpiries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_session_clock_expiries_total",
		Help: "Countdowns that reached zero and triggered auto-submission.",
	})
)

const (
	outcomeCompleted    = "completed"
	outcomeUnauthorized = "unauthorized"
	outcomeError        = "error"
)
