package plan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsquery",
		Subsystem: "planner",
		Name:      "plans_started_total",
		Help:      "Number of query plans started.",
	})
	plansFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsquery",
		Subsystem: "planner",
		Name:      "plans_failed_total",
		Help:      "Number of query plans that failed.",
	})
	pushDownNodes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsquery",
		Subsystem: "planner",
		Name:      "pushdown_nodes_total",
		Help:      "Number of operator configs folded into data sources.",
	})
	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tsquery",
		Subsystem: "planner",
		Name:      "plan_duration_seconds",
		Help:      "Wall time spent planning, including executor initialization.",
		Buckets:   prometheus.DefBuckets,
	})
)
