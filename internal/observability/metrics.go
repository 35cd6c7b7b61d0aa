package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommentsClassified counts classified comments by resulting sentiment.
	CommentsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_comments_classified_total",
		Help: "Total number of classified comments by sentiment",
	}, []string{"sentiment"})

	// CommentsFlagged counts flags raised by category.
	CommentsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_comments_flagged_total",
		Help: "Total number of moderation flags raised by category",
	}, []string{"category"})

	// CommentsAutoHidden counts comments hidden by the moderation policy.
	CommentsAutoHidden = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentguard_comments_auto_hidden_total",
		Help: "Total number of comments hidden automatically",
	})

	// WorkflowExecutions counts rule executions by action and outcome.
	WorkflowExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_workflow_executions_total",
		Help: "Total workflow executions by action and outcome",
	}, []string{"action", "outcome"})

	// WorkflowRunDuration records how long workflow runs take.
	WorkflowRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commentguard_workflow_run_duration_seconds",
		Help:    "Workflow run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// AnalyticsCacheResults counts analytics cache lookups by result.
	AnalyticsCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_analytics_cache_results_total",
		Help: "Analytics cache lookups by result",
	}, []string{"result"})

	// WebSocketConnectionsTotal is the gauge of live event feed connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commentguard_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentguard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// Outcome labels a success flag for metrics.
func Outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
