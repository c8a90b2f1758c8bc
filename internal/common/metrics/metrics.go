package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ChatbotIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_intents_total",
			Help: "Classified user utterances by intent",
		},
		[]string{"intent"},
	)

	SQLExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_sql_executions_total",
			Help: "Generated SQL statements by result envelope type",
		},
		[]string{"outcome"},
	)

	SQLExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_sql_execution_duration_seconds",
			Help:    "Duration of generated SQL execution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_llm_requests_total",
			Help: "Text completion calls by purpose and status",
		},
		[]string{"purpose", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_llm_request_duration_seconds",
			Help:    "Duration of text completion calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"purpose"},
	)

	SchemaSnapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_schema_snapshots_total",
			Help: "Schema snapshot loads by source (database, cache, failed)",
		},
		[]string{"source"},
	)

	TitleGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_title_generations_total",
			Help: "Conversation title synthesis attempts by status",
		},
		[]string{"status"},
	)
)
