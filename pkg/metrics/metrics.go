package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LeadsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_extracted_total",
			Help: "Total number of inbound messages run through lead extraction (count)",
		},
		[]string{"source", "status"},
	)

	ComposeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compose_duration_ms",
			Help:    "Duration of response composition in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)

	GuardEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_evaluations_total",
			Help: "Total number of guard evaluations (count)",
		},
		[]string{"guard", "action"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Total number of outbound dispatch attempts (count)",
		},
		[]string{"source", "result"},
	)

	SendRateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_rate_limited_total",
			Help: "Total number of sends rejected by the per-source rate window (count)",
		},
		[]string{"source"},
	)

	PendingResponses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_responses",
			Help: "Number of responses currently awaiting approval (count)",
		},
	)

	AutoSendsToday = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auto_sends_today",
			Help: "Number of automatic sends in the current day (count)",
		},
	)

	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Total number of leads escalated to a human (count)",
		},
		[]string{"severity"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of API requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)
)

func RegisterPipelineMetrics() {
	prometheus.MustRegister(LeadsExtractedTotal)
	prometheus.MustRegister(ComposeDuration)
	prometheus.MustRegister(GuardEvaluationsTotal)
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(SendRateLimitedTotal)
	prometheus.MustRegister(PendingResponses)
	prometheus.MustRegister(AutoSendsToday)
	prometheus.MustRegister(EscalationsTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func ObserveComposeDuration(duration time.Duration, status string) {
	ComposeDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncGuardEvaluation(guard, action string) {
	GuardEvaluationsTotal.WithLabelValues(guard, action).Inc()
}

func IncDispatch(source, result string) {
	DispatchTotal.WithLabelValues(source, result).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}
