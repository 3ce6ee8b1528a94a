package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var validRouteActions = map[string]bool{
	"reply-normally":     true,
	"reply-with-warning": true,
	"create-new-email":   true,
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateKafka(cfg.Broker.Kafka); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validatePipeline(cfg.Pipeline); err != nil {
		errors = append(errors, err)
	}

	if err := validateBreaker(cfg.Breaker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validatePipeline(cfg PipelineConfig) error {
	if cfg.Pricing.HourlyRate <= 0 {
		return &ValidationError{
			Field:   "pipeline.pricing.hourly_rate",
			Message: "hourly rate must be positive",
		}
	}

	if cfg.Pricing.Workers <= 0 {
		return &ValidationError{
			Field:   "pipeline.pricing.workers",
			Message: "worker count must be positive",
		}
	}

	if cfg.Guards.Duplicate.LookbackDays <= 0 {
		return &ValidationError{
			Field:   "pipeline.guards.duplicate.lookback_days",
			Message: "lookback window must be positive",
		}
	}

	if cfg.Guards.Duplicate.WarnWindowDays < cfg.Guards.Duplicate.LookbackDays {
		return &ValidationError{
			Field:   "pipeline.guards.duplicate.warn_window_days",
			Message: "warn window must be at least the lookback window",
		}
	}

	if cfg.Guards.Conflict.LowScore >= cfg.Guards.Conflict.MediumScore ||
		cfg.Guards.Conflict.MediumScore >= cfg.Guards.Conflict.HighScore ||
		cfg.Guards.Conflict.HighScore >= cfg.Guards.Conflict.CriticalScore {
		return &ValidationError{
			Field:   "pipeline.guards.conflict",
			Message: "conflict score thresholds must be strictly increasing",
		}
	}

	for i, rule := range cfg.Routing {
		if rule.Source == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("pipeline.routing[%d].source", i),
				Message: "routing rule source cannot be empty",
			}
		}
		if !validRouteActions[rule.Action] {
			return &ValidationError{
				Field:   fmt.Sprintf("pipeline.routing[%d].action", i),
				Message: fmt.Sprintf("unknown routing action: %s (valid: reply-normally, reply-with-warning, create-new-email)", rule.Action),
			}
		}
	}

	if cfg.Approval.MaxAutoPerDay < 0 {
		return &ValidationError{
			Field:   "pipeline.approval.max_auto_per_day",
			Message: "daily auto-send cap must be non-negative",
		}
	}

	if cfg.Dispatch.RateLimitMax <= 0 {
		return &ValidationError{
			Field:   "pipeline.dispatch.rate_limit_max",
			Message: "rate limit max must be positive",
		}
	}

	if cfg.Dispatch.RateLimitWindow <= 0 {
		return &ValidationError{
			Field:   "pipeline.dispatch.rate_limit_window",
			Message: "rate limit window must be positive",
		}
	}

	return nil
}

func validateBreaker(cfg BreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureThreshold <= 0 {
		return &ValidationError{
			Field:   "breaker.failure_threshold",
			Message: "failure threshold must be positive",
		}
	}

	if cfg.RecoveryTimeout <= 0 {
		return &ValidationError{
			Field:   "breaker.recovery_timeout",
			Message: "recovery timeout must be positive",
		}
	}

	return nil
}
