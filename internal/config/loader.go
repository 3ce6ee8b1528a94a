package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.audit_topic", "BROKER_KAFKA_AUDIT_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("llm.provider", "LLM_PROVIDER")
	viper.BindEnv("llm.api_key", "LLM_API_KEY")
	viper.BindEnv("llm.model", "LLM_MODEL")

	viper.BindEnv("pipeline.dispatch.dry_run", "PIPELINE_DISPATCH_DRY_RUN")
	viper.BindEnv("pipeline.dispatch.require_approval", "PIPELINE_DISPATCH_REQUIRE_APPROVAL")
	viper.BindEnv("pipeline.approval.require_approval", "PIPELINE_APPROVAL_REQUIRE_APPROVAL")

	viper.BindEnv("pipeline.dispatch.mail.host", "PIPELINE_DISPATCH_MAIL_HOST")
	viper.BindEnv("pipeline.dispatch.mail.port", "PIPELINE_DISPATCH_MAIL_PORT")
	viper.BindEnv("pipeline.dispatch.mail.username", "PIPELINE_DISPATCH_MAIL_USERNAME")
	viper.BindEnv("pipeline.dispatch.mail.password", "PIPELINE_DISPATCH_MAIL_PASSWORD")
	viper.BindEnv("pipeline.dispatch.mail.from", "PIPELINE_DISPATCH_MAIL_FROM")
}

func setDefaults() {
	viper.SetDefault("pipeline.extractor.company_domain", "rendetalje.dk")

	viper.SetDefault("pipeline.pricing.hourly_rate", 349)
	viper.SetDefault("pipeline.pricing.workers", 2)
	viper.SetDefault("pipeline.pricing.min_hours", 2.0)
	viper.SetDefault("pipeline.pricing.margin_percent", 20.0)

	viper.SetDefault("pipeline.composer.slot_count", 3)
	viper.SetDefault("pipeline.composer.slot_horizon_days", 14)
	viper.SetDefault("pipeline.composer.slot_duration_hours", 3)

	viper.SetDefault("pipeline.guards.duplicate.lookback_days", 7)
	viper.SetDefault("pipeline.guards.duplicate.warn_window_days", 30)
	viper.SetDefault("pipeline.guards.conflict.low_score", 3)
	viper.SetDefault("pipeline.guards.conflict.medium_score", 6)
	viper.SetDefault("pipeline.guards.conflict.high_score", 9)
	viper.SetDefault("pipeline.guards.conflict.critical_score", 12)

	viper.SetDefault("pipeline.approval.require_approval", true)
	viper.SetDefault("pipeline.approval.max_auto_per_day", 50)

	viper.SetDefault("pipeline.dispatch.dry_run", true)
	viper.SetDefault("pipeline.dispatch.require_approval", false)
	viper.SetDefault("pipeline.dispatch.rate_limit_max", 10)
	viper.SetDefault("pipeline.dispatch.rate_limit_window", "5m")
	viper.SetDefault("pipeline.dispatch.min_body_length", 50)
	viper.SetDefault("pipeline.dispatch.min_subject_length", 3)

	viper.SetDefault("breaker.enabled", true)
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.recovery_timeout", "60s")
	viper.SetDefault("breaker.call_timeout", "10s")
	viper.SetDefault("breaker.max_attempts", 2)
	viper.SetDefault("breaker.retry_interval", "500ms")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if apiKey := viper.GetString("LLM_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	return nil
}
