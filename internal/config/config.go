package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Broker   BrokerConfig
	Logging  LoggingConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Breaker  BreakerConfig
}

type ServerConfig struct {
	Port                int             `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration   `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration   `mapstructure:"write_timeout_seconds"`
	RateLimit           RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string    `mapstructure:"brokers"`
	GroupID    string      `mapstructure:"group_id"`
	InputTopic string      `mapstructure:"input_topic"`
	AuditTopic string      `mapstructure:"audit_topic"`
	DLQTopic   string      `mapstructure:"dlq_topic"`
	Retry      RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type PipelineConfig struct {
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Composer  ComposerConfig  `mapstructure:"composer"`
	Guards    GuardsConfig    `mapstructure:"guards"`
	Routing   []RouteRule     `mapstructure:"routing"`
	Approval  ApprovalConfig  `mapstructure:"approval"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
}

// ExtractorConfig controls lead source recognition. Extra sources are
// matched with CEL expressions over from/replyTo/subject/body.
type ExtractorConfig struct {
	CompanyDomain string         `mapstructure:"company_domain"`
	Sources       []SourceConfig `mapstructure:"sources"`
}

type SourceConfig struct {
	Name  string `mapstructure:"name"`
	Match string `mapstructure:"match"`
	Route string `mapstructure:"route"`
}

type PricingConfig struct {
	HourlyRate    int     `mapstructure:"hourly_rate"`
	Workers       int     `mapstructure:"workers"`
	MinHours      float64 `mapstructure:"min_hours"`
	MarginPercent float64 `mapstructure:"margin_percent"`
}

type ComposerConfig struct {
	CompanyName       string `mapstructure:"company_name"`
	SignatureName     string `mapstructure:"signature_name"`
	ContactEmail      string `mapstructure:"contact_email"`
	ContactPhone      string `mapstructure:"contact_phone"`
	SlotCount         int    `mapstructure:"slot_count"`
	SlotHorizonDays   int    `mapstructure:"slot_horizon_days"`
	SlotDurationHours int    `mapstructure:"slot_duration_hours"`
}

type GuardsConfig struct {
	Duplicate DuplicateGuardConfig `mapstructure:"duplicate"`
	Conflict  ConflictGuardConfig  `mapstructure:"conflict"`
}

type DuplicateGuardConfig struct {
	LookbackDays   int `mapstructure:"lookback_days"`
	WarnWindowDays int `mapstructure:"warn_window_days"`
}

type ConflictGuardConfig struct {
	LowScore      int `mapstructure:"low_score"`
	MediumScore   int `mapstructure:"medium_score"`
	HighScore     int `mapstructure:"high_score"`
	CriticalScore int `mapstructure:"critical_score"`
}

type RouteRule struct {
	Source string `mapstructure:"source"`
	Action string `mapstructure:"action"`
}

type ApprovalConfig struct {
	RequireApproval bool `mapstructure:"require_approval"`
	MaxAutoPerDay   int  `mapstructure:"max_auto_per_day"`
}

type DispatchConfig struct {
	DryRun           bool          `mapstructure:"dry_run"`
	RequireApproval  bool          `mapstructure:"require_approval"`
	RateLimitMax     int           `mapstructure:"rate_limit_max"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	MinBodyLength    int           `mapstructure:"min_body_length"`
	MinSubjectLength int           `mapstructure:"min_subject_length"`
	Mail             MailConfig    `mapstructure:"mail"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
