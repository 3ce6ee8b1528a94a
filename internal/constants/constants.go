package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultInputTopic = "inbound_messages"
	DefaultAuditTopic = "pipeline_audit"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	CacheKeyPrefixQuote = "quote:"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Danish VAT is baked into customer-facing prices.
const (
	CurrencyDKK = "DKK"
)

const (
	SourceRengoeringNu     = "Rengøring.nu"
	SourceRengoeringAarhus = "Rengøring Aarhus"
	SourceAdHelp           = "AdHelp"
)

const (
	RouteReplyNormally    = "reply-normally"
	RouteReplyWithWarning = "reply-with-warning"
	RouteCreateNewEmail   = "create-new-email"
)
