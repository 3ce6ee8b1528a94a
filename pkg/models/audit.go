package models

import "time"

// AuditEvent records a pipeline decision on the audit topic.
type AuditEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	LeadID    string                 `json:"lead_id,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

const (
	AuditLeadExtracted     = "lead_extracted"
	AuditExtractionFailed  = "extraction_failed"
	AuditResponseComposed  = "response_composed"
	AuditResponseBlocked   = "response_blocked"
	AuditResponsePending   = "response_pending"
	AuditResponseSent      = "response_sent"
	AuditResponseRejected  = "response_rejected"
	AuditEscalated         = "escalated"
	AuditDispatchFailed    = "dispatch_failed"
	AuditDispatchRateLimit = "dispatch_rate_limited"
)
