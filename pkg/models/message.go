package models

// InboundMessage is the wire format consumed from the inbound topic.
// One message corresponds to one email or portal form submission.
type InboundMessage struct {
	ID        string            `json:"id"`
	ThreadID  string            `json:"thread_id,omitempty"`
	From      string            `json:"from"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Timestamp string            `json:"timestamp"`
	Metadata  Metadata          `json:"metadata,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
}
