package approval

import (
	"time"

	"renos/pkg/models"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
)

// terminal statuses end a response's lifecycle; a lead may hold at most
// one non-terminal response at a time.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusSent
}

// PendingResponse is a candidate held for a human decision, or the
// record of an auto-send.
type PendingResponse struct {
	ID         string                   `json:"id"`
	LeadID     string                   `json:"lead_id"`
	Candidate  *models.CandidateMessage `json:"candidate"`
	Status     Status                   `json:"status"`
	Auto       bool                     `json:"auto"`
	Approver   string                   `json:"approver,omitempty"`
	RejectNote string                   `json:"reject_note,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	DecidedAt  *time.Time               `json:"decided_at,omitempty"`
}
