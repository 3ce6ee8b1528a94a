package models

import "time"

type GuardAction string

const (
	GuardAllow GuardAction = "ALLOW"
	GuardWarn  GuardAction = "WARN"
	GuardBlock GuardAction = "BLOCK"
)

// GuardResult is one guard's verdict on a candidate message.
type GuardResult struct {
	Guard   string      `json:"guard"`
	Action  GuardAction `json:"action"`
	Reasons []string    `json:"reasons,omitempty"`
}

// PriceEstimate is a customer-facing quote. Amounts are in DKK and
// include VAT. HoursOnSite is the visit duration; WorkHoursTotal is
// what the customer pays for, workers times hours on site.
type PriceEstimate struct {
	TaskType       string   `json:"task_type"`
	HoursOnSite    float64  `json:"hours_on_site"`
	WorkHoursTotal float64  `json:"work_hours_total"`
	Workers        int      `json:"workers"`
	HourlyRate     int      `json:"hourly_rate"`
	Total          float64  `json:"total"`
	TotalLow       float64  `json:"total_low"`
	TotalHigh      float64  `json:"total_high"`
	Warnings       []string `json:"warnings,omitempty"`
}

type BookingSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CandidateMessage is an outbound response as it moves through guards,
// routing and dispatch. ShouldSend only ever moves from true to false.
type CandidateMessage struct {
	LeadID       string         `json:"lead_id"`
	Source       string         `json:"source"`
	ResponseType string         `json:"response_type"`
	Recipient    string         `json:"recipient"`
	ThreadRef    string         `json:"thread_ref,omitempty"`
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	Estimate     *PriceEstimate `json:"estimate,omitempty"`
	Slots        []BookingSlot  `json:"slots,omitempty"`
	GuardResults []GuardResult  `json:"guard_results,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	ShouldSend   bool           `json:"should_send"`
}

// Block marks the candidate undeliverable. There is no inverse.
func (c *CandidateMessage) Block() {
	c.ShouldSend = false
}

func (c *CandidateMessage) AddGuardResult(r GuardResult) {
	c.GuardResults = append(c.GuardResults, r)
	c.Warnings = append(c.Warnings, r.Reasons...)
	if r.Action == GuardBlock {
		c.Block()
	}
}

func (c *CandidateMessage) BlockedBy() []string {
	var names []string
	for _, r := range c.GuardResults {
		if r.Action == GuardBlock {
			names = append(names, r.Guard)
		}
	}
	return names
}
