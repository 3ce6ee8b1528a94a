package store

import "time"

// QuoteRecord is a previously sent quote, keyed by recipient email.
type QuoteRecord struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	TaskType  string    `json:"task_type"`
	ThreadRef string    `json:"thread_ref"`
	Total     float64   `json:"total"`
	SentAt    time.Time `json:"sent_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerRecord is a known customer with booking history.
type CustomerRecord struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	BookingCount  int        `json:"booking_count"`
	LastBookingAt *time.Time `json:"last_booking_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LeadRecord mirrors an extracted lead as persisted for auditing and
// duplicate detection.
type LeadRecord struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"message_id"`
	Source       string    `json:"source"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	TaskType     string    `json:"task_type"`
	SquareMeters int       `json:"square_meters"`
	ReceivedAt   time.Time `json:"received_at"`
	CreatedAt    time.Time `json:"created_at"`
}
