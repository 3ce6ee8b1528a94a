package lead

import "time"

// Lead is a normalized request for a cleaning quote, extracted from one
// inbound message regardless of which portal delivered it.
type Lead struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"message_id"`
	ThreadID     string    `json:"thread_id,omitempty"`
	Source       string    `json:"source"`
	ReceivedAt   time.Time `json:"received_at"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	PropertyType string    `json:"property_type,omitempty"`
	SquareMeters int       `json:"square_meters,omitempty"`
	Rooms        int       `json:"rooms,omitempty"`
	TaskType     string    `json:"task_type,omitempty"`
	Comments     string    `json:"comments,omitempty"`
	RawBody      string    `json:"-"`
}

const (
	TaskMoveOut    = "flytterengøring"
	TaskRecurring  = "fast rengøring"
	TaskDeep       = "hovedrengøring"
	TaskCommercial = "erhvervsrengøring"
	TaskGeneral    = "rengøring"
)
