package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateInboundMessage(msg *InboundMessage) error {
	if msg == nil {
		return &ValidationError{
			Field:   "message",
			Message: "inbound message cannot be nil",
		}
	}

	if msg.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "message ID is required",
		}
	}

	if msg.From == "" {
		return &ValidationError{
			Field:   "from",
			Message: "sender address is required",
		}
	}

	if msg.Body == "" && msg.Subject == "" {
		return &ValidationError{
			Field:   "body",
			Message: "message must have a subject or a body",
		}
	}

	return nil
}
