package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"renos/internal/broker"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/pkg/models"
)

// Auditor writes pipeline decisions to the audit topic. Audit delivery
// never fails the pipeline; a lost event is logged and dropped.
type Auditor struct {
	producer broker.Producer
	topic    string
	logger   logger.Logger
}

func NewAuditor(producer broker.Producer, topic string, log logger.Logger) *Auditor {
	return &Auditor{producer: producer, topic: topic, logger: log}
}

func (a *Auditor) Emit(ctx context.Context, eventType, leadID, source string, details map[string]interface{}) {
	if a.producer == nil {
		return
	}

	event := models.AuditEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		LeadID:    leadID,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}

	if err := a.producer.Publish(ctx, a.topic, leadID, event); err != nil {
		a.logger.ErrorwCtx(ctx, "Audit event delivery failed",
			"event_type", eventType,
			"lead_id", leadID,
			"error", err,
		)
	}
}

// Escalate implements guard.Escalator by recording the hand-off on the
// audit topic, where the operations inbox picks it up.
func (a *Auditor) Escalate(ctx context.Context, ld *lead.Lead, severity string, reasons []string) error {
	a.Emit(ctx, models.AuditEscalated, ld.ID, ld.Source, map[string]interface{}{
		"severity": severity,
		"reasons":  reasons,
		"email":    ld.Email,
		"name":     ld.Name,
	})
	return nil
}
