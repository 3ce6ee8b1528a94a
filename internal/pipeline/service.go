package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"renos/internal/approval"
	"renos/internal/compose"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/internal/store"
	"renos/pkg/errors"
	"renos/pkg/logging"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

type Extractor interface {
	Extract(ctx context.Context, msg models.InboundMessage) (*lead.Lead, error)
}

type Composer interface {
	Compose(ctx context.Context, ld *lead.Lead, responseType string) (*models.CandidateMessage, error)
}

type GuardChain interface {
	Evaluate(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead)
}

type Router interface {
	Route(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead)
}

type Approvals interface {
	Submit(ctx context.Context, cand *models.CandidateMessage) (*approval.PendingResponse, error)
}

type Recorder interface {
	RecordLead(ctx context.Context, rec *store.LeadRecord) error
	RecordQuoteSent(ctx context.Context, rec *store.QuoteRecord) error
}

// Service drives one inbound message through the whole pipeline:
// extract, compose, guard, route and hand over for approval or send.
type Service struct {
	extractor Extractor
	composer  Composer
	guards    GuardChain
	router    Router
	approvals Approvals
	recorder  Recorder
	audit     *Auditor
	logger    logger.Logger
}

func NewService(extractor Extractor, composer Composer, guards GuardChain, router Router, approvals Approvals, recorder Recorder, audit *Auditor, log logger.Logger) *Service {
	return &Service{
		extractor: extractor,
		composer:  composer,
		guards:    guards,
		router:    router,
		approvals: approvals,
		recorder:  recorder,
		audit:     audit,
		logger:    log,
	}
}

// Process implements broker.HandlerFunc. A returned error sends the
// message down the retry and DLQ path; messages that are simply not
// leads are acknowledged without one.
func (s *Service) Process(ctx context.Context, msg models.InboundMessage) error {
	ld, err := s.extractor.Extract(ctx, msg)
	if err != nil {
		metrics.LeadsExtractedTotal.WithLabelValues("unknown", "error").Inc()
		s.audit.Emit(ctx, models.AuditExtractionFailed, "", "", map[string]interface{}{
			"message_id": msg.ID,
			"error":      err.Error(),
		})
		return err
	}
	if ld == nil {
		s.logger.DebugwCtx(ctx, "Message is not a lead, skipping", "message_id", msg.ID)
		return nil
	}

	ctx = logging.WithLeadID(ctx, ld.ID)
	metrics.LeadsExtractedTotal.WithLabelValues(ld.Source, "success").Inc()
	s.audit.Emit(ctx, models.AuditLeadExtracted, ld.ID, ld.Source, map[string]interface{}{
		"email":     ld.Email,
		"task_type": ld.TaskType,
	})

	s.recordLead(ctx, ld)

	cand, err := s.composer.Compose(ctx, ld, compose.TypeQuote)
	if err != nil {
		s.audit.Emit(ctx, models.AuditResponseBlocked, ld.ID, ld.Source, map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	s.guards.Evaluate(ctx, cand, ld)
	s.router.Route(ctx, cand, ld)

	s.audit.Emit(ctx, models.AuditResponseComposed, ld.ID, ld.Source, map[string]interface{}{
		"should_send": cand.ShouldSend,
		"blocked_by":  cand.BlockedBy(),
		"warnings":    cand.Warnings,
	})

	return s.submit(ctx, ld, cand)
}

func (s *Service) recordLead(ctx context.Context, ld *lead.Lead) {
	if s.recorder == nil {
		return
	}

	err := s.recorder.RecordLead(ctx, &store.LeadRecord{
		ID:           ld.ID,
		MessageID:    ld.MessageID,
		Source:       ld.Source,
		Email:        ld.Email,
		Name:         ld.Name,
		TaskType:     ld.TaskType,
		SquareMeters: ld.SquareMeters,
		ReceivedAt:   ld.ReceivedAt,
	})
	if err != nil {
		// Persistence feeds reporting; the pipeline keeps going.
		s.logger.WarnwCtx(ctx, "Failed to persist lead", "error", err)
	}
}

func (s *Service) submit(ctx context.Context, ld *lead.Lead, cand *models.CandidateMessage) error {
	resp, err := s.approvals.Submit(ctx, cand)
	if err != nil {
		if errors.IsConflict(err) {
			// A response for this lead is already in flight, most
			// likely a redelivered message.
			s.logger.InfowCtx(ctx, "Lead already has an open response", "lead_id", ld.ID)
			return nil
		}
		s.audit.Emit(ctx, models.AuditDispatchFailed, ld.ID, ld.Source, map[string]interface{}{
			"error": err.Error(),
		})
		if errors.IsRateLimited(err) {
			s.audit.Emit(ctx, models.AuditDispatchRateLimit, ld.ID, ld.Source, nil)
		}
		// The response is parked as failed; a human retries it from
		// the approval queue instead of reprocessing the message.
		return nil
	}

	switch resp.Status {
	case approval.StatusSent:
		s.audit.Emit(ctx, models.AuditResponseSent, ld.ID, ld.Source, map[string]interface{}{
			"response_id": resp.ID,
			"auto":        resp.Auto,
		})
		s.recordQuote(ctx, ld, cand)
	case approval.StatusPending:
		s.audit.Emit(ctx, models.AuditResponsePending, ld.ID, ld.Source, map[string]interface{}{
			"response_id": resp.ID,
			"should_send": cand.ShouldSend,
		})
	case approval.StatusRejected:
		s.audit.Emit(ctx, models.AuditResponseRejected, ld.ID, ld.Source, map[string]interface{}{
			"response_id": resp.ID,
			"reason":      resp.RejectNote,
		})
	}
	return nil
}

func (s *Service) recordQuote(ctx context.Context, ld *lead.Lead, cand *models.CandidateMessage) {
	if s.recorder == nil || cand.ResponseType != compose.TypeQuote {
		return
	}

	var total float64
	if cand.Estimate != nil {
		total = cand.Estimate.Total
	}
	err := s.recorder.RecordQuoteSent(ctx, &store.QuoteRecord{
		ID:        uuid.New().String(),
		LeadID:    ld.ID,
		Email:     cand.Recipient,
		Source:    ld.Source,
		TaskType:  ld.TaskType,
		ThreadRef: cand.ThreadRef,
		Total:     total,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to persist sent quote", "error", err)
	}
}
