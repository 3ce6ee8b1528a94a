package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"renos/internal/config"
	"renos/internal/logger"
	"renos/pkg/errors"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

// Sender delivers an approved candidate. Implemented by the dispatch
// gateway. The approver is empty for auto-sends.
type Sender interface {
	Send(ctx context.Context, cand *models.CandidateMessage, approver string) error
}

// Workflow holds candidates for human review and releases approved ones
// for delivery. Auto-send is capped per calendar day.
type Workflow struct {
	cfg    config.ApprovalConfig
	store  Store
	sender Sender
	logger logger.Logger

	mu        sync.Mutex
	autoCount int
	autoDay   time.Time
	now       func() time.Time
}

func NewWorkflow(cfg config.ApprovalConfig, store Store, sender Sender, log logger.Logger) *Workflow {
	return &Workflow{
		cfg:    cfg,
		store:  store,
		sender: sender,
		logger: log,
		now:    time.Now,
	}
}

// Submit registers a candidate. It auto-sends only when approval is
// disabled, no guard held the candidate back, and the daily cap has
// room. Everything else waits for a human.
func (w *Workflow) Submit(ctx context.Context, cand *models.CandidateMessage) (*PendingResponse, error) {
	open, err := w.store.OpenForLead(ctx, cand.LeadID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errors.ErrConflict.WithDetail("lead_id", cand.LeadID).WithDetail("response_id", open.ID)
	}

	resp := &PendingResponse{
		ID:        uuid.New().String(),
		LeadID:    cand.LeadID,
		Candidate: cand,
		Status:    StatusPending,
		CreatedAt: w.now(),
	}

	auto, holdReason := w.canAutoSend(cand)
	if auto {
		resp.Auto = true
		if err := w.store.Save(ctx, resp); err != nil {
			return nil, err
		}
		return resp, w.deliver(ctx, resp)
	}

	// An auto-eligible candidate over the daily cap is rejected with
	// an explicit reason, not queued to drain tomorrow.
	if holdReason == errors.ErrDailyLimit.Code {
		resp.Status = StatusRejected
		resp.RejectNote = "dagligt auto-svar limit nået"
		now := w.now()
		resp.DecidedAt = &now
		if err := w.store.Save(ctx, resp); err != nil {
			return nil, err
		}
		w.logger.WarnwCtx(ctx, "Response rejected, daily auto-send limit reached",
			"response_id", resp.ID,
			"lead_id", resp.LeadID,
		)
		return resp, nil
	}

	if err := w.store.Save(ctx, resp); err != nil {
		return nil, err
	}

	metrics.PendingResponses.Inc()
	w.logger.InfowCtx(ctx, "Response held for approval",
		"response_id", resp.ID,
		"lead_id", resp.LeadID,
		"should_send", cand.ShouldSend,
		"blocked_by", cand.BlockedBy(),
		"reason", holdReason,
	)
	return resp, nil
}

// Approve releases a held response for delivery. A failed response may
// be approved again to retry the send.
func (w *Workflow) Approve(ctx context.Context, id, approver string) (*PendingResponse, error) {
	resp, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusPending && resp.Status != StatusFailed {
		return nil, errors.ErrConflict.WithDetail("status", string(resp.Status))
	}
	if !resp.Candidate.ShouldSend {
		// A guard-blocked candidate is handled manually outside the
		// pipeline; it can only be rejected here.
		return nil, errors.ErrForbidden.WithDetail("blocked_by", resp.Candidate.BlockedBy())
	}

	wasPending := resp.Status == StatusPending
	resp.Status = StatusApproved
	resp.Approver = approver
	now := w.now()
	resp.DecidedAt = &now
	if err := w.store.Update(ctx, resp); err != nil {
		return nil, err
	}

	if wasPending {
		metrics.PendingResponses.Dec()
	}
	return resp, w.deliver(ctx, resp)
}

// Reject closes a held response without sending.
func (w *Workflow) Reject(ctx context.Context, id, note string) (*PendingResponse, error) {
	resp, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusPending && resp.Status != StatusFailed {
		return nil, errors.ErrConflict.WithDetail("status", string(resp.Status))
	}

	wasPending := resp.Status == StatusPending
	resp.Status = StatusRejected
	resp.RejectNote = note
	now := w.now()
	resp.DecidedAt = &now
	if err := w.store.Update(ctx, resp); err != nil {
		return nil, err
	}

	if wasPending {
		metrics.PendingResponses.Dec()
	}
	w.logger.InfowCtx(ctx, "Response rejected",
		"response_id", resp.ID,
		"lead_id", resp.LeadID,
		"note", note,
	)
	return resp, nil
}

func (w *Workflow) ListPending(ctx context.Context) ([]*PendingResponse, error) {
	return w.store.ListPending(ctx)
}

// AutoSentToday reports how much of the daily cap is used.
func (w *Workflow) AutoSentToday() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !sameDay(w.autoDay, w.now()) {
		return 0
	}
	return w.autoCount
}

// canAutoSend claims a slot under the daily cap. The second return value
// names why the candidate must wait when it cannot go out automatically.
func (w *Workflow) canAutoSend(cand *models.CandidateMessage) (bool, string) {
	if w.cfg.RequireApproval {
		return false, errors.ErrApprovalRequired.Code
	}
	if !cand.ShouldSend {
		return false, "guard_blocked"
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !sameDay(w.autoDay, now) {
		w.autoCount = 0
		w.autoDay = now
		metrics.AutoSendsToday.Set(0)
	}
	if w.autoCount >= w.cfg.MaxAutoPerDay {
		return false, errors.ErrDailyLimit.Code
	}

	w.autoCount++
	metrics.AutoSendsToday.Set(float64(w.autoCount))
	return true, ""
}

func (w *Workflow) deliver(ctx context.Context, resp *PendingResponse) error {
	if err := w.sender.Send(ctx, resp.Candidate, resp.Approver); err != nil {
		resp.Status = StatusFailed
		if updateErr := w.store.Update(ctx, resp); updateErr != nil {
			w.logger.ErrorwCtx(ctx, "Failed to record delivery failure", "error", updateErr)
		}
		return errors.Wrap(err, errors.ErrDispatchFailed)
	}

	resp.Status = StatusSent
	return w.store.Update(ctx, resp)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
