package dispatch

import (
	"context"
	"sync"
	"time"

	"renos/internal/config"
	"renos/internal/logger"
	"renos/pkg/errors"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

// Mailer delivers the actual email. Implementations wrap the mail
// provider's API.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body, threadRef string) error
}

// Labeler tags the sent conversation in the mailbox so a human can find
// pipeline output later. Labeling failures never fail the send.
type Labeler interface {
	Label(ctx context.Context, threadRef, label string) error
}

// Result describes the outcome of one dispatch attempt.
type Result struct {
	Sent    bool           `json:"sent"`
	DryRun  bool           `json:"dry_run"`
	Issues  []QualityIssue `json:"issues,omitempty"`
	Preview string         `json:"preview,omitempty"`
	SentAt  time.Time      `json:"sent_at,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

type sendWindow struct {
	count       int
	windowStart time.Time
}

// Gateway is the single exit point for outbound mail. It re-validates
// quality, enforces a fixed per-source send window and delivers exactly
// once per call; retries are the caller's decision.
type Gateway struct {
	cfg    config.DispatchConfig
	mailer Mailer
	labels Labeler
	logger logger.Logger

	mu      sync.Mutex
	windows map[string]*sendWindow
	now     func() time.Time
}

func NewGateway(cfg config.DispatchConfig, mailer Mailer, labels Labeler, log logger.Logger) *Gateway {
	return &Gateway{
		cfg:     cfg,
		mailer:  mailer,
		labels:  labels,
		logger:  log,
		windows: make(map[string]*sendWindow),
		now:     time.Now,
	}
}

// Send implements approval.Sender. The approver is empty on the
// auto-send path.
func (g *Gateway) Send(ctx context.Context, cand *models.CandidateMessage, approver string) error {
	_, err := g.Dispatch(ctx, cand, approver)
	return err
}

// Dispatch is the only exit to the transport, in fixed order: dry-run,
// approval, quality, rate window, send. Every outcome carries whatever
// quality detail was produced.
func (g *Gateway) Dispatch(ctx context.Context, cand *models.CandidateMessage, approver string) (*Result, error) {
	if g.cfg.DryRun {
		issues := g.inspect(cand)
		metrics.IncDispatch(cand.Source, "dry_run")
		g.logger.InfowCtx(ctx, "Dry run, mail not delivered",
			"lead_id", cand.LeadID,
			"recipient", cand.Recipient,
			"subject", cand.Subject,
		)
		return &Result{DryRun: true, Issues: issues, Preview: cand.Body}, nil
	}

	if !cand.ShouldSend {
		metrics.IncDispatch(cand.Source, "blocked")
		return nil, errors.ErrApprovalRequired.WithDetail("blocked_by", cand.BlockedBy())
	}

	// The gateway is the choke point; a candidate may reach it outside
	// the approval workflow, so the approver identity is checked here
	// again.
	if g.cfg.RequireApproval && approver == "" {
		metrics.IncDispatch(cand.Source, "approval_required")
		return nil, errors.ErrApprovalRequired.WithDetail("lead_id", cand.LeadID)
	}

	issues := g.inspect(cand)

	if fatal := fatalIssues(issues); len(fatal) > 0 {
		metrics.IncDispatch(cand.Source, "quality_rejected")
		g.logger.WarnwCtx(ctx, "Dispatch refused on quality checks",
			"lead_id", cand.LeadID,
			"issues", fatal,
		)
		return &Result{Issues: issues, Reason: fatal[0].Message},
			errors.ErrValidation.WithDetail("issues", fatal)
	}

	if !g.allowSend(cand.Source) {
		metrics.SendRateLimitedTotal.WithLabelValues(cand.Source).Inc()
		metrics.IncDispatch(cand.Source, "rate_limited")
		return &Result{Issues: issues, Reason: "sendevindue opbrugt"},
			errors.ErrRateLimited.WithDetail("source", cand.Source)
	}

	if err := g.mailer.SendMail(ctx, cand.Recipient, cand.Subject, cand.Body, cand.ThreadRef); err != nil {
		metrics.IncDispatch(cand.Source, "error")
		return &Result{Issues: issues, Reason: err.Error()},
			errors.Wrap(err, errors.ErrDispatchFailed)
	}

	g.label(ctx, cand)

	metrics.IncDispatch(cand.Source, "sent")
	g.logger.InfowCtx(ctx, "Mail dispatched",
		"lead_id", cand.LeadID,
		"recipient", cand.Recipient,
		"source", cand.Source,
	)
	return &Result{Sent: true, Issues: issues, SentAt: g.now()}, nil
}

// allowSend checks the fixed send window for a source. The window
// restarts when its duration has fully elapsed.
func (g *Gateway) allowSend(source string) bool {
	max := g.cfg.RateLimitMax
	if max <= 0 {
		return true
	}
	window := g.cfg.RateLimitWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w, ok := g.windows[source]
	if !ok || now.Sub(w.windowStart) >= window {
		g.windows[source] = &sendWindow{count: 1, windowStart: now}
		return true
	}

	if w.count >= max {
		return false
	}
	w.count++
	return true
}

func (g *Gateway) label(ctx context.Context, cand *models.CandidateMessage) {
	if g.labels == nil || cand.ThreadRef == "" {
		return
	}
	if err := g.labels.Label(ctx, cand.ThreadRef, "renos/sent"); err != nil {
		g.logger.WarnwCtx(ctx, "Mailbox labeling failed",
			"thread_ref", cand.ThreadRef,
			"error", err,
		)
	}
}
