package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/internal/llm"
	"renos/internal/logger"
	"renos/pkg/errors"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

const (
	TypeQuote        = "quote"
	TypeConfirmation = "confirmation"
	TypeFollowUp     = "follow-up"
	TypeInfo         = "info"
)

// Pricer produces a quote for a lead. Price failures must not abort
// composition; the composer falls back to a quote without numbers.
type Pricer interface {
	Estimate(ld *lead.Lead) (*models.PriceEstimate, error)
}

// SlotFinder proposes bookable visit slots starting from a given time.
type SlotFinder interface {
	FindSlots(ctx context.Context, from time.Time, duration time.Duration, count int) ([]models.BookingSlot, error)
}

type Composer struct {
	cfg    config.ComposerConfig
	llm    llm.Provider
	pricer Pricer
	slots  SlotFinder
	logger logger.Logger
	now    func() time.Time
}

func NewComposer(cfg config.ComposerConfig, provider llm.Provider, pricer Pricer, slots SlotFinder, log logger.Logger) *Composer {
	return &Composer{
		cfg:    cfg,
		llm:    provider,
		pricer: pricer,
		slots:  slots,
		logger: log,
		now:    time.Now,
	}
}

// Compose generates an outbound candidate for a lead. The candidate
// starts out sendable; guards downstream may block it.
func (c *Composer) Compose(ctx context.Context, ld *lead.Lead, responseType string) (*models.CandidateMessage, error) {
	start := time.Now()

	estimate := c.estimate(ctx, ld, responseType)
	slots := c.findSlots(ctx, estimate)

	content, err := c.generate(ctx, ld, responseType, estimate, slots)
	if err != nil {
		metrics.ObserveComposeDuration(time.Since(start), "error")
		return nil, errors.Wrap(err, errors.ErrGenerationFailed)
	}

	subject, body := parseGenerated(content)
	if subject == "" {
		subject = c.fallbackSubject(ld, responseType)
	}
	body = c.ensureSignature(body)

	metrics.ObserveComposeDuration(time.Since(start), "success")

	return &models.CandidateMessage{
		LeadID:       ld.ID,
		Source:       ld.Source,
		ResponseType: responseType,
		Recipient:    ld.Email,
		ThreadRef:    ld.ThreadID,
		Subject:      subject,
		Body:         body,
		Estimate:     estimate,
		Slots:        slots,
		ShouldSend:   true,
	}, nil
}

func (c *Composer) estimate(ctx context.Context, ld *lead.Lead, responseType string) *models.PriceEstimate {
	if responseType != TypeQuote || c.pricer == nil {
		return nil
	}

	est, err := c.pricer.Estimate(ld)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Price estimate unavailable, composing without numbers",
			"lead_id", ld.ID,
			"error", err,
		)
		return nil
	}
	return est
}

func (c *Composer) findSlots(ctx context.Context, estimate *models.PriceEstimate) []models.BookingSlot {
	if c.slots == nil {
		return nil
	}

	duration := time.Duration(c.cfg.SlotDurationHours) * time.Hour
	if estimate != nil && estimate.HoursOnSite > 0 {
		duration = time.Duration(estimate.HoursOnSite * float64(time.Hour))
	}
	if duration <= 0 {
		duration = 3 * time.Hour
	}

	slots, err := c.slots.FindSlots(ctx, c.now(), duration, c.cfg.SlotCount)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Slot lookup failed, composing without booking slots",
			"error", err,
		)
		return nil
	}
	return slots
}

func (c *Composer) generate(ctx context.Context, ld *lead.Lead, responseType string, estimate *models.PriceEstimate, slots []models.BookingSlot) (string, error) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: c.systemPrompt()},
		{Role: llm.RoleUser, Content: c.userPrompt(ld, responseType, estimate, slots)},
	}

	return c.llm.CompleteChat(ctx, msgs, llm.Options{})
}

func (c *Composer) fallbackSubject(ld *lead.Lead, responseType string) string {
	task := ld.TaskType
	if task == "" {
		task = "rengøring"
	}

	switch responseType {
	case TypeQuote:
		return fmt.Sprintf("Tilbud på %s - %s", task, c.cfg.CompanyName)
	case TypeConfirmation:
		return fmt.Sprintf("Bekræftelse på %s - %s", task, c.cfg.CompanyName)
	case TypeFollowUp:
		return fmt.Sprintf("Opfølgning på din forespørgsel - %s", c.cfg.CompanyName)
	case TypeInfo:
		return fmt.Sprintf("Information om %s - %s", task, c.cfg.CompanyName)
	}
	return fmt.Sprintf("Vedr. din henvendelse - %s", c.cfg.CompanyName)
}

// Signature returns the fixed sign-off every outbound mail ends with.
func (c *Composer) Signature() string {
	return fmt.Sprintf("Mvh,\n%s - %s", c.cfg.SignatureName, c.cfg.CompanyName)
}

func (c *Composer) ensureSignature(body string) string {
	if strings.Contains(body, "Mvh") {
		return body
	}
	return strings.TrimRight(body, "\n") + "\n\n" + c.Signature()
}
