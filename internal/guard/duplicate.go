package guard

import (
	"context"
	"fmt"
	"time"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/internal/store"
	"renos/pkg/models"
)

// QuoteLookup returns the most recent quote sent to an email address,
// or nil when none exists.
type QuoteLookup interface {
	LastQuote(ctx context.Context, email string) (*store.QuoteRecord, error)
}

// CustomerLookup resolves an email address to a known customer, or nil.
type CustomerLookup interface {
	CustomerByEmail(ctx context.Context, email string) (*store.CustomerRecord, error)
}

// DuplicateGuard blocks repeat quotes to the same address. A quote
// inside the lookback window blocks outright; one inside the warn
// window still goes out but flags the candidate for review.
type DuplicateGuard struct {
	cfg       config.DuplicateGuardConfig
	quotes    QuoteLookup
	customers CustomerLookup
	logger    logger.Logger
	now       func() time.Time
}

func NewDuplicateGuard(cfg config.DuplicateGuardConfig, quotes QuoteLookup, customers CustomerLookup, log logger.Logger) *DuplicateGuard {
	return &DuplicateGuard{
		cfg:       cfg,
		quotes:    quotes,
		customers: customers,
		logger:    log,
		now:       time.Now,
	}
}

func (g *DuplicateGuard) Name() string {
	return "duplicate"
}

func (g *DuplicateGuard) Evaluate(ctx context.Context, cand *models.CandidateMessage, _ *lead.Lead) models.GuardResult {
	result := models.GuardResult{Guard: g.Name(), Action: models.GuardAllow}

	if cand.Recipient == "" {
		return result
	}

	if g.quotes != nil {
		quote, err := g.quotes.LastQuote(ctx, cand.Recipient)
		if err != nil {
			// Lookup failure must not let a duplicate through.
			g.logger.ErrorwCtx(ctx, "Quote lookup failed", "error", err, "recipient", cand.Recipient)
			result.Action = models.GuardBlock
			result.Reasons = append(result.Reasons, "kunne ikke kontrollere tidligere tilbud")
			return result
		}
		if quote != nil {
			g.applyQuoteAge(&result, quote)
		}
	}

	if g.customers != nil && result.Action != models.GuardBlock {
		customer, err := g.customers.CustomerByEmail(ctx, cand.Recipient)
		if err != nil {
			g.logger.WarnwCtx(ctx, "Customer lookup failed", "error", err, "recipient", cand.Recipient)
		} else if customer != nil && customer.BookingCount > 0 {
			g.warn(&result, fmt.Sprintf("eksisterende kunde med %d bookinger", customer.BookingCount))
		}
	}

	return result
}

func (g *DuplicateGuard) applyQuoteAge(result *models.GuardResult, quote *store.QuoteRecord) {
	age := g.now().Sub(quote.SentAt)
	ageDays := int(age.Hours() / 24)

	switch {
	case ageDays < g.cfg.LookbackDays:
		result.Action = models.GuardBlock
		reason := fmt.Sprintf("tilbud allerede sendt for %d dage siden", ageDays)
		if quote.ThreadRef != "" {
			reason += fmt.Sprintf(" (tråd %s)", quote.ThreadRef)
		}
		result.Reasons = append(result.Reasons, reason,
			"svar i den eksisterende tråd eller afvent kundens reaktion")
	case ageDays < g.cfg.WarnWindowDays:
		g.warn(result, fmt.Sprintf("tidligere tilbud sendt for %d dage siden", ageDays))
	}
}

func (g *DuplicateGuard) warn(result *models.GuardResult, reason string) {
	if result.Action == models.GuardAllow {
		result.Action = models.GuardWarn
	}
	result.Reasons = append(result.Reasons, reason)
}
