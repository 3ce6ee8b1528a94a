package guard

import (
	"context"
	"fmt"
	"strings"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

const (
	SeverityNone     = "none"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Escalator hands a lead to a human when automation must stop.
type Escalator interface {
	Escalate(ctx context.Context, ld *lead.Lead, severity string, reasons []string) error
}

type conflictTerm struct {
	keyword string
	weight  int
}

// Weighted Danish conflict vocabulary. Legal and authority terms weigh
// most; mild dissatisfaction alone never reaches the medium threshold.
var conflictTerms = []conflictTerm{
	{"advokat", 10},
	{"politi", 10},
	{"anmeldelse", 10},
	{"sagsøge", 10},
	{"retssag", 10},
	{"inkasso", 10},
	{"klage", 7},
	{"erstatning", 7},
	{"utilfreds", 4},
	{"dårlig service", 4},
	{"fejl", 4},
	{"ødelagt", 4},
	{"skade", 4},
	{"skuffet", 2},
	{"forvirret", 2},
	{"problem", 2},
}

// ConflictGuard scores the inbound text for dispute language. Any
// severity above none blocks the reply pending manual approval; high
// and critical additionally escalate to a human.
type ConflictGuard struct {
	cfg       config.ConflictGuardConfig
	escalator Escalator
	logger    logger.Logger
}

func NewConflictGuard(cfg config.ConflictGuardConfig, escalator Escalator, log logger.Logger) *ConflictGuard {
	return &ConflictGuard{cfg: cfg, escalator: escalator, logger: log}
}

func (g *ConflictGuard) Name() string {
	return "conflict"
}

func (g *ConflictGuard) Evaluate(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead) models.GuardResult {
	result := models.GuardResult{Guard: g.Name(), Action: models.GuardAllow}
	if ld == nil {
		return result
	}

	score, matched := scoreConflict(ld.RawBody + " " + ld.Comments)
	severity := g.severity(score)
	if severity == SeverityNone {
		return result
	}

	reason := fmt.Sprintf("konfliktsprog fundet (%s, score %d): %s",
		severity, score, strings.Join(matched, ", "))
	result.Reasons = append(result.Reasons, reason)

	// A conflict lead is never answered automatically, whatever the
	// severity. Only high and critical wake a human immediately.
	result.Action = models.GuardBlock
	if severity == SeverityHigh || severity == SeverityCritical {
		g.escalate(ctx, ld, severity, result.Reasons)
	}

	return result
}

func (g *ConflictGuard) severity(score int) string {
	switch {
	case score >= g.cfg.CriticalScore:
		return SeverityCritical
	case score >= g.cfg.HighScore:
		return SeverityHigh
	case score >= g.cfg.MediumScore:
		return SeverityMedium
	case score >= g.cfg.LowScore:
		return SeverityLow
	}
	return SeverityNone
}

func (g *ConflictGuard) escalate(ctx context.Context, ld *lead.Lead, severity string, reasons []string) {
	metrics.EscalationsTotal.WithLabelValues(severity).Inc()

	if g.escalator == nil {
		return
	}
	if err := g.escalator.Escalate(ctx, ld, severity, reasons); err != nil {
		g.logger.ErrorwCtx(ctx, "Escalation delivery failed",
			"error", err,
			"lead_id", ld.ID,
			"severity", severity,
		)
	}
}

func scoreConflict(text string) (int, []string) {
	lowered := strings.ToLower(text)

	var score int
	var matched []string
	for _, term := range conflictTerms {
		if strings.Contains(lowered, term.keyword) {
			score += term.weight
			matched = append(matched, term.keyword)
		}
	}
	return score, matched
}
