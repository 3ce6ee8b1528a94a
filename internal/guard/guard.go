package guard

import (
	"context"

	"renos/internal/lead"
	"renos/internal/logger"
	"renos/pkg/metrics"
	"renos/pkg/models"
)

// Guard inspects a candidate before it may leave the pipeline. A guard
// may amend the candidate body but never overrides another guard's
// verdict.
type Guard interface {
	Name() string
	Evaluate(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead) models.GuardResult
}

// Chain runs every guard in order. All guards run even after a block,
// so the audit trail records every finding from a single pass.
type Chain struct {
	guards []Guard
	logger logger.Logger
}

func NewChain(log logger.Logger, guards ...Guard) *Chain {
	return &Chain{guards: guards, logger: log}
}

func (c *Chain) Evaluate(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead) {
	for _, g := range c.guards {
		result := g.Evaluate(ctx, cand, ld)
		cand.AddGuardResult(result)
		metrics.IncGuardEvaluation(g.Name(), string(result.Action))

		if result.Action != models.GuardAllow {
			c.logger.InfowCtx(ctx, "Guard flagged candidate",
				"guard", g.Name(),
				"action", result.Action,
				"reasons", result.Reasons,
				"lead_id", cand.LeadID,
			)
		}
	}
}
