package guard

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"renos/internal/lead"
	"renos/pkg/models"
)

var (
	workersPattern    = regexp.MustCompile(`\d+\s*(personer|medarbejdere)`)
	salutationPattern = regexp.MustCompile(`(?i)^\s*(hej|kære)`)
	signaturePattern  = regexp.MustCompile(`(?m)^Mvh,?\s*$`)
)

// disclosure is one statement every quote must contain. The fix line is
// derived from the price estimate and inserted when the generated text
// forgot it.
type disclosure struct {
	name    string
	present func(body string, cand *models.CandidateMessage) bool
	fix     func(est *models.PriceEstimate) string
}

var disclosures = []disclosure{
	{
		name: "arbejdstimer",
		present: func(body string, _ *models.CandidateMessage) bool {
			return strings.Contains(body, "arbejdstimer")
		},
		fix: func(est *models.PriceEstimate) string {
			return fmt.Sprintf("I alt %.0f arbejdstimer (%d personer × %.1f timer på stedet).",
				est.WorkHoursTotal, est.Workers, est.HoursOnSite)
		},
	},
	{
		name: "antal personer",
		present: func(body string, _ *models.CandidateMessage) bool {
			return workersPattern.MatchString(body)
		},
		fix: func(est *models.PriceEstimate) string {
			return fmt.Sprintf("Vi kommer %d personer.", est.Workers)
		},
	},
	{
		name: "timepris",
		present: func(body string, cand *models.CandidateMessage) bool {
			rate := "349"
			if cand.Estimate != nil && cand.Estimate.HourlyRate > 0 {
				rate = fmt.Sprintf("%d", cand.Estimate.HourlyRate)
			}
			return strings.Contains(body, rate)
		},
		fix: func(est *models.PriceEstimate) string {
			return fmt.Sprintf("Timeprisen er %dkr inkl. moms.", est.HourlyRate)
		},
	},
	{
		name: "+1 time forbehold",
		present: func(body string, _ *models.CandidateMessage) bool {
			return strings.Contains(body, "+1 time")
		},
		fix: func(_ *models.PriceEstimate) string {
			return "Tager opgaven længere tid end estimeret, giver vi besked inden vi fortsætter udover +1 time."
		},
	},
	{
		name: "faktisk tidsforbrug",
		present: func(body string, _ *models.CandidateMessage) bool {
			return strings.Contains(body, "faktisk tidsforbrug")
		},
		fix: func(_ *models.PriceEstimate) string {
			return "Du betaler kun for faktisk tidsforbrug."
		},
	},
	{
		name: "kontakt",
		present: func(body string, _ *models.CandidateMessage) bool {
			lowered := strings.ToLower(body)
			return strings.Contains(lowered, "ringer") || strings.Contains(lowered, "kontakter")
		},
		fix: func(_ *models.PriceEstimate) string {
			return "Vi ringer dig op og aftaler nærmere."
		},
	},
}

const minQuoteBodyRunes = 50

// CompletenessGuard verifies a quote states every required disclosure.
// Missing disclosures are repaired once from the price estimate and the
// body is checked again; a quote that cannot be made complete, or that
// has no estimate to repair from, does not go out.
type CompletenessGuard struct{}

func NewCompletenessGuard() *CompletenessGuard {
	return &CompletenessGuard{}
}

func (g *CompletenessGuard) Name() string {
	return "completeness"
}

func (g *CompletenessGuard) Evaluate(_ context.Context, cand *models.CandidateMessage, _ *lead.Lead) models.GuardResult {
	result := models.GuardResult{Guard: g.Name(), Action: models.GuardAllow}

	if cand.ResponseType != "quote" {
		return result
	}

	missing := missingDisclosures(cand)
	if len(missing) > 0 {
		if cand.Estimate == nil {
			result.Action = models.GuardBlock
			result.Reasons = append(result.Reasons, "intet prisoverslag at udfylde manglende oplysninger fra")
			for _, d := range missing {
				result.Reasons = append(result.Reasons, fmt.Sprintf("manglende oplysning: %s", d.name))
			}
			return result
		}

		var fixes []string
		for _, d := range missing {
			fixes = append(fixes, d.fix(cand.Estimate))
			result.Reasons = append(result.Reasons, fmt.Sprintf("manglende oplysning tilføjet: %s", d.name))
		}
		cand.Body = insertBeforeSignature(cand.Body, fixes)
		result.Action = models.GuardWarn

		// One repair pass only. Anything still missing blocks.
		if still := missingDisclosures(cand); len(still) > 0 {
			result.Action = models.GuardBlock
			for _, d := range still {
				result.Reasons = append(result.Reasons, fmt.Sprintf("oplysning mangler fortsat efter udfyldning: %s", d.name))
			}
			return result
		}
	}

	if !salutationPattern.MatchString(cand.Body) {
		g.warn(&result, "mangler hilsen (Hej/Kære)")
	}
	if len([]rune(cand.Body)) < minQuoteBodyRunes {
		g.warn(&result, "meget kort svartekst")
	}

	return result
}

func missingDisclosures(cand *models.CandidateMessage) []disclosure {
	var missing []disclosure
	for _, d := range disclosures {
		if !d.present(cand.Body, cand) {
			missing = append(missing, d)
		}
	}
	return missing
}

// warn records a cosmetic finding without ever weakening a block.
func (g *CompletenessGuard) warn(result *models.GuardResult, reason string) {
	result.Reasons = append(result.Reasons, reason)
	if result.Action == models.GuardAllow {
		result.Action = models.GuardWarn
	}
}

// insertBeforeSignature places the repair lines just above the Mvh
// sign-off, or appends them when no signature is found.
func insertBeforeSignature(body string, lines []string) string {
	block := strings.Join(lines, "\n")

	loc := signaturePattern.FindStringIndex(body)
	if loc == nil {
		return strings.TrimRight(body, "\n") + "\n\n" + block + "\n"
	}
	return body[:loc[0]] + block + "\n\n" + body[loc[0]:]
}
