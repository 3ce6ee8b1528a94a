package dispatch

import (
	"fmt"
	"regexp"

	"renos/pkg/models"
)

var (
	// Unfilled template slots like [navn] or [adresse].
	placeholderPattern = regexp.MustCompile(`\[[a-zA-ZæøåÆØÅ ]+\]`)

	// Visit proposals outside 08-16 business hours. Catches both
	// "18:30" style times and "kl. 18" phrasing.
	afterHoursClock  = regexp.MustCompile(`\b(1[89]|2[0-3]):[0-5]\d\b`)
	afterHoursPhrase = regexp.MustCompile(`(?i)kl\.?\s*(1[89]|2[0-3])\b`)

	salutationStart = regexp.MustCompile(`(?i)^\s*(hej|kære)`)
)

// QualityIssue is one finding from the pre-send inspection. Errors stop
// the send; warnings are recorded on the result only.
type QualityIssue struct {
	Check   string `json:"check"`
	Fatal   bool   `json:"fatal"`
	Message string `json:"message"`
}

// inspect re-validates a candidate immediately before delivery. Guards
// upstream have already run; this is the last stop for text that was
// edited or composed badly.
func (g *Gateway) inspect(cand *models.CandidateMessage) []QualityIssue {
	var issues []QualityIssue

	if m := placeholderPattern.FindString(cand.Body); m != "" {
		issues = append(issues, QualityIssue{
			Check:   "placeholder",
			Fatal:   true,
			Message: fmt.Sprintf("udfyldt skabelonfelt mangler: %s", m),
		})
	}

	if afterHoursClock.MatchString(cand.Body) || afterHoursPhrase.MatchString(cand.Body) {
		issues = append(issues, QualityIssue{
			Check:   "after_hours",
			Fatal:   true,
			Message: "foreslået tidspunkt ligger uden for arbejdstid",
		})
	}

	minSubject := g.cfg.MinSubjectLength
	if minSubject <= 0 {
		minSubject = 3
	}
	if len([]rune(cand.Subject)) < minSubject {
		issues = append(issues, QualityIssue{
			Check:   "subject",
			Fatal:   true,
			Message: "emnelinje mangler eller er for kort",
		})
	}

	if !salutationStart.MatchString(cand.Body) {
		issues = append(issues, QualityIssue{
			Check:   "salutation",
			Message: "mangler hilsen (Hej/Kære)",
		})
	}

	minBody := g.cfg.MinBodyLength
	if minBody <= 0 {
		minBody = 50
	}
	if len([]rune(cand.Body)) < minBody {
		issues = append(issues, QualityIssue{
			Check:   "body_length",
			Message: "meget kort svartekst",
		})
	}

	return issues
}

func fatalIssues(issues []QualityIssue) []QualityIssue {
	var fatal []QualityIssue
	for _, issue := range issues {
		if issue.Fatal {
			fatal = append(fatal, issue)
		}
	}
	return fatal
}
