package route

import (
	"context"
	"regexp"
	"strings"

	"renos/internal/config"
	"renos/internal/constants"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/pkg/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// defaultActions covers the built-in portals. Portals that relay via a
// noreply address need a fresh mail to the customer's own address;
// Rengøring Aarhus accepts direct replies on the thread.
var defaultActions = map[string]string{
	constants.SourceRengoeringNu:     constants.RouteCreateNewEmail,
	constants.SourceRengoeringAarhus: constants.RouteReplyNormally,
	constants.SourceAdHelp:           constants.RouteCreateNewEmail,
}

// Router decides how a candidate reaches the customer based on which
// portal the lead came from.
type Router struct {
	actions map[string]string
	logger  logger.Logger
}

func NewRouter(rules []config.RouteRule, log logger.Logger) *Router {
	actions := make(map[string]string, len(defaultActions)+len(rules))
	for source, action := range defaultActions {
		actions[source] = action
	}
	for _, rule := range rules {
		actions[rule.Source] = rule.Action
	}
	return &Router{actions: actions, logger: log}
}

// Route applies the source's delivery action to the candidate. An
// unknown source still gets a reply, flagged for manual review.
func (r *Router) Route(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead) {
	action, known := r.actions[cand.Source]
	if !known {
		action = constants.RouteReplyWithWarning
	}

	switch action {
	case constants.RouteReplyNormally:

	case constants.RouteReplyWithWarning:
		cand.AddGuardResult(models.GuardResult{
			Guard:   "route",
			Action:  models.GuardWarn,
			Reasons: []string{"ukendt afsenderkilde, svar kontrolleres manuelt"},
		})

	case constants.RouteCreateNewEmail:
		r.toNewEmail(ctx, cand, ld)
	}
}

// toNewEmail redirects the candidate from the portal thread to the
// customer's own address. Without a valid address there is nowhere to
// send, so the candidate is blocked.
func (r *Router) toNewEmail(ctx context.Context, cand *models.CandidateMessage, ld *lead.Lead) {
	email := cand.Recipient
	if ld != nil && ld.Email != "" {
		email = ld.Email
	}
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailPattern.MatchString(email) {
		r.logger.WarnwCtx(ctx, "No valid customer address for new-email route",
			"lead_id", cand.LeadID,
			"source", cand.Source,
		)
		cand.AddGuardResult(models.GuardResult{
			Guard:   "route",
			Action:  models.GuardBlock,
			Reasons: []string{"ingen gyldig kundemail til ny-mail levering"},
		})
		return
	}

	cand.Recipient = email
	cand.ThreadRef = ""
}
