package lead

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"renos/internal/config"
	"renos/internal/logger"
	"renos/pkg/cel"
	"renos/pkg/models"
)

// Field patterns are tried in order; the first match wins. Portal mails
// are semi-structured "Label: value" blocks, so the labelled patterns
// come before the generic fallbacks.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*navn[:\s]+(.+)$`),
		regexp.MustCompile(`(?im)^\s*kontaktperson[:\s]+(.+)$`),
		regexp.MustCompile(`(?im)^\s*kunde[:\s]+(.+)$`),
	}

	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*e-?mail[:\s]+([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`),
		regexp.MustCompile(`([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`),
	}

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*te?le?fon(?:nummer)?[:\s]+((?:\+45[ .]?)?\d{2}[ .]?\d{2}[ .]?\d{2}[ .]?\d{2})`),
		regexp.MustCompile(`(?im)^\s*tlf\.?[:\s]*((?:\+45[ .]?)?\d{2}[ .]?\d{2}[ .]?\d{2}[ .]?\d{2})`),
		regexp.MustCompile(`((?:\+45[ .]?)?\d{2}[ .]?\d{2}[ .]?\d{2}[ .]?\d{2})`),
	}

	// Portal subjects carry the customer name, "Lise Madsen fra
	// Rengøring.nu", possibly behind a Re: prefix.
	subjectNamePattern = regexp.MustCompile(`(?i)^(?:re:\s*)?(.+?)\s+fra\s+rengøring`)

	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*adresse[:\s]+(.+)$`),
		regexp.MustCompile(`(?im)^\s*vejnavn[:\s]+(.+)$`),
	}

	// An address must name a street; a bare digit run is a phone
	// number the labelled pattern picked up by mistake.
	streetKeywordPattern = regexp.MustCompile(`(?i)(vej|gade|stræde|plads|allé|alle|boulevard|torv|park|skov|strand|bakke|vænge)`)
	digitsOnlyPattern    = regexp.MustCompile(`^[\d\s+.\-]+$`)

	propertyTypePattern = regexp.MustCompile(`(?im)^\s*boligtype[:\s]+(.+)$`)

	sqmPattern   = regexp.MustCompile(`(?i)(\d{1,4})\s*(?:m2|m²|kvm|kvadratmeter)`)
	roomsPattern = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:værelser?|rum)\b`)

	commentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)(?:kommentar|besked|bemærkning)[:\s]+(.+?)(?:\n\n|$)`),
	}
)

type taskTypeRule struct {
	keyword string
	task    string
}

// First keyword hit decides the task type, so the more specific
// variants are listed before the generic ones.
var taskTypeRules = []taskTypeRule{
	{"flytterengøring", TaskMoveOut},
	{"flytte rengøring", TaskMoveOut},
	{"fraflytning", TaskMoveOut},
	{"hovedrengøring", TaskDeep},
	{"hoved rengøring", TaskDeep},
	{"fast rengøring", TaskRecurring},
	{"fast hjælp", TaskRecurring},
	{"ugentlig", TaskRecurring},
	{"hver 14", TaskRecurring},
	{"erhvervsrengøring", TaskCommercial},
	{"erhverv", TaskCommercial},
	{"kontor", TaskCommercial},
}

type Extractor struct {
	cfg    config.ExtractorConfig
	custom []compiledSource
	logger logger.Logger
}

func NewExtractor(cfg config.ExtractorConfig, log logger.Logger) (*Extractor, error) {
	eval, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	custom, err := compileSources(eval, cfg.Sources)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:    cfg,
		custom: custom,
		logger: log,
	}, nil
}

// Extract turns an inbound message into a Lead. It returns (nil, nil)
// when the message does not come from a recognized lead source; that is
// a routine outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, msg models.InboundMessage) (*Lead, error) {
	if err := models.ValidateInboundMessage(&msg); err != nil {
		return nil, err
	}

	source := e.recognizeSource(ctx, msg)
	if source == "" {
		return nil, nil
	}

	text := msg.Subject + "\n" + msg.Body

	ld := &Lead{
		// Derived from the message ID so a redelivered message maps to
		// the same lead.
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(msg.ID)).String(),
		MessageID:    msg.ID,
		ThreadID:     msg.ThreadID,
		Source:       source,
		ReceivedAt:   parseTimestamp(msg.Timestamp, time.Now()),
		Name:         extractName(msg.Subject, text),
		Email:        strings.ToLower(firstMatch(emailPatterns, excludeCompany(text, e.cfg.CompanyDomain))),
		Phone:        normalizePhone(firstMatch(phonePatterns, text)),
		Address:      validAddress(firstMatch(addressPatterns, text)),
		PropertyType: classifyProperty(text),
		SquareMeters: firstInt(sqmPattern, text),
		Rooms:        firstInt(roomsPattern, text),
		TaskType:     classifyTask(text),
		Comments:     firstMatch(commentPatterns, msg.Body),
		RawBody:      msg.Body,
	}

	return ld, nil
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func firstInt(p *regexp.Regexp, text string) int {
	m := p.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// extractName prefers the portal subject line; the labelled body
// patterns are the fallback.
func extractName(subject, text string) string {
	if m := subjectNamePattern.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	return firstMatch(namePatterns, text)
}

// validAddress drops labelled values that are not street addresses,
// most commonly a phone number on the wrong line.
func validAddress(raw string) string {
	if raw == "" {
		return ""
	}
	if digitsOnlyPattern.MatchString(raw) {
		return ""
	}
	if !streetKeywordPattern.MatchString(raw) {
		return ""
	}
	return raw
}

// Canonical property types, most specific pattern first so rækkehus
// never classifies as hus. Word boundaries keep "hus" from matching
// inside Aarhus.
var propertyTypeRules = []struct {
	pattern  *regexp.Regexp
	property string
}{
	{regexp.MustCompile(`(?i)\brækkehus\b`), "Rækkehus"},
	{regexp.MustCompile(`(?i)\blejlighed\b`), "Lejlighed"},
	{regexp.MustCompile(`(?i)\bvilla\b`), "Villa"},
	{regexp.MustCompile(`(?i)\bsommerhus\b`), "Sommerhus"},
	{regexp.MustCompile(`(?i)\bhus\b`), "Hus"},
}

func classifyProperty(text string) string {
	if m := propertyTypePattern.FindStringSubmatch(text); m != nil {
		labelled := strings.TrimSpace(m[1])
		for _, rule := range propertyTypeRules {
			if rule.pattern.MatchString(labelled) {
				return rule.property
			}
		}
		return labelled
	}

	for _, rule := range propertyTypeRules {
		if rule.pattern.MatchString(text) {
			return rule.property
		}
	}
	return ""
}

func classifyTask(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range taskTypeRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.task
		}
	}
	return TaskGeneral
}

func normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strings.NewReplacer(" ", "", ".", "").Replace(raw)
	return cleaned
}

// excludeCompany blanks out the company's own addresses so the generic
// email fallback never picks up a portal or internal sender.
func excludeCompany(text, companyDomain string) string {
	if companyDomain == "" {
		return text
	}
	pattern := regexp.MustCompile(`(?i)[A-Za-z0-9._%+\-]+@` + regexp.QuoteMeta(companyDomain))
	return pattern.ReplaceAllString(text, "")
}

// parseTimestamp accepts RFC3339 and unix epoch (seconds or millis).
// Values outside the plausible year range fall back to now, so a
// malformed portal timestamp never produces a lead dated 1970.
func parseTimestamp(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return clampYear(ts, now)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		var ts time.Time
		if n > 1e12 {
			ts = time.UnixMilli(n)
		} else {
			ts = time.Unix(n, 0)
		}
		return clampYear(ts, now)
	}

	return now
}

func clampYear(ts, now time.Time) time.Time {
	year := ts.Year()
	if year < 2000 || year > 2100 {
		return now
	}
	return ts
}
