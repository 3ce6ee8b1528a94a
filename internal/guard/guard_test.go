package guard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/internal/store"
	"renos/pkg/models"
)

type fakeQuotes struct {
	quote *store.QuoteRecord
	err   error
}

func (f *fakeQuotes) LastQuote(_ context.Context, _ string) (*store.QuoteRecord, error) {
	return f.quote, f.err
}

type fakeCustomers struct {
	customer *store.CustomerRecord
	err      error
}

func (f *fakeCustomers) CustomerByEmail(_ context.Context, _ string) (*store.CustomerRecord, error) {
	return f.customer, f.err
}

type fakeEscalator struct {
	calls    int
	severity string
	reasons  []string
}

func (f *fakeEscalator) Escalate(_ context.Context, _ *lead.Lead, severity string, reasons []string) error {
	f.calls++
	f.severity = severity
	f.reasons = reasons
	return nil
}

type stubGuard struct {
	name   string
	action models.GuardAction
	reason string
}

func (s *stubGuard) Name() string { return s.name }

func (s *stubGuard) Evaluate(_ context.Context, _ *models.CandidateMessage, _ *lead.Lead) models.GuardResult {
	result := models.GuardResult{Guard: s.name, Action: s.action}
	if s.reason != "" {
		result.Reasons = []string{s.reason}
	}
	return result
}

func duplicateConfig() config.DuplicateGuardConfig {
	return config.DuplicateGuardConfig{LookbackDays: 7, WarnWindowDays: 30}
}

func conflictConfig() config.ConflictGuardConfig {
	return config.ConflictGuardConfig{LowScore: 3, MediumScore: 6, HighScore: 9, CriticalScore: 12}
}

func quoteEstimate() *models.PriceEstimate {
	return &models.PriceEstimate{HoursOnSite: 2.0, WorkHoursTotal: 4.0, Workers: 2, HourlyRate: 349}
}

func quoteCandidate() *models.CandidateMessage {
	return &models.CandidateMessage{
		LeadID:       "lead-1",
		Source:       "Rengøring.nu",
		ResponseType: "quote",
		Recipient:    "kunde@example.com",
		Subject:      "Tilbud",
		Body:         "Hej Lise\n\nTak for din henvendelse.\n\nMvh,\nJonas - Rendetalje.dk",
		ShouldSend:   true,
	}
}

func TestChainRunsEveryGuardAfterBlock(t *testing.T) {
	chain := NewChain(logger.NopLogger(),
		&stubGuard{name: "first", action: models.GuardBlock, reason: "stop"},
		&stubGuard{name: "second", action: models.GuardWarn, reason: "note"},
		&stubGuard{name: "third", action: models.GuardAllow},
	)

	cand := quoteCandidate()
	chain.Evaluate(context.Background(), cand, nil)

	require.Len(t, cand.GuardResults, 3)
	assert.False(t, cand.ShouldSend)
	assert.Equal(t, []string{"first"}, cand.BlockedBy())
	assert.Equal(t, []string{"stop", "note"}, cand.Warnings)
}

func TestDuplicateGuardWindows(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ageDays  int
		expected models.GuardAction
	}{
		{"recent quote blocks", 3, models.GuardBlock},
		{"warn window warns", 14, models.GuardWarn},
		{"old quote allows", 45, models.GuardAllow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sentAt := now.AddDate(0, 0, -tc.ageDays)
			g := NewDuplicateGuard(duplicateConfig(),
				&fakeQuotes{quote: &store.QuoteRecord{Email: "kunde@example.com", SentAt: sentAt}},
				nil, logger.NopLogger())
			g.now = func() time.Time { return now }

			result := g.Evaluate(context.Background(), quoteCandidate(), nil)
			assert.Equal(t, tc.expected, result.Action)
		})
	}
}

func TestDuplicateGuardBlockNamesThreadAndNextStep(t *testing.T) {
	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	g := NewDuplicateGuard(duplicateConfig(),
		&fakeQuotes{quote: &store.QuoteRecord{
			Email:     "kunde@example.com",
			ThreadRef: "thread-9",
			SentAt:    now.AddDate(0, 0, -3),
		}},
		nil, logger.NopLogger())
	g.now = func() time.Time { return now }

	result := g.Evaluate(context.Background(), quoteCandidate(), nil)
	require.Equal(t, models.GuardBlock, result.Action)
	require.Len(t, result.Reasons, 2)
	assert.Contains(t, result.Reasons[0], "3 dage siden")
	assert.Contains(t, result.Reasons[0], "tråd thread-9")
	assert.Contains(t, result.Reasons[1], "svar i den eksisterende tråd")
}

func TestDuplicateGuardNoHistoryAllows(t *testing.T) {
	g := NewDuplicateGuard(duplicateConfig(), &fakeQuotes{}, &fakeCustomers{}, logger.NopLogger())

	result := g.Evaluate(context.Background(), quoteCandidate(), nil)
	assert.Equal(t, models.GuardAllow, result.Action)
	assert.Empty(t, result.Reasons)
}

func TestDuplicateGuardLookupFailureBlocks(t *testing.T) {
	g := NewDuplicateGuard(duplicateConfig(),
		&fakeQuotes{err: fmt.Errorf("connection refused")}, nil, logger.NopLogger())

	result := g.Evaluate(context.Background(), quoteCandidate(), nil)
	assert.Equal(t, models.GuardBlock, result.Action)
}

func TestDuplicateGuardExistingCustomerWarns(t *testing.T) {
	g := NewDuplicateGuard(duplicateConfig(),
		&fakeQuotes{},
		&fakeCustomers{customer: &store.CustomerRecord{Email: "kunde@example.com", BookingCount: 4}},
		logger.NopLogger())

	result := g.Evaluate(context.Background(), quoteCandidate(), nil)
	assert.Equal(t, models.GuardWarn, result.Action)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "4 bookinger")
}

func TestConflictGuardSeverities(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected models.GuardAction
		escalate bool
	}{
		{"clean text", "Hej, jeg vil gerne have et tilbud på rengøring.", models.GuardAllow, false},
		{"below low threshold stays clean", "Jeg er lidt forvirret over priserne.", models.GuardAllow, false},
		{"low blocks without escalation", "Jeg var utilfreds med sidste besøg.", models.GuardBlock, false},
		{"medium blocks without escalation", "Jeg er utilfreds, der var en fejl sidst.", models.GuardBlock, false},
		{"high blocks and escalates", "Jeg kræver erstatning for skaden.", models.GuardBlock, true},
		{"critical blocks and escalates", "Min advokat overvejer en retssag om erstatning.", models.GuardBlock, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			esc := &fakeEscalator{}
			g := NewConflictGuard(conflictConfig(), esc, logger.NopLogger())

			ld := &lead.Lead{ID: "lead-1", RawBody: tc.body}
			result := g.Evaluate(context.Background(), quoteCandidate(), ld)

			assert.Equal(t, tc.expected, result.Action)
			if tc.escalate {
				assert.Equal(t, 1, esc.calls)
			} else {
				assert.Zero(t, esc.calls)
			}
		})
	}
}

func TestConflictGuardComplaintHoldsTheReply(t *testing.T) {
	esc := &fakeEscalator{}
	chain := NewChain(logger.NopLogger(), NewConflictGuard(conflictConfig(), esc, logger.NopLogger()))

	cand := quoteCandidate()
	ld := &lead.Lead{ID: "lead-1", RawBody: "Jeg vil gerne klage over rengøringen."}
	chain.Evaluate(context.Background(), cand, ld)

	// A lone complaint scores medium. It still stops the send, but
	// nobody is paged for it.
	assert.False(t, cand.ShouldSend)
	assert.Equal(t, []string{"conflict"}, cand.BlockedBy())
	assert.Zero(t, esc.calls)
}

func TestConflictGuardReportsSeverity(t *testing.T) {
	esc := &fakeEscalator{}
	g := NewConflictGuard(conflictConfig(), esc, logger.NopLogger())

	ld := &lead.Lead{ID: "lead-1", RawBody: "Jeg har kontaktet politi og advokat."}
	g.Evaluate(context.Background(), quoteCandidate(), ld)

	assert.Equal(t, SeverityCritical, esc.severity)
	require.NotEmpty(t, esc.reasons)
	assert.Contains(t, esc.reasons[0], "politi")
}

func TestCompletenessGuardAcceptsFullQuote(t *testing.T) {
	g := NewCompletenessGuard()

	cand := quoteCandidate()
	cand.Estimate = quoteEstimate()
	cand.Body = "Hej Lise\n\n" +
		"Vi estimerer 4 arbejdstimer i alt og kommer 2 personer.\n" +
		"Timeprisen er 349kr inkl. moms, og opgaven kan tage +1 time.\n" +
		"Du betaler kun for faktisk tidsforbrug. Vi ringer og aftaler nærmere.\n\n" +
		"Mvh,\nJonas - Rendetalje.dk"

	result := g.Evaluate(context.Background(), cand, nil)
	assert.Equal(t, models.GuardAllow, result.Action)
	assert.Empty(t, result.Reasons)
}

func TestCompletenessGuardRepairsMissingDisclosures(t *testing.T) {
	g := NewCompletenessGuard()

	cand := quoteCandidate()
	cand.Estimate = quoteEstimate()
	cand.Body = "Hej Lise\n\nTak for din henvendelse, vi sender gerne et tilbud.\n\nMvh,\nJonas - Rendetalje.dk"

	result := g.Evaluate(context.Background(), cand, nil)
	assert.Equal(t, models.GuardWarn, result.Action)
	assert.Len(t, result.Reasons, 6)

	assert.Contains(t, cand.Body, "4 arbejdstimer (2 personer × 2.0 timer på stedet)")
	assert.Contains(t, cand.Body, "349kr inkl. moms")
	assert.Contains(t, cand.Body, "+1 time")
	assert.Contains(t, cand.Body, "faktisk tidsforbrug")
	assert.Contains(t, cand.Body, "ringer")

	// Repairs land above the signature, not after it.
	sigIdx := len(cand.Body) - len("Mvh,\nJonas - Rendetalje.dk")
	assert.True(t, sigIdx > 0)
	assert.Contains(t, cand.Body[:sigIdx], "faktisk tidsforbrug")
}

func TestCompletenessGuardBlocksQuoteWithoutEstimate(t *testing.T) {
	g := NewCompletenessGuard()

	cand := quoteCandidate()
	cand.Estimate = nil
	cand.Body = "Hej Lise\n\nVi vender tilbage med en pris.\n\nMvh,\nJonas - Rendetalje.dk"

	result := g.Evaluate(context.Background(), cand, nil)
	require.Equal(t, models.GuardBlock, result.Action)
	require.NotEmpty(t, result.Reasons)
	assert.Contains(t, result.Reasons[0], "intet prisoverslag")
	// Every absent disclosure is named so the reviewer sees what to add.
	assert.Contains(t, result.Reasons, "manglende oplysning: arbejdstimer")
	assert.Contains(t, result.Reasons, "manglende oplysning: timepris")

	// Nothing to repair from, so the body is left untouched.
	assert.NotContains(t, cand.Body, "arbejdstimer")
}

func TestCompletenessGuardIgnoresNonQuotes(t *testing.T) {
	g := NewCompletenessGuard()

	cand := quoteCandidate()
	cand.ResponseType = "confirmation"
	cand.Body = "Hej, det er bekræftet.\n\nMvh,\nJonas - Rendetalje.dk"

	result := g.Evaluate(context.Background(), cand, nil)
	assert.Equal(t, models.GuardAllow, result.Action)
}

func TestCompletenessGuardFlagsMissingSalutation(t *testing.T) {
	g := NewCompletenessGuard()

	cand := quoteCandidate()
	cand.Estimate = quoteEstimate()
	cand.Body = "Vi estimerer 4 arbejdstimer i alt og kommer 2 personer.\n" +
		"Timeprisen er 349kr inkl. moms, og opgaven kan tage +1 time.\n" +
		"Du betaler kun for faktisk tidsforbrug. Vi ringer og aftaler nærmere.\n\n" +
		"Mvh,\nJonas - Rendetalje.dk"

	result := g.Evaluate(context.Background(), cand, nil)
	assert.Equal(t, models.GuardWarn, result.Action)
	assert.Contains(t, result.Reasons[0], "hilsen")
}
