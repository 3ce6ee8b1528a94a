package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renos/internal/approval"
	"renos/internal/compose"
	"renos/internal/config"
	"renos/internal/constants"
	"renos/internal/dispatch"
	"renos/internal/guard"
	"renos/internal/lead"
	"renos/internal/llm"
	"renos/internal/logger"
	"renos/internal/pricing"
	"renos/internal/route"
	"renos/internal/store"
	"renos/pkg/models"
)

type capturingProducer struct {
	events []models.AuditEvent
}

func (p *capturingProducer) Publish(_ context.Context, _ string, _ string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var event models.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func (p *capturingProducer) types(t string) []models.AuditEvent {
	var out []models.AuditEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memoryRecorder struct {
	leads  []*store.LeadRecord
	quotes []*store.QuoteRecord
}

func (r *memoryRecorder) RecordLead(_ context.Context, rec *store.LeadRecord) error {
	r.leads = append(r.leads, rec)
	return nil
}

func (r *memoryRecorder) RecordQuoteSent(_ context.Context, rec *store.QuoteRecord) error {
	r.quotes = append(r.quotes, rec)
	return nil
}

type scriptedLLM struct {
	response string
}

func (s *scriptedLLM) CompleteChat(_ context.Context, _ []llm.Message, _ llm.Options) (string, error) {
	return s.response, nil
}

type emptyQuotes struct{}

func (emptyQuotes) LastQuote(_ context.Context, _ string) (*store.QuoteRecord, error) {
	return nil, nil
}

type emptyCustomers struct{}

func (emptyCustomers) CustomerByEmail(_ context.Context, _ string) (*store.CustomerRecord, error) {
	return nil, nil
}

type memoryMailer struct {
	sent []string
}

func (m *memoryMailer) SendMail(_ context.Context, to, _, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

type pipelineFixture struct {
	service  *Service
	producer *capturingProducer
	recorder *memoryRecorder
	mailer   *memoryMailer
}

// newPipeline wires the real extractor, pricing, guards, router,
// approval workflow and dispatch gateway; only the LLM, mail backend
// and database lookups are test doubles.
func newPipeline(t *testing.T, llmResponse string, approvalCfg config.ApprovalConfig) *pipelineFixture {
	t.Helper()
	log := logger.NopLogger()

	extractor, err := lead.NewExtractor(config.ExtractorConfig{CompanyDomain: "rendetalje.dk"}, log)
	require.NoError(t, err)

	pricer := pricing.NewCalculator(config.PricingConfig{
		HourlyRate:    349,
		Workers:       2,
		MinHours:      2.0,
		MarginPercent: 20.0,
	})
	composer := compose.NewComposer(config.ComposerConfig{
		CompanyName:       "Rendetalje.dk",
		SignatureName:     "Jonas",
		SlotCount:         3,
		SlotHorizonDays:   14,
		SlotDurationHours: 3,
	}, &scriptedLLM{response: llmResponse}, pricer, nil, log)

	producer := &capturingProducer{}
	auditor := NewAuditor(producer, constants.DefaultAuditTopic, log)

	guards := guard.NewChain(log,
		guard.NewDuplicateGuard(config.DuplicateGuardConfig{LookbackDays: 7, WarnWindowDays: 30},
			emptyQuotes{}, emptyCustomers{}, log),
		guard.NewConflictGuard(config.ConflictGuardConfig{LowScore: 3, MediumScore: 6, HighScore: 9, CriticalScore: 12},
			auditor, log),
		guard.NewCompletenessGuard(),
	)

	mailer := &memoryMailer{}
	gateway := dispatch.NewGateway(config.DispatchConfig{RateLimitMax: 10}, mailer, nil, log)

	workflow := approval.NewWorkflow(approvalCfg, approval.NewMemoryStore(), gateway, log)

	recorder := &memoryRecorder{}
	service := NewService(extractor, composer, guards, route.NewRouter(nil, log), workflow, recorder, auditor, log)

	return &pipelineFixture{service: service, producer: producer, recorder: recorder, mailer: mailer}
}

func leadMessage(body string) models.InboundMessage {
	return models.InboundMessage{
		ID:        "msg-1",
		ThreadID:  "thread-1",
		From:      "system@leadmail.no",
		Subject:   "Nyt lead: Fast rengøring",
		Body:      body,
		Timestamp: "2026-03-10T09:00:00Z",
	}
}

const quoteResponse = "SUBJECT: Tilbud på fast rengøring\n" +
	"BODY: Hej Lise\n\n" +
	"Tak for din henvendelse om fast rengøring af din bolig på 56 m2.\n" +
	"Vi estimerer 4 arbejdstimer i alt og kommer 2 personer.\n" +
	"Timeprisen er 349kr inkl. moms, og opgaven kan tage +1 time.\n" +
	"Du betaler kun for faktisk tidsforbrug. Vi ringer og aftaler nærmere.\n\n" +
	"Mvh,\nJonas - Rendetalje.dk"

func TestProcessQuotesAndAutoSendsRecurringLead(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{MaxAutoPerDay: 50})

	msg := leadMessage("Navn: Lise Hansen\n" +
		"Email: lise@example.com\n" +
		"Telefon: 23 45 67 89\n" +
		"Adresse: Ryesgade 12, 8000 Aarhus\n" +
		"Boligstørrelse: 56 m2\n" +
		"Opgave: Fast rengøring hver anden uge\n")

	require.NoError(t, f.service.Process(context.Background(), msg))

	// New-email route delivers to the customer's own address.
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "lise@example.com", f.mailer.sent[0])

	require.Len(t, f.recorder.leads, 1)
	assert.Equal(t, constants.SourceRengoeringNu, f.recorder.leads[0].Source)

	require.Len(t, f.recorder.quotes, 1)
	assert.Equal(t, "lise@example.com", f.recorder.quotes[0].Email)
	assert.InDelta(t, 1396, f.recorder.quotes[0].Total, 0.01)
	assert.Equal(t, "thread-1", f.recorder.quotes[0].ThreadRef)

	assert.Len(t, f.producer.types(models.AuditLeadExtracted), 1)
	assert.Len(t, f.producer.types(models.AuditResponseSent), 1)
	assert.Empty(t, f.producer.types(models.AuditEscalated))
}

func TestProcessEscalatesConflictLead(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{MaxAutoPerDay: 50})

	msg := leadMessage("Navn: Per Madsen\n" +
		"Email: per@example.com\n" +
		"Boligstørrelse: 80 m2\n" +
		"Opgave: Flytterengøring\n" +
		"Kommentar: Sidste firma ødelagde gulvet, min advokat forbereder en retssag om erstatning.\n")

	require.NoError(t, f.service.Process(context.Background(), msg))

	// Nothing leaves the pipeline; the lead goes to a human.
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.recorder.quotes)

	escalations := f.producer.types(models.AuditEscalated)
	require.Len(t, escalations, 1)
	assert.Equal(t, "critical", escalations[0].Details["severity"])

	pending := f.producer.types(models.AuditResponsePending)
	require.Len(t, pending, 1)
	assert.Equal(t, false, pending[0].Details["should_send"])
}

func TestProcessHoldsForApprovalWhenRequired(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{RequireApproval: true, MaxAutoPerDay: 50})

	msg := leadMessage("Navn: Lise Hansen\nEmail: lise@example.com\nBoligstørrelse: 56 m2\nOpgave: Fast rengøring\n")

	require.NoError(t, f.service.Process(context.Background(), msg))

	assert.Empty(t, f.mailer.sent)
	assert.Len(t, f.producer.types(models.AuditResponsePending), 1)
	assert.Empty(t, f.producer.types(models.AuditResponseSent))
}

func TestProcessRejectsLeadOverDailyAutoLimit(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{MaxAutoPerDay: 1})

	first := leadMessage("Navn: Lise Hansen\nEmail: lise@example.com\nBoligstørrelse: 56 m2\nOpgave: Fast rengøring\n")
	require.NoError(t, f.service.Process(context.Background(), first))

	second := leadMessage("Navn: Bo Berg\nEmail: bo@example.com\nBoligstørrelse: 70 m2\nOpgave: Fast rengøring\n")
	second.ID = "msg-9"
	second.ThreadID = "thread-9"
	require.NoError(t, f.service.Process(context.Background(), second))

	// First lead used the day's only auto slot; the second is closed
	// with the limit named in the audit trail, not queued.
	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.producer.types(models.AuditResponsePending))

	rejected := f.producer.types(models.AuditResponseRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Details["reason"], "dagligt auto-svar limit")
}

func TestProcessSkipsNonLeadMail(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{MaxAutoPerDay: 50})

	msg := models.InboundMessage{
		ID:      "msg-2",
		From:    "newsletter@random.example",
		Subject: "Ugens tilbud",
		Body:    "Spar 20% på kontorartikler",
	}

	require.NoError(t, f.service.Process(context.Background(), msg))
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.producer.events)
}

func TestProcessRedeliveredMessageIsAcknowledged(t *testing.T) {
	f := newPipeline(t, quoteResponse, config.ApprovalConfig{RequireApproval: true, MaxAutoPerDay: 50})

	msg := leadMessage("Navn: Lise Hansen\nEmail: lise@example.com\nBoligstørrelse: 56 m2\nOpgave: Fast rengøring\n")

	require.NoError(t, f.service.Process(context.Background(), msg))
	require.NoError(t, f.service.Process(context.Background(), msg))

	// Still only one held response despite the redelivery.
	assert.Len(t, f.producer.types(models.AuditResponsePending), 1)
}
