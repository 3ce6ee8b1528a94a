package compose

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/internal/llm"
	"renos/internal/logger"
	"renos/pkg/models"
)

type fakeLLM struct {
	response string
	err      error
	lastMsgs []llm.Message
}

func (f *fakeLLM) CompleteChat(_ context.Context, msgs []llm.Message, _ llm.Options) (string, error) {
	f.lastMsgs = msgs
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakePricer struct {
	estimate *models.PriceEstimate
	err      error
}

func (f *fakePricer) Estimate(_ *lead.Lead) (*models.PriceEstimate, error) {
	return f.estimate, f.err
}

type fakeSlots struct {
	slots []models.BookingSlot
	err   error
}

func (f *fakeSlots) FindSlots(_ context.Context, _ time.Time, _ time.Duration, _ int) ([]models.BookingSlot, error) {
	return f.slots, f.err
}

func testComposerConfig() config.ComposerConfig {
	return config.ComposerConfig{
		CompanyName:       "Rendetalje.dk",
		SignatureName:     "Jonas",
		SlotCount:         3,
		SlotHorizonDays:   14,
		SlotDurationHours: 3,
	}
}

func testLead() *lead.Lead {
	return &lead.Lead{
		ID:           "lead-1",
		ThreadID:     "thread-1",
		Source:       "Rengøring.nu",
		Name:         "Lise Hansen",
		Email:        "lise@example.com",
		TaskType:     lead.TaskRecurring,
		SquareMeters: 56,
	}
}

func TestComposeQuoteParsesSubjectAndBody(t *testing.T) {
	provider := &fakeLLM{response: "SUBJECT: Tilbud på fast rengøring\nBODY: Hej Lise\n\nTak for din henvendelse.\n\nMvh,\nJonas - Rendetalje.dk"}
	pricer := &fakePricer{estimate: &models.PriceEstimate{
		TaskType: lead.TaskRecurring, HoursOnSite: 2.0, WorkHoursTotal: 4.0,
		Workers: 2, HourlyRate: 349,
		Total: 1396, TotalLow: 1117, TotalHigh: 1675,
	}}

	c := NewComposer(testComposerConfig(), provider, pricer, nil, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)

	assert.Equal(t, "Tilbud på fast rengøring", cand.Subject)
	assert.Contains(t, cand.Body, "Hej Lise")
	assert.True(t, cand.ShouldSend)
	assert.Equal(t, "lise@example.com", cand.Recipient)
	assert.Equal(t, "thread-1", cand.ThreadRef)
	assert.Equal(t, TypeQuote, cand.ResponseType)
	require.NotNil(t, cand.Estimate)
	assert.Equal(t, 2.0, cand.Estimate.HoursOnSite)

	// The prompt carries the disclosure facts the quote must state.
	prompt := provider.lastMsgs[1].Content
	assert.Contains(t, prompt, "2.0 timer på stedet")
	assert.Contains(t, prompt, "I alt 4 arbejdstimer (2 personer × 2.0 timer)")
	assert.Contains(t, prompt, "349kr")
	assert.Contains(t, prompt, "+1 time")
	assert.Contains(t, prompt, "faktisk tidsforbrug")
}

func TestComposeForwardsEstimateWarningsToPrompt(t *testing.T) {
	provider := &fakeLLM{response: "SUBJECT: Tilbud\nBODY: Hej\n\nMvh,\nJonas - Rendetalje.dk"}
	pricer := &fakePricer{estimate: &models.PriceEstimate{
		TaskType: lead.TaskGeneral, HoursOnSite: 12.5, WorkHoursTotal: 25,
		Workers: 2, HourlyRate: 349, Total: 8725, TotalLow: 6980, TotalHigh: 10470,
		Warnings: []string{"usædvanligt stort areal (500 m2), estimatet er vejledende"},
	}}

	c := NewComposer(testComposerConfig(), provider, pricer, nil, logger.NopLogger())

	_, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)
	assert.Contains(t, provider.lastMsgs[1].Content, "Bemærk: usædvanligt stort areal")
}

func TestComposeInfoRequestSkipsQuoteFacts(t *testing.T) {
	provider := &fakeLLM{response: "Hej Lise, her er lidt om os."}
	c := NewComposer(testComposerConfig(), provider, nil, nil, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeInfo)
	require.NoError(t, err)
	assert.Equal(t, TypeInfo, cand.ResponseType)
	assert.Equal(t, "Information om fast rengøring - Rendetalje.dk", cand.Subject)
	assert.NotContains(t, provider.lastMsgs[1].Content, "Prisinterval")
}

func TestComposeFallsBackOnUnstructuredOutput(t *testing.T) {
	provider := &fakeLLM{response: "Hej Lise, tak for din besked."}
	c := NewComposer(testComposerConfig(), provider, nil, nil, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)

	assert.Equal(t, "Tilbud på fast rengøring - Rendetalje.dk", cand.Subject)
	assert.Contains(t, cand.Body, "Hej Lise")
	assert.Contains(t, cand.Body, "Mvh,\nJonas - Rendetalje.dk")
}

func TestComposeContinuesWhenPricingFails(t *testing.T) {
	provider := &fakeLLM{response: "SUBJECT: Tilbud\nBODY: Hej\n\nMvh,\nJonas - Rendetalje.dk"}
	pricer := &fakePricer{err: fmt.Errorf("no size information")}

	c := NewComposer(testComposerConfig(), provider, pricer, nil, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)
	assert.Nil(t, cand.Estimate)
	assert.True(t, cand.ShouldSend)
}

func TestComposeFailsWhenGenerationFails(t *testing.T) {
	provider := &fakeLLM{err: fmt.Errorf("model unavailable")}
	c := NewComposer(testComposerConfig(), provider, nil, nil, logger.NopLogger())

	_, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.Error(t, err)
}

func TestComposeIncludesSlotsInPrompt(t *testing.T) {
	start := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	provider := &fakeLLM{response: "SUBJECT: Tilbud\nBODY: Hej\n\nMvh,\nJonas - Rendetalje.dk"}
	slots := &fakeSlots{slots: []models.BookingSlot{
		{Start: start, End: start.Add(3 * time.Hour)},
	}}

	c := NewComposer(testComposerConfig(), provider, nil, slots, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)
	require.Len(t, cand.Slots, 1)
	assert.Contains(t, provider.lastMsgs[1].Content, "11-03-2026 kl. 09:00-12:00")
}

func TestComposeSlotLookupFailureIsNotFatal(t *testing.T) {
	provider := &fakeLLM{response: "SUBJECT: Tilbud\nBODY: Hej\n\nMvh,\nJonas - Rendetalje.dk"}
	slots := &fakeSlots{err: fmt.Errorf("calendar down")}

	c := NewComposer(testComposerConfig(), provider, nil, slots, logger.NopLogger())

	cand, err := c.Compose(context.Background(), testLead(), TypeQuote)
	require.NoError(t, err)
	assert.Empty(t, cand.Slots)
}

func TestParseGenerated(t *testing.T) {
	subject, body := parseGenerated("SUBJECT: Emne her\nBODY: Første linje\nAnden linje")
	assert.Equal(t, "Emne her", subject)
	assert.Equal(t, "Første linje\nAnden linje", body)

	subject, body = parseGenerated("bare løs tekst")
	assert.Empty(t, subject)
	assert.Equal(t, "bare løs tekst", body)
}
