package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renos/internal/config"
	"renos/internal/constants"
	"renos/internal/lead"
	"renos/internal/logger"
	"renos/pkg/models"
)

func candidate(source string) *models.CandidateMessage {
	return &models.CandidateMessage{
		LeadID:     "lead-1",
		Source:     source,
		Recipient:  "kunde@example.com",
		ThreadRef:  "thread-1",
		Subject:    "Tilbud",
		Body:       "Hej\n\nMvh,\nJonas - Rendetalje.dk",
		ShouldSend: true,
	}
}

func TestRouteReplyNormallyKeepsThread(t *testing.T) {
	r := NewRouter(nil, logger.NopLogger())

	cand := candidate(constants.SourceRengoeringAarhus)
	r.Route(context.Background(), cand, nil)

	assert.True(t, cand.ShouldSend)
	assert.Equal(t, "thread-1", cand.ThreadRef)
	assert.Empty(t, cand.GuardResults)
}

func TestRouteCreateNewEmailUsesCustomerAddress(t *testing.T) {
	r := NewRouter(nil, logger.NopLogger())

	cand := candidate(constants.SourceRengoeringNu)
	cand.Recipient = "noreply@leadmail.no"
	ld := &lead.Lead{Email: "Lise.Hansen@Example.com"}

	r.Route(context.Background(), cand, ld)

	assert.True(t, cand.ShouldSend)
	assert.Equal(t, "lise.hansen@example.com", cand.Recipient)
	assert.Empty(t, cand.ThreadRef)
}

func TestRouteCreateNewEmailBlocksWithoutAddress(t *testing.T) {
	r := NewRouter(nil, logger.NopLogger())

	cand := candidate(constants.SourceAdHelp)
	cand.Recipient = ""

	r.Route(context.Background(), cand, &lead.Lead{})

	assert.False(t, cand.ShouldSend)
	require.Len(t, cand.GuardResults, 1)
	assert.Equal(t, models.GuardBlock, cand.GuardResults[0].Action)
}

func TestRouteUnknownSourceWarns(t *testing.T) {
	r := NewRouter(nil, logger.NopLogger())

	cand := candidate("Ukendt Portal")
	r.Route(context.Background(), cand, nil)

	assert.True(t, cand.ShouldSend)
	require.Len(t, cand.GuardResults, 1)
	assert.Equal(t, models.GuardWarn, cand.GuardResults[0].Action)
}

func TestRouteConfiguredRuleOverridesDefault(t *testing.T) {
	rules := []config.RouteRule{
		{Source: constants.SourceRengoeringNu, Action: constants.RouteReplyNormally},
		{Source: "Ageras", Action: constants.RouteCreateNewEmail},
	}
	r := NewRouter(rules, logger.NopLogger())

	cand := candidate(constants.SourceRengoeringNu)
	r.Route(context.Background(), cand, nil)
	assert.Equal(t, "thread-1", cand.ThreadRef)

	custom := candidate("Ageras")
	r.Route(context.Background(), custom, &lead.Lead{Email: "kunde@example.com"})
	assert.Empty(t, custom.ThreadRef)
	assert.Equal(t, "kunde@example.com", custom.Recipient)
}
