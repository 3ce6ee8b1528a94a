package lead

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renos/internal/config"
	"renos/internal/constants"
	"renos/internal/logger"
	"renos/pkg/models"
)

func newTestExtractor(t *testing.T, extra ...config.SourceConfig) *Extractor {
	t.Helper()
	e, err := NewExtractor(config.ExtractorConfig{
		CompanyDomain: "rendetalje.dk",
		Sources:       extra,
	}, logger.NopLogger())
	require.NoError(t, err)
	return e
}

func TestExtractRengoeringNuLead(t *testing.T) {
	e := newTestExtractor(t)

	msg := models.InboundMessage{
		ID:        "msg-1",
		ThreadID:  "thread-1",
		From:      "Rengøring.nu <noreply@leadmail.no>",
		Subject:   "Ny kunde: Flytterengøring i Aarhus",
		Timestamp: "2026-03-02T10:15:00+01:00",
		Body: `Navn: Lise Hansen
Email: lise.hansen@example.com
Telefon: 22 33 44 55
Adresse: Søndergade 12, 8000 Aarhus C
Bolig: 85 m2, 3 værelser
Kommentar: Vi flytter ud sidst på måneden.`,
	}

	ld, err := e.Extract(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, ld)

	assert.Equal(t, constants.SourceRengoeringNu, ld.Source)
	assert.Equal(t, "Lise Hansen", ld.Name)
	assert.Equal(t, "lise.hansen@example.com", ld.Email)
	assert.Equal(t, "22334455", ld.Phone)
	assert.Equal(t, "Søndergade 12, 8000 Aarhus C", ld.Address)
	assert.Equal(t, 85, ld.SquareMeters)
	assert.Equal(t, 3, ld.Rooms)
	assert.Equal(t, TaskMoveOut, ld.TaskType)
	assert.Contains(t, ld.Comments, "flytter ud")
	assert.Equal(t, "msg-1", ld.MessageID)
	assert.Equal(t, 2026, ld.ReceivedAt.Year())
	assert.NotEmpty(t, ld.ID)
}

func TestExtractUnrecognizedSourceReturnsNil(t *testing.T) {
	e := newTestExtractor(t)

	ld, err := e.Extract(context.Background(), models.InboundMessage{
		ID:      "msg-2",
		From:    "somebody@gmail.com",
		Subject: "Spørgsmål om faktura",
		Body:    "Hej, jeg har et spørgsmål.",
	})
	require.NoError(t, err)
	assert.Nil(t, ld)
}

func TestExtractFirstPatternWins(t *testing.T) {
	e := newTestExtractor(t)

	msg := models.InboundMessage{
		ID:      "msg-3",
		From:    "leads@leadpoint.dk",
		Subject: "Rengøring Aarhus: ny forespørgsel",
		Body: `Navn: Peter Møller
Kontaktperson: Ikke denne
Email: peter@example.com`,
	}

	ld, err := e.Extract(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, ld)
	assert.Equal(t, constants.SourceRengoeringAarhus, ld.Source)
	assert.Equal(t, "Peter Møller", ld.Name)
}

func TestExtractSkipsCompanyAddresses(t *testing.T) {
	e := newTestExtractor(t)

	msg := models.InboundMessage{
		ID:      "msg-4",
		From:    "formular@adhelp.dk",
		Subject: "Ny henvendelse",
		Body:    "Send svar til info@rendetalje.dk eller kunden på anna@example.com",
	}

	ld, err := e.Extract(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, ld)
	assert.Equal(t, constants.SourceAdHelp, ld.Source)
	assert.Equal(t, "anna@example.com", ld.Email)
}

func TestExtractCustomSourceViaMatchExpression(t *testing.T) {
	e := newTestExtractor(t, config.SourceConfig{
		Name:  "Ageras",
		Match: `from.contains("ageras.com")`,
		Route: constants.RouteReplyWithWarning,
	})

	ld, err := e.Extract(context.Background(), models.InboundMessage{
		ID:      "msg-5",
		From:    "leads@ageras.com",
		Subject: "Ny opgave",
		Body:    "Fast rengøring af kontor, 200 kvm",
	})
	require.NoError(t, err)
	require.NotNil(t, ld)
	assert.Equal(t, "Ageras", ld.Source)
	assert.Equal(t, 200, ld.SquareMeters)
	assert.Equal(t, TaskRecurring, ld.TaskType)
}

func TestExtractNamePrefersPortalSubject(t *testing.T) {
	e := newTestExtractor(t)

	msg := models.InboundMessage{
		ID:      "msg-6",
		From:    "noreply@leadmail.no",
		Subject: "Re: Mette Sørensen fra Rengøring.nu",
		Body: `Navn: Ukendt Kunde
Email: mette@example.com
Boligstørrelse: 90 m2`,
	}

	ld, err := e.Extract(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, ld)
	assert.Equal(t, "Mette Sørensen", ld.Name)
}

func TestExtractDropsNonAddressValues(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		line string
		want string
	}{
		{"phone on address line", "Adresse: 22 33 44 55", ""},
		{"city without street", "Adresse: Aarhus", ""},
		{"real street keeps value", "Adresse: Klostervej 3, 8680 Ry", "Klostervej 3, 8680 Ry"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := models.InboundMessage{
				ID:      "msg-7",
				From:    "noreply@leadmail.no",
				Subject: "Ny kunde",
				Body:    "Navn: Lise Hansen\nEmail: lise@example.com\n" + tc.line + "\n",
			}

			ld, err := e.Extract(context.Background(), msg)
			require.NoError(t, err)
			require.NotNil(t, ld)
			assert.Equal(t, tc.want, ld.Address)
		})
	}
}

func TestClassifyProperty(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled value wins", "Boligtype: Lejlighed\nVi bor i et dejligt hus i Aarhus", "Lejlighed"},
		{"rækkehus before hus", "Vi har et rækkehus på 110 m2", "Rækkehus"},
		{"free text villa", "hovedrengøring af vores villa", "Villa"},
		{"city name is not a house", "Flytterengøring i Aarhus", ""},
		{"unmapped label passes through", "Boligtype: Kolonihavehus med loft", "Kolonihavehus med loft"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyProperty(tc.text))
		})
	}
}

func TestClassifyTaskPrefersSpecificKeyword(t *testing.T) {
	assert.Equal(t, TaskMoveOut, classifyTask("Vi skal bruge flytterengøring, evt. fast rengøring senere"))
	assert.Equal(t, TaskDeep, classifyTask("hovedrengøring af villa"))
	assert.Equal(t, TaskGeneral, classifyTask("bare almindelig hjælp"))
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "rfc3339",
			raw:  "2026-03-02T10:15:00Z",
			want: time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC),
		},
		{
			name: "epoch millis",
			raw:  "1772532000000",
			want: time.UnixMilli(1772532000000),
		},
		{
			name: "epoch seconds",
			raw:  "1772532000",
			want: time.Unix(1772532000, 0),
		},
		{
			name: "garbage falls back to now",
			raw:  "next tuesday",
			want: now,
		},
		{
			name: "empty falls back to now",
			raw:  "",
			want: now,
		},
		{
			name: "implausible year falls back to now",
			raw:  "1970-01-01T00:00:01Z",
			want: now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(tt.raw, now)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}
