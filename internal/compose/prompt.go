package compose

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"renos/internal/lead"
	"renos/pkg/models"
)

// Generated content is expected as "SUBJECT: ...\nBODY: ...". Anything
// that does not follow the format is used as the body verbatim.
var generatedPattern = regexp.MustCompile(`(?is)SUBJECT:\s*(.+?)\s*BODY:\s*(.+)$`)

func parseGenerated(content string) (subject, body string) {
	m := generatedPattern.FindStringSubmatch(content)
	if m == nil {
		return "", strings.TrimSpace(content)
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

func (c *Composer) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Du skriver kundemails for %s, et rengøringsfirma i Aarhus.\n", c.cfg.CompanyName)
	b.WriteString("Skriv på dansk, venligt og professionelt, uden pladsholdere som [navn].\n")
	b.WriteString("Svar altid i formatet:\nSUBJECT: <emnelinje>\nBODY: <selve mailen>\n")
	fmt.Fprintf(&b, "Afslut altid med signaturen:\n%s\n", c.Signature())
	return b.String()
}

func (c *Composer) userPrompt(ld *lead.Lead, responseType string, estimate *models.PriceEstimate, slots []models.BookingSlot) string {
	var b strings.Builder

	switch responseType {
	case TypeQuote:
		b.WriteString("Skriv et tilbud til denne kunde.\n")
	case TypeConfirmation:
		b.WriteString("Skriv en bekræftelse til denne kunde.\n")
	case TypeInfo:
		b.WriteString("Skriv et informerende svar til denne kunde.\n")
	default:
		b.WriteString("Skriv en opfølgning til denne kunde.\n")
	}

	fmt.Fprintf(&b, "\nKunde:\n")
	if ld.Name != "" {
		fmt.Fprintf(&b, "- Navn: %s\n", ld.Name)
	}
	if ld.Address != "" {
		fmt.Fprintf(&b, "- Adresse: %s\n", ld.Address)
	}
	if ld.TaskType != "" {
		fmt.Fprintf(&b, "- Opgave: %s\n", ld.TaskType)
	}
	if ld.SquareMeters > 0 {
		fmt.Fprintf(&b, "- Størrelse: %d m2\n", ld.SquareMeters)
	}
	if ld.Rooms > 0 {
		fmt.Fprintf(&b, "- Værelser: %d\n", ld.Rooms)
	}
	if ld.Comments != "" {
		fmt.Fprintf(&b, "- Kommentar: %s\n", ld.Comments)
	}

	if estimate != nil {
		b.WriteString("\nTilbuddet skal indeholde disse oplysninger:\n")
		fmt.Fprintf(&b, "- Estimeret tid: %.1f timer på stedet\n", estimate.HoursOnSite)
		fmt.Fprintf(&b, "- I alt %.0f arbejdstimer (%d personer × %.1f timer)\n",
			estimate.WorkHoursTotal, estimate.Workers, estimate.HoursOnSite)
		fmt.Fprintf(&b, "- Timepris %dkr inkl. moms\n", estimate.HourlyRate)
		fmt.Fprintf(&b, "- Prisinterval %.0f-%.0f kr\n", estimate.TotalLow, estimate.TotalHigh)
		for _, w := range estimate.Warnings {
			fmt.Fprintf(&b, "- Bemærk: %s\n", w)
		}
		b.WriteString("- Tager opgaven længere tid end estimeret, giver vi besked inden vi fortsætter udover +1 time\n")
		b.WriteString("- Vi fakturerer kun faktisk tidsforbrug\n")
		b.WriteString("- Vi ringer og aftaler nærmere inden besøget\n")
	}

	if len(slots) > 0 {
		b.WriteString("\nForeslå disse tider:\n")
		for _, slot := range slots {
			fmt.Fprintf(&b, "- %s\n", formatSlot(slot))
		}
	}

	return b.String()
}

func formatSlot(slot models.BookingSlot) string {
	return fmt.Sprintf("%s kl. %02d:%02d-%02d:%02d",
		slot.Start.Format("02-01-2006"),
		slot.Start.Hour(), slot.Start.Minute(),
		slot.End.Hour(), slot.End.Minute(),
	)
}

// businessDay reports whether t falls on a day visits can be booked.
func businessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
