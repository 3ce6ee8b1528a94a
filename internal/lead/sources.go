package lead

import (
	"context"
	"strings"

	celgo "github.com/google/cel-go/cel"

	"renos/internal/config"
	"renos/internal/constants"
	"renos/pkg/cel"
	"renos/pkg/models"
)

// builtinSource matches one of the lead portals the company is signed
// up with. Matching is first-match over sender, reply-to and subject.
type builtinSource struct {
	name    string
	needles []string
}

var builtinSources = []builtinSource{
	{
		name:    constants.SourceRengoeringNu,
		needles: []string{"leadmail.no", "rengoring.nu", "rengøring.nu"},
	},
	{
		name:    constants.SourceRengoeringAarhus,
		needles: []string{"leadpoint.dk", "rengøring aarhus", "rengoring-aarhus"},
	},
	{
		name:    constants.SourceAdHelp,
		needles: []string{"adhelp.dk"},
	},
}

type compiledSource struct {
	name    string
	program celgo.Program
}

func compileSources(eval *cel.Evaluator, sources []config.SourceConfig) ([]compiledSource, error) {
	var compiled []compiledSource
	for _, src := range sources {
		program, err := eval.CompileMatch(src.Match)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledSource{name: src.Name, program: program})
	}
	return compiled, nil
}

// recognizeSource returns the source name for a message, or "" when no
// builtin or configured source matches.
func (e *Extractor) recognizeSource(ctx context.Context, msg models.InboundMessage) string {
	haystack := strings.ToLower(msg.From + " " + msg.ReplyTo + " " + msg.Subject)

	for _, src := range builtinSources {
		for _, needle := range src.needles {
			if strings.Contains(haystack, needle) {
				return src.name
			}
		}
	}

	for _, src := range e.custom {
		ok, err := cel.EvaluateMatch(ctx, src.program, msg.From, msg.ReplyTo, msg.Subject, msg.Body)
		if err != nil {
			e.logger.WarnwCtx(ctx, "Source match expression failed",
				"source", src.name,
				"error", err,
			)
			continue
		}
		if ok {
			return src.name
		}
	}

	return ""
}
