package cel

// MatchExpressionExamples shows the shape of source match expressions
// accepted in configuration.
var MatchExpressionExamples = map[string]string{
	"sender_domain":    `from.contains("leadmail.no")`,
	"reply_to_domain":  `replyTo.endsWith("@adhelp.dk")`,
	"subject_prefix":   `subject.startsWith("Ny kunde")`,
	"body_keyword":     `body.contains("Flytterengøring")`,
	"combined":         `from.contains("leadpoint.dk") || subject.contains("Rengøring Aarhus")`,
	"portal_with_body": `from.contains("formular") && body.contains("kvm")`,
}
