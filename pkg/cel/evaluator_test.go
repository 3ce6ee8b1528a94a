package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateMatchExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid contains on from",
			expr:      `from.contains("leadmail.no")`,
			wantError: false,
		},
		{
			name:      "valid combined expression",
			expr:      `subject.contains("tilbud") || body.contains("kvm")`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `subject`,
			wantError: true,
		},
		{
			name:      "invalid syntax",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `sender == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateMatchExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateMatch(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ctx := context.Background()
	from := "noreply@leadmail.no"
	replyTo := "kunde@example.com"
	subject := "Ny kunde: Flytterengøring"
	body := "Navn: Lise Hansen\nAdresse: Søndergade 12, 8000 Aarhus C"

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{
			name: "matches sender domain",
			expr: `from.contains("leadmail.no")`,
			want: true,
		},
		{
			name: "does not match other domain",
			expr: `from.contains("leadpoint.dk")`,
			want: false,
		},
		{
			name: "subject prefix",
			expr: `subject.startsWith("Ny kunde")`,
			want: true,
		},
		{
			name: "body and replyTo combined",
			expr: `body.contains("Aarhus") && replyTo.endsWith("example.com")`,
			want: true,
		},
		{
			name: "case sensitive by default",
			expr: `subject.contains("ny kunde")`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := eval.CompileMatch(tt.expr)
			require.NoError(t, err)

			got, err := EvaluateMatch(ctx, program, from, replyTo, subject, body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileMatchRejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileMatch(`from + subject`)
	assert.Error(t, err)
}
