package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase and trailing punctuation",
			input: "Implementar Sistema!!!",
			want:  "implementar sistema",
		},
		{
			name:  "already normalized",
			input: "implementar sistema",
			want:  "implementar sistema",
		},
		{
			name:  "whitespace collapsed",
			input: "  Implementar   Sistema ",
			want:  "implementar sistema",
		},
		{
			name:  "diacritics stripped",
			input: "Configuración de módulos añadidos",
			want:  "configuracion de modulos anadidos",
		},
		{
			name:  "hyphen preserved",
			input: "Sub-task support",
			want:  "sub-task support",
		},
		{
			name:  "internal punctuation stripped",
			input: "pagos, facturas... y envíos?",
			want:  "pagos facturas y envios",
		},
		{
			name:  "tabs and newlines",
			input: "uno\tdos\ntres",
			want:  "uno dos tres",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "only punctuation",
			input: "!!! ???",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDescription(tt.input))
		})
	}
}

func TestNormalizeDescriptionEquivalence(t *testing.T) {
	a := NormalizeDescription("Implementar Sistema!!!")
	b := NormalizeDescription("implementar sistema")
	c := NormalizeDescription("  Implementar   Sistema")

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestNormalizeDescriptionIdempotent(t *testing.T) {
	inputs := []string{
		"Implementar Sistema!!!",
		"Configuración de módulos",
		"  espacios   múltiples  ",
		"sub-task: crear índice",
		"日本語のタイトルです。",
		"",
	}

	for _, input := range inputs {
		once := NormalizeDescription(input)
		twice := NormalizeDescription(once)
		assert.Equal(t, once, twice, "input: %q", input)
	}
}
