package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceBannedPhrases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single buzzword",
			input:    "The results leverage existing methods.",
			expected: "The results use existing methods.",
		},
		{
			name:     "preserves initial capital",
			input:    "Pivotal advances reshape the Landscape of research.",
			expected: "Central advances reshape the Field of research.",
		},
		{
			name:     "phrase before word",
			input:    "The paper delves into attention and then delves deeper.",
			expected: "The paper examines attention and then examines deeper.",
		},
		{
			name:     "case insensitive match",
			input:    "this is PARAMOUNT to success",
			expected: "this is Essential to success",
		},
		{
			name:     "filler phrase",
			input:    "It is important to note that accuracy improved.",
			expected: "Notably, accuracy improved.",
		},
		{
			name:     "clean text unchanged",
			input:    "The model was trained on public data.",
			expected: "The model was trained on public data.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReplaceBannedPhrases(tt.input))
		})
	}
}

func TestReplaceBannedPhrases_Idempotent(t *testing.T) {
	inputs := []string{
		"A multifaceted, intricate tapestry underscores the pivotal realm.",
		"We leverage and keep leveraging cutting-edge, groundbreaking tools.",
		"Nothing flagged here.",
	}

	for _, input := range inputs {
		once := ReplaceBannedPhrases(input)
		assert.Equal(t, once, ReplaceBannedPhrases(once))
	}
}
