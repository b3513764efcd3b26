package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestructure(t *testing.T) {
	t.Run("repairs mis-decoded punctuation", func(t *testing.T) {
		got := Restructure("The model\u00e2\u20ac\u2122s accuracy rose \u00e2\u20ac\u0093 significantly.")
		assert.Equal(t, "The model's accuracy rose - significantly.", got)
	})

	t.Run("drops code fences", func(t *testing.T) {
		got := Restructure("```python\nresult = train()\n```\nThe code above ran.")
		assert.NotContains(t, got, "```")
		assert.Contains(t, got, "result = train()")
	})

	t.Run("breaks before subsection labels", func(t *testing.T) {
		got := Restructure("The design had three parts. A. Data Collection used public sets. B. Model Training ran overnight.")
		assert.Contains(t, got, "\n\nA. Data Collection")
		assert.Contains(t, got, "\n\nB. Model Training")
	})

	t.Run("breaks before inline numbered items", func(t *testing.T) {
		got := Restructure("The steps were: 1. Collect the data. 2. Train the model.")
		assert.Contains(t, got, "\n1. Collect the data.")
		assert.Contains(t, got, "\n2. Train the model.")
	})

	t.Run("breaks on bullet glyphs", func(t *testing.T) {
		got := Restructure("Key points • accuracy rose • latency fell")
		assert.Contains(t, got, "accuracy rose\nlatency fell")
	})

	t.Run("breaks before label phrases", func(t *testing.T) {
		got := Restructure("The run finished. Key Insight: batching dominates cost.")
		assert.Contains(t, got, "\nKey Insight: batching dominates cost.")
	})

	t.Run("plain prose untouched", func(t *testing.T) {
		input := "The experiments used a single configuration throughout."
		assert.Equal(t, input, Restructure(input))
	})
}

func TestRestructure_Idempotent(t *testing.T) {
	inputs := []string{
		"Steps: 1. One thing. 2. Another thing. A. Subpart here. Key Insight: done.",
		"bullets • one • two",
		"plain text",
	}

	for _, input := range inputs {
		once := Restructure(input)
		assert.Equal(t, once, Restructure(once))
	}
}
