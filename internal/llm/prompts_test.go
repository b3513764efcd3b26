package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/paper-generator-service/internal/domain"
)

func TestWordTarget(t *testing.T) {
	assert.Equal(t, 350, WordTarget(domain.SectionIntroduction))
	assert.Equal(t, 400, WordTarget(domain.SectionLiteratureReview))
	assert.Equal(t, 350, WordTarget(domain.SectionMethodology))
	assert.Equal(t, 300, WordTarget(domain.SectionResults))
	assert.Equal(t, 350, WordTarget(domain.SectionDiscussion))
	assert.Equal(t, 250, WordTarget(domain.SectionConclusion))

	// Unknown kinds fall back to a sane default.
	assert.Equal(t, 300, WordTarget(domain.SectionKind("appendix")))
}

func TestTemperature(t *testing.T) {
	// Factual sections run cooler than narrative ones.
	assert.Equal(t, 0.5, Temperature(domain.SectionMethodology))
	assert.Equal(t, 0.5, Temperature(domain.SectionResults))
	assert.Equal(t, 0.6, Temperature(domain.SectionLiteratureReview))
	assert.Equal(t, 0.7, Temperature(domain.SectionIntroduction))
	assert.Equal(t, 0.7, Temperature(domain.SectionKind("appendix")))
}

func TestMaxTokens(t *testing.T) {
	assert.Equal(t, 630, MaxTokens(domain.SectionIntroduction))
	assert.Equal(t, 450, MaxTokens(domain.SectionConclusion))
}

func TestNewPaperContext_TrimsPreviews(t *testing.T) {
	abstract := strings.Repeat("word ", 100)
	intro := strings.Repeat("intro ", 100)

	pctx := NewPaperContext("Edge Inference", abstract, intro)

	assert.Equal(t, "Edge Inference", pctx.Title)
	assert.Len(t, strings.Fields(pctx.AbstractPreview), 60)
	assert.Len(t, strings.Fields(pctx.IntroPreview), 50)
}

func TestSectionPrompt(t *testing.T) {
	pctx := NewPaperContext("Quantum Error Correction", "A short abstract.", "A short introduction.")

	t.Run("embeds title and word target", func(t *testing.T) {
		prompt := sectionPrompt(domain.SectionMethodology, pctx, "", "")
		assert.Contains(t, prompt, "Quantum Error Correction")
		assert.Contains(t, prompt, "350-word Methodology")
	})

	t.Run("grounding context only for grounded sections", func(t *testing.T) {
		ragContext := "Paper 1: Something relevant"

		grounded := sectionPrompt(domain.SectionLiteratureReview, pctx, ragContext, "")
		assert.Contains(t, grounded, ragContext)
		assert.Contains(t, grounded, "IEEE style citations")

		ungrounded := sectionPrompt(domain.SectionResults, pctx, ragContext, "")
		assert.NotContains(t, ungrounded, ragContext)
	})

	t.Run("user data embedded when provided", func(t *testing.T) {
		prompt := sectionPrompt(domain.SectionMethodology, pctx, "", "Dataset: MIMIC-III, 40k records")
		assert.Contains(t, prompt, "Dataset: MIMIC-III, 40k records")
	})

	t.Run("previews embedded", func(t *testing.T) {
		prompt := sectionPrompt(domain.SectionDiscussion, pctx, "", "")
		assert.Contains(t, prompt, "A short abstract.")
		assert.Contains(t, prompt, "A short introduction.")
	})
}

func TestEditPrompt(t *testing.T) {
	prompt := editPrompt(domain.SectionConclusion, "Edge Inference", "the draft text")

	assert.Contains(t, prompt, "Conclusion")
	assert.Contains(t, prompt, "Edge Inference")
	assert.Contains(t, prompt, "the draft text")
	assert.Contains(t, prompt, "250 words")
}

func TestBuildSurveyContext(t *testing.T) {
	papers := []domain.Reference{
		{
			Title:         "First Paper",
			Authors:       []string{"A. One", "B. Two", "C. Three", "D. Four"},
			Year:          2021,
			CitationCount: 12,
			Abstract:      "Abstract one.",
		},
		{Title: "Second Paper", Year: 2022},
	}

	ctx := buildSurveyContext(papers)

	assert.Contains(t, ctx, "Paper 1:")
	assert.Contains(t, ctx, "Title: First Paper")
	// More than three authors collapse to et al.
	assert.Contains(t, ctx, "A. One, B. Two, C. Three et al.")
	assert.NotContains(t, ctx, "D. Four")
	assert.Contains(t, ctx, "Citations: 12")

	assert.Contains(t, ctx, "Paper 2:")
	assert.Contains(t, ctx, "Authors: Unknown")
	assert.Contains(t, ctx, "Abstract: No abstract")
}

func TestBuildSurveyContext_CapsAbstracts(t *testing.T) {
	long := strings.Repeat("y", 600)
	ctx := buildSurveyContext([]domain.Reference{{Title: "Long", Abstract: long}})

	assert.Contains(t, ctx, strings.Repeat("y", 250))
	assert.NotContains(t, ctx, strings.Repeat("y", 251))
}
