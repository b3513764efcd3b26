package llm

import (
	"fmt"
	"strings"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/textproc"
)

// tokenMultiplier converts a word target into a token budget.
const tokenMultiplier = 1.8

// Sampling temperatures per generation task.
const (
	TitleTemperature    = 0.8
	AbstractTemperature = 0.7
	editTemperature     = 0.3
	surveyTemperature   = 0.7
)

// sectionWordTargets are the target word counts per section.
var sectionWordTargets = map[domain.SectionKind]int{
	domain.SectionIntroduction:     350,
	domain.SectionLiteratureReview: 400,
	domain.SectionMethodology:      350,
	domain.SectionResults:          300,
	domain.SectionDiscussion:       350,
	domain.SectionConclusion:       250,
}

// sectionTemperatures are the sampling temperatures for the draft pass
// per section. Factual sections run cooler than narrative ones.
var sectionTemperatures = map[domain.SectionKind]float64{
	domain.SectionIntroduction:     0.7,
	domain.SectionLiteratureReview: 0.6,
	domain.SectionMethodology:      0.5,
	domain.SectionResults:          0.5,
	domain.SectionDiscussion:       0.7,
	domain.SectionConclusion:       0.7,
}

// WordTarget returns the target word count for a section.
func WordTarget(kind domain.SectionKind) int {
	if target, ok := sectionWordTargets[kind]; ok {
		return target
	}
	return 300
}

// Temperature returns the draft-pass sampling temperature for a section.
func Temperature(kind domain.SectionKind) float64 {
	if temp, ok := sectionTemperatures[kind]; ok {
		return temp
	}
	return 0.7
}

// MaxTokens returns the generation token budget for a section.
func MaxTokens(kind domain.SectionKind) int {
	return int(float64(WordTarget(kind)) * tokenMultiplier)
}

// styleGuide nudges the model away from its most recognizable writing
// habits. Appended to every content-generation prompt.
const styleGuide = `STYLE GUIDELINES:
1. VARIETY: Vary sentence length significantly. Mix short, punchy sentences with longer, complex ones.
2. VOCABULARY: Avoid these buzzwords: delve, underscore, pivotal, realm, tapestry, landscape, leverage, intricate, multifaceted, paramount.
3. TONE: Write with a specific, opinionated academic voice. Avoid generic neutrality.
4. TRANSITIONS: Avoid robotic transitions like "Furthermore", "Moreover", "In conclusion". Use natural flow.
5. STRUCTURE: Do not use perfect symmetry in paragraphs. Make it feel organic.`

// plainTextRules are the output-format constraints shared by every
// content-generation prompt.
const plainTextRules = `OUTPUT RULES:
1. Write ONLY plain text content - NO markdown formatting
2. NO headers with ### or ##
3. NO bold text with ** or *
4. NO bullet points or numbered lists
5. Write in continuous prose paragraphs only
6. End with a complete sentence (proper punctuation)
7. Be specific and avoid generic placeholder statements
8. Do NOT repeat the section title
9. Do NOT use asterisks or hashtags anywhere
10. NEVER leave blank placeholders - always use complete specific terms
11. When referring to topics, use the full specific subject name`

// Style directives for the two generation passes.
const (
	// draftStyleDirective asks for full coverage without polish.
	draftStyleDirective = `This is a first draft. Prioritize covering every requested content point completely; do not worry about polish. Write naturally, even casually, as long as every point is addressed with specifics.`

	// editStyleDirective governs the rewrite pass.
	editStyleDirective = `Rewrite in a formal academic register. Preserve every citation marker (like [1], [2]), every number, and every technical claim exactly as given. Improve tone, flow, and word choice only. Do not add new claims and do not drop content.`
)

// PaperContext is the read-only snapshot of previously generated
// material handed to each section worker.
type PaperContext struct {
	Title           string
	AbstractPreview string
	IntroPreview    string
}

// NewPaperContext builds a snapshot with the abstract and introduction
// trimmed to short previews.
func NewPaperContext(title, abstract, introduction string) PaperContext {
	return PaperContext{
		Title:           title,
		AbstractPreview: wordPreview(abstract, 60),
		IntroPreview:    wordPreview(introduction, 50),
	}
}

// render produces the shared paper-context block embedded in section
// prompts.
func (pc PaperContext) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paper Title: %s\n", pc.Title)
	fmt.Fprintf(&b, "REMINDER: The research topic is '%s'. When referring to the research area, application domain, or field of study, ALWAYS use this specific subject. Never leave it blank or use vague terms.\n", pc.Title)
	if pc.AbstractPreview != "" {
		fmt.Fprintf(&b, "\nAbstract (preview): %s...\n", pc.AbstractPreview)
	}
	if pc.IntroPreview != "" {
		fmt.Fprintf(&b, "\nIntroduction (preview): %s...\n", pc.IntroPreview)
	}
	return b.String()
}

// wordPreview returns the first n words of text.
func wordPreview(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// titlePrompt asks for a single concise paper title.
func titlePrompt(description string) string {
	return fmt.Sprintf(`Generate ONE concise academic research paper title from this description:

"%s"

Rules:
- Maximum 12 words
- Professional academic tone
- Capture core research focus
- No quotation marks or extra formatting
- Title case capitalization

Generate ONLY the title, nothing else.`, description)
}

// titleOptionsPrompt asks for count alternative titles as a numbered list.
func titleOptionsPrompt(description string, count int) string {
	return fmt.Sprintf(`Generate %d different concise academic research paper titles from this description:

"%s"

Rules for EACH title:
- Maximum 18 words
- MUST be a complete, standalone title that makes sense on its own
- DO NOT end mid-sentence or with incomplete phrases
- Professional academic tone
- Each title should emphasize a different aspect of the research
- No quotation marks or extra formatting
- Title case capitalization

Output format (exactly like this):
1. [First Title]
2. [Second Title]
3. [Third Title]

Generate ONLY the numbered list of titles, nothing else.`, count, description)
}

// abstractPrompt asks for a structured abstract of roughly
// abstractPromptWords words.
const abstractPromptWords = 220

func abstractPrompt(title string) string {
	return fmt.Sprintf(`Write a comprehensive %d-word abstract for a research paper titled:
"%s"

The abstract must cover, in order: background and why the area of "%s" matters (3 sentences); the specific unsolved problem and limitations of existing approaches (2 sentences); the objectives of this research (2 sentences); the methodology, dataset and key techniques (3 sentences); main quantitative findings with specific metrics and baseline comparisons (3 sentences); significance and broader implications (2 sentences).

Rules:
- MUST be about %d words
- MUST end with a complete sentence about impact
- Use past tense for completed work
- Include specific numerical results
- Always use the complete topic "%s" - never leave it blank
- NEVER write "applications in" without specifying the application
- Output ONLY the abstract text. Do NOT start with "Here is...", "This paper...", "Abstract:", or any other introductory phrase.

Write the complete abstract now:`, abstractPromptWords, title, title, abstractPromptWords, title)
}

// sectionPrompt builds the draft-pass prompt for one section.
func sectionPrompt(kind domain.SectionKind, pctx PaperContext, ragContext, userData string) string {
	target := WordTarget(kind)
	title := pctx.Title

	var b strings.Builder
	fmt.Fprintf(&b, "Write the %s section for this research paper.\n\n", kind.Title())
	b.WriteString(pctx.render())
	b.WriteString("\n")

	if ragContext != "" && kind.UsesGrounding() {
		fmt.Fprintf(&b, "Research literature context:\n%s\n\n", ragContext)
		b.WriteString("CITATION RULE: You MUST use IEEE style citations like [1], [2] when referring to the provided research context. Do NOT use (Author, Year).\n\n")
	}
	if userData != "" {
		fmt.Fprintf(&b, "USER-PROVIDED EXPERIMENTAL DETAILS (USE THESE EXACT DETAILS):\n%s\n\nIntegrate ALL the details above. Use their specific numbers, tools, and procedures exactly as given.\n\n", userData)
	}

	switch kind {
	case domain.SectionIntroduction:
		fmt.Fprintf(&b, `Write a %d-word Introduction covering:
1. Opening context (3-4 sentences): the broader research area of "%s", why it matters, and the current state of the field.
2. Problem statement (3 sentences): specific challenges in "%s" and limitations of existing approaches.
3. Research objectives (2 sentences): a clear "This research aims to..." statement with specific goals.
4. Paper organization (1 sentence): a brief overview of the remaining sections.

Use third person ("This research", never "My research"). Use present tense for the current state and past tense for previous work. End with a complete sentence about paper structure.`, target, title, title)

	case domain.SectionLiteratureReview:
		fmt.Fprintf(&b, `Write a %d-word Literature Review covering:
1. Overview (2 sentences): start with "Research on %s encompasses..." or similar.
2. Key research areas (4 paragraphs): for each paper in the context, write what it explores and contributes, citing it as [n].
3. Comparative analysis (1 paragraph): compare the approaches.
4. Research gaps (1 paragraph): what remains unaddressed in %s research.

Whenever you write about research work, always complete the phrase with the full topic "%s". Never write "work on" or "research on" followed by nothing. Cite every paper discussed with an IEEE marker like [1].`, target, title, title, title)

	case domain.SectionMethodology:
		fmt.Fprintf(&b, `Write a %d-word Methodology section covering:
1. Research design (2-3 sentences): MUST open with "This research employed [approach type] to investigate %s using [specific methods]."
2. Data collection (1-2 paragraphs): dataset name, source, size, characteristics, selection criteria, preprocessing steps.
3. Methods and techniques (2-3 paragraphs): specific algorithms, frameworks and tools with version numbers, parameters and configurations, architecture details. Include every user-provided detail.
4. Evaluation metrics (1 paragraph): metrics used and the validation approach.

Use past tense ("The research used", "The model was trained"). Use third person. Be specific with all technical details; no vague statements like "various techniques were used". The opening sentence must contain the complete phrase "%s".`, target, title, title)

	case domain.SectionResults:
		fmt.Fprintf(&b, `Write a %d-word Results section covering:
1. Overview (2 sentences): summary and structure of the results for "%s" experiments.
2. Primary results (3 paragraphs): main quantitative findings with specific metrics (accuracy, precision, F1-score), referencing "as shown in Table 1" and "illustrated in Figure 1", compared against baselines.
3. Detailed analysis (2 paragraphs): performance across conditions, statistical significance, strengths and weaknesses.
4. Comparative results (1 paragraph): percentage improvements over state-of-the-art methods in "%s".

Use REALISTIC quantitative values (e.g., accuracy 92.4%%, precision 0.91). Use past tense ("The model achieved", "Results showed"). If user data was provided, use their actual metrics.`, target, title, title)

	case domain.SectionDiscussion:
		fmt.Fprintf(&b, `Write a %d-word Discussion section covering:
1. Interpretation (2 paragraphs): what the results mean for "%s" and why they were obtained, connected back to the research objectives.
2. Comparison with literature (2 paragraphs): how the results compare with previous work on "%s", citing context papers as [n], and what is novel.
3. Implications (1 paragraph): practical and theoretical contributions to the "%s" domain.
4. Limitations (1 paragraph): honest limitations and factors affecting generalizability.

Be analytical and critical. Use present tense for interpretations, past tense for results. Use third person.`, target, title, title, title)

	case domain.SectionConclusion:
		fmt.Fprintf(&b, `Write a %d-word Conclusion section covering:
1. Summary (1 paragraph): what this research on "%s" did and found. No new information.
2. Contributions (1 paragraph): the key contributions to the "%s" field.
3. Future work (1 paragraph): open questions in "%s" to address next.
4. Closing statement (1 sentence): broader impact, ending on a strong, forward-looking note.

Use past tense for what was done and future tense for future work. Use third person. End with a complete, strong concluding sentence.`, target, title, title, title)

	default:
		fmt.Fprintf(&b, "Write a %d-word %s section for the paper titled \"%s\".", target, kind.Title(), title)
	}

	return b.String()
}

// editPrompt builds the edit-pass prompt that rewrites a draft.
func editPrompt(kind domain.SectionKind, title, draft string) string {
	return fmt.Sprintf(`Below is a draft of the %s section of a research paper titled "%s".

Draft:
%s

Rewrite this draft into its final form. Target roughly %d words.`, kind.Title(), title, draft, WordTarget(kind))
}

// surveyPrompt asks for a standalone literature survey over the papers
// already rendered into the grounding context.
func surveyPrompt(topic string) string {
	return fmt.Sprintf(`Write a comprehensive literature survey on "%s" based on the research papers provided above.

Structure the survey with these sections, each section name on its own line:

Introduction
Write 2-3 paragraphs introducing the research area "%s", its importance, and the scope of this survey.

Summary of Key Papers and Their Contributions
For each major paper on "%s", describe the research objectives, methodology, key findings, and contributions. Write in continuous prose paragraphs.

Common Themes and Approaches
Discuss the common methodologies and techniques used across the papers, grouping related work together.

Research Gaps and Opportunities
Discuss what has not been addressed in "%s" research, limitations of existing work, and future directions.

Conclusion
Summarize the state of the "%s" field and key takeaways from the literature.

Rules:
- Plain text prose paragraphs only; no markdown, lists, or numbered items
- Separate paragraphs with double line breaks
- Formal academic language
- Target 800-1000 words total
- Reference specific papers by author names and years
- Always use the complete topic name "%s" when referring to the field

Begin the literature survey:`, topic, topic, topic, topic, topic, topic)
}

// buildSurveyContext renders the supplied papers into the grounding
// block for the survey prompt.
func buildSurveyContext(papers []domain.Reference) string {
	var b strings.Builder
	b.WriteString("Research papers retrieved:\n\n")
	for i, paper := range papers {
		authors := paper.Authors
		suffix := ""
		if len(authors) > 3 {
			authors = authors[:3]
			suffix = " et al."
		}
		authorsStr := strings.Join(authors, ", ") + suffix
		if authorsStr == "" {
			authorsStr = "Unknown"
		}

		abstract := paper.Abstract
		if abstract == "" {
			abstract = "No abstract"
		} else if len(abstract) > 250 {
			abstract = textproc.Truncate(abstract, 250)
		}

		fmt.Fprintf(&b, "Paper %d:\nTitle: %s\nAuthors: %s\nYear: %d\nCitations: %d\nAbstract: %s\n\n",
			i+1, paper.Title, authorsStr, paper.Year, paper.CitationCount, abstract)
	}
	return b.String()
}
