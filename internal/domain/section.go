package domain

// SectionKind identifies one of the canonical paper sections. The set is
// closed: every consumer that switches on SectionKind handles all values,
// so adding a section is a compile-visible change rather than a missing
// map entry at runtime.
type SectionKind string

// Canonical section kinds in their fixed document order.
const (
	SectionIntroduction     SectionKind = "introduction"
	SectionLiteratureReview SectionKind = "literature_review"
	SectionMethodology      SectionKind = "methodology"
	SectionResults          SectionKind = "results"
	SectionDiscussion       SectionKind = "discussion"
	SectionConclusion       SectionKind = "conclusion"
	SectionReferences       SectionKind = "references"
)

// SectionOrder is the canonical ordering of generated sections, excluding
// the references section which is assembled rather than generated.
var SectionOrder = []SectionKind{
	SectionIntroduction,
	SectionLiteratureReview,
	SectionMethodology,
	SectionResults,
	SectionDiscussion,
	SectionConclusion,
}

// ParallelSections lists the sections that are independent of each other
// once the title, abstract and introduction exist.
var ParallelSections = []SectionKind{
	SectionLiteratureReview,
	SectionMethodology,
	SectionResults,
	SectionDiscussion,
	SectionConclusion,
}

// Title returns the human-readable heading for the section.
func (k SectionKind) Title() string {
	switch k {
	case SectionIntroduction:
		return "Introduction"
	case SectionLiteratureReview:
		return "Literature Review"
	case SectionMethodology:
		return "Methodology"
	case SectionResults:
		return "Results"
	case SectionDiscussion:
		return "Discussion"
	case SectionConclusion:
		return "Conclusion"
	case SectionReferences:
		return "References"
	}
	return string(k)
}

// FirstPersonExempt reports whether first-person phrasing is tolerated in
// this section. Methodology and results describe what was done and keep
// their technical voice untouched.
func (k SectionKind) FirstPersonExempt() bool {
	return k == SectionMethodology || k == SectionResults
}

// NeedsRestructuring reports whether the section prompt asks for
// subsections, bullets or pseudocode and therefore needs the structural
// formatter after cleaning.
func (k SectionKind) NeedsRestructuring() bool {
	return k == SectionMethodology || k == SectionResults
}

// UsesGrounding reports whether the section prompt embeds the retrieved
// literature context.
func (k SectionKind) UsesGrounding() bool {
	switch k {
	case SectionIntroduction, SectionLiteratureReview, SectionDiscussion:
		return true
	}
	return false
}

// Placeholder returns the fixed text substituted when generation of the
// section fails irrecoverably.
func (k SectionKind) Placeholder() string {
	return "[" + string(k) + " generation failed]"
}

// ValidSectionKind reports whether s names a generated section.
func ValidSectionKind(s string) bool {
	for _, k := range SectionOrder {
		if string(k) == s {
			return true
		}
	}
	return false
}
