package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author identifies a paper author.
type Author struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	if a.Affiliation == "" {
		return a.Name
	}
	return a.Name + " (" + a.Affiliation + ")"
}

// Reference is a retrieved external document used for grounding and for
// the reference list. It is immutable once fetched.
type Reference struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year"`
	Venue         string   `json:"venue"`
	DOI           string   `json:"doi,omitempty"`
	URL           string   `json:"url,omitempty"`
	CitationCount int      `json:"citation_count"`
	Abstract      string   `json:"abstract,omitempty"`
}

// IEEEFormat renders the reference as a numbered IEEE-style citation.
func (r Reference) IEEEFormat(index int) string {
	var authorStr string
	switch {
	case len(r.Authors) == 0:
		authorStr = "Unknown"
	case len(r.Authors) <= 3:
		authorStr = strings.Join(r.Authors, ", ")
	default:
		authorStr = strings.Join(r.Authors[:3], ", ") + ", et al."
	}

	// IEEE style places the comma inside the title quotes.
	citation := fmt.Sprintf("[%d] %s, \"%s,\" %s, %d.", index, authorStr, r.Title, r.Venue, r.Year)
	if r.DOI != "" {
		citation += " DOI: " + r.DOI
	}
	return citation
}

// FigureType classifies a figure entry.
type FigureType string

// Supported figure types.
const (
	FigureTypeTable FigureType = "table"
	FigureTypeChart FigureType = "chart"
)

// Figure is a table or chart attached to a paper. Data holds rows for
// tables and label/value pairs for charts; rendering is left to export
// collaborators.
type Figure struct {
	Type    FigureType  `json:"type"`
	Caption string      `json:"caption"`
	Data    interface{} `json:"data"`
	Number  int         `json:"number"`
}

// Key returns the section-mapping key for the figure.
func (f Figure) Key() string {
	if f.Type == FigureTypeTable {
		return fmt.Sprintf("table%d", f.Number)
	}
	return fmt.Sprintf("figure%d", f.Number)
}

// Metadata holds counts and flags computed in the final assembly pass.
type Metadata struct {
	TotalWords     int  `json:"total_words"`
	SectionCount   int  `json:"section_count"`
	ReferenceCount int  `json:"reference_count"`
	FigureCount    int  `json:"figure_count"`
	GroundingUsed  bool `json:"grounding_used"`
	UserDataUsed   bool `json:"user_data_used"`
}

// Paper is a fully assembled research paper. It is immutable after
// assembly and exclusively owned by the caller that requested generation.
type Paper struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Authors     []Author           `json:"authors"`
	Abstract    string             `json:"abstract"`
	Sections    map[string]string  `json:"sections"`
	References  []Reference        `json:"references"`
	Figures     map[string]Figure  `json:"figures"`
	DOI         string             `json:"doi"`
	GeneratedAt time.Time          `json:"generated_at"`
	Metadata    Metadata           `json:"metadata"`
}

// Section returns the finalized text for the given kind, or the empty
// string if absent. Assembled papers always carry every canonical
// section, with placeholders substituted for failures.
func (p *Paper) Section(kind SectionKind) string {
	return p.Sections[string(kind)]
}

// TotalWords counts words across the abstract and every non-reference
// section.
func (p *Paper) TotalWords() int {
	total := len(strings.Fields(p.Abstract))
	for name, content := range p.Sections {
		if name == string(SectionReferences) {
			continue
		}
		total += len(strings.Fields(content))
	}
	return total
}

// HasFailedSections reports whether any section holds a generation
// failure placeholder.
func (p *Paper) HasFailedSections() bool {
	for _, content := range p.Sections {
		if strings.HasPrefix(content, "[") && strings.HasSuffix(content, "generation failed]") {
			return true
		}
	}
	return false
}

// Validate checks structural completeness and returns a list of issues.
// An empty result means the paper passes all structural checks.
func (p *Paper) Validate() []string {
	var issues []string

	if len(strings.TrimSpace(p.Title)) < 10 {
		issues = append(issues, "title is too short or missing")
	}
	if len(p.Authors) == 0 {
		issues = append(issues, "no authors specified")
	}
	if len(strings.Fields(p.Abstract)) < 100 {
		issues = append(issues, "abstract is too short (< 100 words)")
	}
	for _, kind := range SectionOrder {
		if _, ok := p.Sections[string(kind)]; !ok {
			issues = append(issues, "missing section: "+string(kind))
		}
	}
	return issues
}
