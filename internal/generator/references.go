package generator

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/helixir/paper-generator-service/internal/domain"
)

// retrievedReferenceCap is how many retrieved documents enter the
// reference list before generic references top it up.
const retrievedReferenceCap = 5

// genericTitleTemplates produce plausible reference titles around the
// paper's keyword phrase.
var genericTitleTemplates = []string{
	"Recent Advances in %s: A Comprehensive Survey",
	"Deep Learning Approaches for %s Applications",
	"%s: State-of-the-Art Methods and Future Directions",
	"A Systematic Review of %s Techniques",
	"Novel Architectures for %s Systems",
	"Transformer-Based Methods in %s",
	"Comparative Analysis of %s Algorithms",
	"Automated %s Using Machine Learning",
	"Multi-Modal Approaches to %s",
	"Attention Mechanisms for Improved %s",
	"Scalable Solutions for %s Challenges",
	"Optimization Strategies in %s",
	"Robust %s Methods for Real-World Applications",
	"Explainable AI for %s",
	"Transfer Learning in %s Domains",
}

var genericVenues = []string{
	"IEEE Transactions on Pattern Analysis and Machine Intelligence",
	"International Conference on Computer Vision (ICCV)",
	"Conference on Neural Information Processing Systems (NeurIPS)",
	"International Conference on Machine Learning (ICML)",
	"IEEE Transactions on Industrial Informatics",
	"ACM Computing Surveys",
	"International Journal of Computer Vision",
	"Computer Vision and Pattern Recognition (CVPR)",
	"European Conference on Computer Vision (ECCV)",
	"IEEE Access",
	"Nature Machine Intelligence",
	"Journal of Machine Learning Research",
}

var genericAuthorPools = [][]string{
	{"Smith", "Johnson", "Williams"},
	{"Zhang", "Li", "Wang"},
	{"Kumar", "Patel", "Singh"},
	{"Garcia", "Martinez", "Rodriguez"},
	{"Kim", "Park", "Lee"},
}

// titleStopwords are skipped when deriving the keyword phrase from a
// paper title.
var titleStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"for": true, "to": true, "of": true, "and": true, "using": true,
	"with": true,
}

// buildReferences assembles the reference list: up to five retrieved
// documents first, topped up to minRefs with deterministic generic
// references derived from the title.
func buildReferences(retrieved []domain.Reference, title string, minRefs int) []domain.Reference {
	n := len(retrieved)
	if n > retrievedReferenceCap {
		n = retrievedReferenceCap
	}
	references := make([]domain.Reference, 0, minRefs)
	references = append(references, retrieved[:n]...)

	if needed := minRefs - len(references); needed > 0 {
		references = append(references, genericReferences(title, needed)...)
	}
	return references
}

// genericReferences fabricates count filler references themed around
// the title's keyword phrase. The output is deterministic for a given
// title, count and year.
func genericReferences(title string, count int) []domain.Reference {
	phrase := keywordPhrase(title)
	currentYear := time.Now().Year()

	refs := make([]domain.Reference, 0, count)
	for i := 0; i < count; i++ {
		pool := genericAuthorPools[i%len(genericAuthorPools)]
		authors := make([]string, len(pool))
		for j, name := range pool {
			authors[j] = name[:1] + ". " + name
		}

		refs = append(refs, domain.Reference{
			Title:         fmt.Sprintf(genericTitleTemplates[i%len(genericTitleTemplates)], phrase),
			Authors:       authors,
			Year:          currentYear - (i % 8) - 1,
			Venue:         genericVenues[i%len(genericVenues)],
			DOI:           fmt.Sprintf("10.%d/%d.%d", 1000+i, currentYear-(i%8), 1000+i),
			CitationCount: max(10, 100-i*7),
		})
	}
	return refs
}

// keywordPhrase extracts up to three substantive title words, title-
// cased, as the topic phrase for generic references.
func keywordPhrase(title string) string {
	var kept []string
	for _, w := range strings.Fields(title) {
		if len(w) > 3 && !titleStopwords[strings.ToLower(w)] {
			kept = append(kept, w)
			if len(kept) == 3 {
				break
			}
		}
	}
	if len(kept) == 0 {
		return "Advanced Research"
	}
	return titleCase(strings.Join(kept, " "))
}

// titleCase upper-cases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// formatReferences renders the numbered IEEE citation list that becomes
// the references section.
func formatReferences(references []domain.Reference) string {
	lines := make([]string, len(references))
	for i, ref := range references {
		lines[i] = ref.IEEEFormat(i + 1)
	}
	return strings.Join(lines, "\n")
}
