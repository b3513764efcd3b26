// Package retriever finds grounding documents for paper generation.
//
// Retrieval is strictly best-effort: a paper is always generated whether
// or not documents are found, so Search never returns an error. Failures
// are logged and surface as an empty result.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/observability"
	"github.com/helixir/paper-generator-service/internal/textproc"
)

// overFetchFactor is how many candidates are requested per usable
// document; results without abstracts are discarded.
const overFetchFactor = 3

// abstractContextCap is the maximum abstract length embedded per document
// in the grounding context.
const abstractContextCap = 500

// stopwords are dropped when simplifying a query that returned nothing.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true,
	"in": true, "on": true, "and": true, "or": true, "with": true,
	"to": true, "using": true, "based": true, "via": true, "by": true,
	"from": true, "at": true, "its": true, "their": true, "is": true,
	"are": true, "be": true, "as": true, "into": true, "towards": true,
	"toward": true, "through": true,
}

// Searcher is the document source the retriever queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Reference, error)
}

// Cache is the retrieval result cache.
type Cache interface {
	Get(query string) ([]domain.Reference, bool)
	Put(query string, docs []domain.Reference)
}

// Retriever searches for documents with caching and query fallbacks.
type Retriever struct {
	source  Searcher
	cache   Cache
	logger  zerolog.Logger
	metrics *observability.Metrics

	// MaxContextChars bounds the grounding context built from results.
	maxContextChars int
}

// New creates a Retriever. cache may be nil to disable caching; metrics
// may be nil in tests.
func New(source Searcher, cache Cache, maxContextChars int, logger zerolog.Logger, metrics *observability.Metrics) *Retriever {
	return &Retriever{
		source:          source,
		cache:           cache,
		logger:          logger.With().Str("component", "retriever").Logger(),
		metrics:         metrics,
		maxContextChars: maxContextChars,
	}
}

// Search returns up to limit documents with non-empty abstracts for the
// query. Cached results are served when fresh. When the full query
// returns nothing, progressively simpler queries are tried. Search never
// returns an error: retrieval failure yields an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, limit int) []domain.Reference {
	start := time.Now()

	if r.cache != nil {
		if docs, ok := r.cache.Get(query); ok {
			if r.metrics != nil {
				r.metrics.RecordCacheHit()
				r.metrics.RecordSearch("hit", len(docs), time.Since(start).Seconds())
			}
			if len(docs) > limit {
				docs = docs[:limit]
			}
			return docs
		}
		if r.metrics != nil {
			r.metrics.RecordCacheMiss()
		}
	}

	docs := r.fetch(ctx, query, limit)

	if len(docs) == 0 {
		if simplified := simplifyQuery(query); simplified != "" && simplified != query {
			r.logger.Debug().Str("query", simplified).Msg("retrying with simplified query")
			docs = r.fetch(ctx, simplified, limit)
		}
	}
	if len(docs) == 0 {
		if minimal := minimalQuery(query); minimal != "" && minimal != query {
			r.logger.Debug().Str("query", minimal).Msg("retrying with minimal query")
			docs = r.fetch(ctx, minimal, limit)
		}
	}

	outcome := "ok"
	if len(docs) == 0 {
		outcome = "empty"
		docs = []domain.Reference{}
	} else if r.cache != nil {
		// Cache under the original query so future lookups skip the
		// fallback chain.
		r.cache.Put(query, docs)
	}
	if r.metrics != nil {
		r.metrics.RecordSearch(outcome, len(docs), time.Since(start).Seconds())
	}

	return docs
}

// fetch over-fetches from the source and keeps the first limit documents
// that carry an abstract.
func (r *Retriever) fetch(ctx context.Context, query string, limit int) []domain.Reference {
	results, err := r.source.Search(ctx, query, limit*overFetchFactor)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("document search failed")
		return nil
	}

	docs := make([]domain.Reference, 0, limit)
	for _, doc := range results {
		if strings.TrimSpace(doc.Abstract) == "" {
			continue
		}
		docs = append(docs, doc)
		if len(docs) == limit {
			break
		}
	}
	return docs
}

// BuildContext renders documents into the grounding context embedded in
// prompts. Long abstracts are capped and the whole context is truncated
// to the configured budget.
func (r *Retriever) BuildContext(docs []domain.Reference) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	for i, doc := range docs {
		abstract := doc.Abstract
		if len(abstract) > abstractContextCap {
			abstract = textproc.Truncate(abstract, abstractContextCap) + "..."
		}

		fmt.Fprintf(&b, "Paper %d: %s\n", i+1, doc.Title)
		if len(doc.Authors) > 0 {
			fmt.Fprintf(&b, "Authors: %s\n", strings.Join(doc.Authors, ", "))
		}
		if doc.Year > 0 {
			fmt.Fprintf(&b, "Year: %d\n", doc.Year)
		}
		fmt.Fprintf(&b, "Abstract: %s\n\n", abstract)

		if b.Len() > r.maxContextChars {
			break
		}
	}

	context := b.String()
	if len(context) > r.maxContextChars {
		context = textproc.Truncate(context, r.maxContextChars) + "\n[context truncated]"
	}
	return context
}

// simplifyQuery strips stopwords from queries longer than five tokens.
func simplifyQuery(query string) string {
	words := strings.Fields(query)
	if len(words) <= 5 {
		return ""
	}

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !stopwords[strings.ToLower(w)] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, " ")
}

// minimalQuery keeps the first few substantive words as a last resort.
func minimalQuery(query string) string {
	words := strings.Fields(query)
	kept := make([]string, 0, 3)
	for _, w := range words {
		if len(w) > 3 && !stopwords[strings.ToLower(w)] {
			kept = append(kept, w)
			if len(kept) == 3 {
				break
			}
		}
	}
	return strings.Join(kept, " ")
}
