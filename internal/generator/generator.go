// Package generator orchestrates paper generation.
//
// One request becomes a pipeline: title resolution, document retrieval,
// abstract, introduction, then the five remaining sections on a bounded
// worker pool. Each section runs a two-pass draft-then-edit generation
// with graceful degradation at every stage: an edit failure falls back
// to the draft, a full section failure becomes a placeholder, and a
// paper is always produced.
package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/figures"
	"github.com/helixir/paper-generator-service/internal/llm"
	"github.com/helixir/paper-generator-service/internal/observability"
	"github.com/helixir/paper-generator-service/internal/textproc"
)

// maxTitleWords is the topic length up to which the topic itself is
// used as the title without a generation call.
const maxTitleWords = 12

// fallbackTitleChars bounds the deterministic title fallback.
const fallbackTitleChars = 80

// LLM is the generation backend the pipeline drives.
type LLM interface {
	GenerateTitle(ctx context.Context, description string) (string, error)
	GenerateAbstract(ctx context.Context, title, groundingContext string) (string, error)
	GenerateSectionDraft(ctx context.Context, kind domain.SectionKind, pctx llm.PaperContext, ragContext, userData string) (string, error)
	EditSection(ctx context.Context, kind domain.SectionKind, title, draft string) (string, error)
}

// Retriever finds grounding documents. Search never errors; an empty
// slice means no grounding is available.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) []domain.Reference
	BuildContext(docs []domain.Reference) string
}

// DatasetInfo is the user-supplied dataset description.
type DatasetInfo struct {
	Name    string `json:"name"`
	Size    string `json:"size"`
	Details string `json:"details"`
}

// UserData carries user-provided experimental details woven into the
// methodology and results prompts.
type UserData struct {
	Methodology string      `json:"methodology"`
	Dataset     DatasetInfo `json:"dataset"`
	Results     string      `json:"results"`
	Findings    string      `json:"findings"`
}

// TotalChars is the combined size of all free-text fields, used for
// request validation.
func (u *UserData) TotalChars() int {
	if u == nil {
		return 0
	}
	return len(u.Methodology) + len(u.Dataset.Name) + len(u.Dataset.Size) +
		len(u.Dataset.Details) + len(u.Results) + len(u.Findings)
}

// forSection renders the user data relevant to one section, or "" when
// nothing applies.
func (u *UserData) forSection(kind domain.SectionKind) string {
	if u == nil {
		return ""
	}

	switch kind {
	case domain.SectionMethodology:
		var parts []string
		if u.Methodology != "" {
			parts = append(parts, u.Methodology)
		}
		if u.Dataset.Name != "" {
			info := "Dataset: " + u.Dataset.Name
			if u.Dataset.Size != "" {
				info += ", " + u.Dataset.Size
			}
			if u.Dataset.Details != "" {
				info += ". " + u.Dataset.Details
			}
			parts = append(parts, info)
		}
		return strings.Join(parts, "\n\n")

	case domain.SectionResults:
		var parts []string
		if u.Results != "" {
			parts = append(parts, u.Results)
		}
		if u.Findings != "" {
			parts = append(parts, "Key Observations: "+u.Findings)
		}
		return strings.Join(parts, "\n\n")
	}
	return ""
}

// Request describes one paper to generate.
type Request struct {
	// Topic is the research topic or description. Required.
	Topic string
	// Title, when set, is used verbatim instead of generating one.
	Title string
	// Authors appear on the paper. Required, validated upstream.
	Authors []domain.Author
	// UseGrounding enables document retrieval for the prompts.
	UseGrounding bool
	// UserData is optional experimental detail for methodology/results.
	UserData *UserData
}

// Config bounds the pipeline.
type Config struct {
	// SectionWorkers is the parallel-section worker pool size.
	SectionWorkers int
	// MinReferences is the reference list floor; shortfalls are topped
	// up with generic references.
	MinReferences int
	// RetrievalLimit is how many grounding documents to request.
	RetrievalLimit int
}

// Generator runs the section pipeline.
type Generator struct {
	llm       LLM
	retriever Retriever
	cfg       Config
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// New creates a Generator. metrics may be nil in tests.
func New(backend LLM, retriever Retriever, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Generator {
	if cfg.SectionWorkers <= 0 {
		cfg.SectionWorkers = 3
	}
	if cfg.MinReferences <= 0 {
		cfg.MinReferences = 15
	}
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = 5
	}
	return &Generator{
		llm:       backend,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger.With().Str("component", "generator").Logger(),
		metrics:   metrics,
	}
}

// Generate produces a complete paper. Section failures degrade to
// placeholders; only an invalid request or a cancelled context fail
// the call.
func (g *Generator) Generate(ctx context.Context, req Request) (*domain.Paper, error) {
	return g.run(ctx, req, nil)
}

// run executes the pipeline, optionally emitting progress events.
func (g *Generator) run(ctx context.Context, req Request, emit func(domain.ProgressEvent)) (*domain.Paper, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	paperID := uuid.New()
	logger := observability.WithPaperContext(g.logger, paperID.String(), req.Topic)
	start := time.Now()
	if g.metrics != nil {
		g.metrics.RecordPaperStarted()
	}

	send := func(event domain.ProgressEvent) {
		if emit == nil {
			return
		}
		event.PaperID = paperID.String()
		event.Timestamp = time.Now().UTC()
		emit(event)
	}

	fail := func(err error) (*domain.Paper, error) {
		if g.metrics != nil {
			g.metrics.RecordPaperFailed(time.Since(start).Seconds())
		}
		logger.Error().Err(err).Msg("paper generation aborted")
		return nil, err
	}

	send(domain.ProgressEvent{Type: domain.EventStarted, Message: req.Topic})
	logger.Info().Bool("grounding", req.UseGrounding).Bool("user_data", req.UserData != nil).
		Msg("starting paper generation")

	title := g.resolveTitle(ctx, req)
	logger.Info().Str("title", title).Msg("title resolved")
	send(domain.ProgressEvent{Type: domain.EventTitle, Message: title})

	var docs []domain.Reference
	var ragContext string
	if req.UseGrounding {
		docs = g.retriever.Search(ctx, req.Topic, g.cfg.RetrievalLimit)
		ragContext = g.retriever.BuildContext(docs)
		logger.Info().Int("documents", len(docs)).Msg("retrieval complete")
	}
	send(domain.ProgressEvent{Type: domain.EventRetrieval, DocCount: len(docs)})

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	abstract := g.generateAbstract(ctx, title, ragContext, logger)
	send(domain.ProgressEvent{Type: domain.EventAbstract})

	sections := make(map[string]string, len(domain.SectionOrder)+1)

	// The introduction is sequential: later sections quote a preview
	// of it and of the abstract.
	introCtx := llm.NewPaperContext(title, abstract, "")
	send(domain.ProgressEvent{Type: domain.EventSectionStarted, Section: string(domain.SectionIntroduction)})
	intro, introFailed := g.generateSection(ctx, domain.SectionIntroduction, introCtx, ragContext, req.UserData, logger)
	sections[string(domain.SectionIntroduction)] = intro
	send(domain.ProgressEvent{Type: domain.EventSectionCompleted, Section: string(domain.SectionIntroduction), Failed: introFailed})

	// Remaining sections share a read-only snapshot and run on a
	// bounded pool. Completion events fire in actual completion order.
	pctx := llm.NewPaperContext(title, abstract, intro)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.SectionWorkers)

	for _, kind := range domain.ParallelSections {
		kind := kind
		group.Go(func() error {
			send(domain.ProgressEvent{Type: domain.EventSectionStarted, Section: string(kind)})
			text, failed := g.generateSection(groupCtx, kind, pctx, ragContext, req.UserData, logger)

			mu.Lock()
			sections[string(kind)] = text
			mu.Unlock()

			send(domain.ProgressEvent{Type: domain.EventSectionCompleted, Section: string(kind), Failed: failed})
			return nil
		})
	}
	// Workers never return errors; waiting only observes cancellation.
	if err := group.Wait(); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	references := buildReferences(docs, title, g.cfg.MinReferences)
	if len(docs) < g.cfg.MinReferences {
		logger.Warn().Int("retrieved", len(docs)).Int("minimum", g.cfg.MinReferences).
			Msg("reference shortfall topped up with generic references")
	}
	sections[string(domain.SectionReferences)] = formatReferences(references)
	send(domain.ProgressEvent{Type: domain.EventReferences, DocCount: len(references)})

	figureMap := g.buildFigures(docs, sections, logger)
	send(domain.ProgressEvent{Type: domain.EventFigures, DocCount: len(figureMap)})

	paper := &domain.Paper{
		ID:          paperID,
		Title:       title,
		Authors:     req.Authors,
		Abstract:    abstract,
		Sections:    sections,
		References:  references,
		Figures:     figureMap,
		DOI:         generateDOI(),
		GeneratedAt: time.Now().UTC(),
	}
	paper.Metadata = domain.Metadata{
		TotalWords:     paper.TotalWords(),
		SectionCount:   len(sections),
		ReferenceCount: len(references),
		FigureCount:    len(figureMap),
		GroundingUsed:  req.UseGrounding,
		UserDataUsed:   req.UserData != nil,
	}

	if g.metrics != nil {
		g.metrics.RecordPaperCompleted(time.Since(start).Seconds(), paper.Metadata.TotalWords)
	}
	logger.Info().Int("words", paper.Metadata.TotalWords).Int("references", len(references)).
		Bool("failed_sections", paper.HasFailedSections()).Dur("elapsed", time.Since(start)).
		Msg("paper generation complete")

	return paper, nil
}

// validateRequest enforces the structural request contract.
func validateRequest(req Request) error {
	if strings.TrimSpace(req.Topic) == "" {
		return &domain.ValidationError{Field: "topic", Message: "topic is required"}
	}
	if len(req.Authors) == 0 {
		return &domain.ValidationError{Field: "authors", Message: "at least one author is required"}
	}
	return nil
}

// resolveTitle picks the paper title: an explicit title verbatim, a
// short topic as-is, a generated title, or a deterministic truncation
// of the topic when generation fails or comes back degenerate.
func (g *Generator) resolveTitle(ctx context.Context, req Request) string {
	if title := strings.TrimSpace(req.Title); title != "" {
		return title
	}

	topic := strings.TrimSpace(req.Topic)
	if len(strings.Fields(topic)) <= maxTitleWords {
		return topic
	}

	title, err := g.llm.GenerateTitle(ctx, topic)
	if err != nil || len(strings.TrimSpace(title)) < 5 {
		g.logger.Warn().Err(err).Msg("title generation failed, using truncated topic")
		return fallbackTitle(topic)
	}
	return title
}

// fallbackTitle truncates the topic to a bounded prefix.
func fallbackTitle(topic string) string {
	return strings.TrimSpace(textproc.Truncate(topic, fallbackTitleChars))
}

// generateAbstract produces the cleaned abstract, degrading to a
// placeholder on failure.
func (g *Generator) generateAbstract(ctx context.Context, title, ragContext string, logger zerolog.Logger) string {
	abstract, err := g.llm.GenerateAbstract(ctx, title, ragContext)
	if err != nil {
		logger.Error().Err(err).Msg("abstract generation failed")
		return "[abstract generation failed]"
	}
	return textproc.CleanAbstract(abstract, title)
}

// generateSection runs the draft-then-edit pipeline for one section and
// returns the final text plus whether the section failed outright.
func (g *Generator) generateSection(ctx context.Context, kind domain.SectionKind, pctx llm.PaperContext, ragContext string, userData *UserData, logger zerolog.Logger) (string, bool) {
	slog := observability.WithSectionContext(logger, string(kind), 0)
	start := time.Now()

	draft, err := g.llm.GenerateSectionDraft(ctx, kind, pctx, ragContext, userData.forSection(kind))
	if err != nil || strings.TrimSpace(draft) == "" {
		slog.Error().Err(err).Msg("section draft failed")
		if g.metrics != nil {
			g.metrics.RecordSectionGenerated(string(kind), "placeholder", time.Since(start).Seconds())
		}
		return kind.Placeholder(), true
	}

	text, err := g.llm.EditSection(ctx, kind, pctx.Title, draft)
	outcome := "ok"
	if err != nil || strings.TrimSpace(text) == "" {
		// The draft covers the content; losing the edit pass only
		// costs polish.
		slog.Warn().Err(err).Msg("edit pass failed, keeping draft")
		text = draft
		outcome = "draft_fallback"
		if g.metrics != nil {
			g.metrics.RecordSectionEditFallback(string(kind))
		}
	}

	cleaned := textproc.Clean(text, kind, pctx.Title)
	if kind.NeedsRestructuring() {
		cleaned = textproc.Restructure(cleaned)
	}
	if textproc.TitleLost(text, cleaned, pctx.Title) {
		slog.Warn().Msg("title mention dropped during cleaning")
	}
	if residual := textproc.FindDanglingTopicRefs(cleaned); len(residual) > 0 {
		slog.Warn().Strs("artifacts", residual).Msg("dangling topic references persist after cleaning")
	}
	text = cleaned

	if g.metrics != nil {
		g.metrics.RecordSectionGenerated(string(kind), outcome, time.Since(start).Seconds())
	}
	slog.Info().Int("words", textproc.CountWords(text)).Str("outcome", outcome).Msg("section complete")
	return text, false
}

// buildFigures derives the comparison table and keyword chart. Figures
// need retrieved documents; without them none are attached.
func (g *Generator) buildFigures(docs []domain.Reference, sections map[string]string, logger zerolog.Logger) map[string]domain.Figure {
	if len(docs) == 0 {
		return map[string]domain.Figure{}
	}

	figureMap := make(map[string]domain.Figure, 2)

	table := domain.Figure{
		Type:    domain.FigureTypeTable,
		Caption: "Performance comparison with state-of-the-art methods",
		Data:    figures.ComparisonTable(docs),
		Number:  1,
	}
	figureMap[table.Key()] = table

	sectionText := make(map[domain.SectionKind]string, len(sections))
	for name, text := range sections {
		if name == string(domain.SectionReferences) {
			continue
		}
		sectionText[domain.SectionKind(name)] = text
	}
	if chartData := figures.KeywordChart(sectionText, 10); chartData != nil {
		chart := domain.Figure{
			Type:    domain.FigureTypeChart,
			Caption: "Keyword frequency analysis",
			Data:    chartData,
			Number:  2,
		}
		figureMap[chart.Key()] = chart
	}

	logger.Debug().Int("figures", len(figureMap)).Msg("figures generated")
	return figureMap
}

// generateDOI fabricates a DOI in the IEEE Access namespace.
func generateDOI() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("10.1109/ACCESS.%d.%s", time.Now().Year(), id)
}
