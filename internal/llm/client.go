// Package llm is the client for the text-generation backend.
//
// The backend speaks the Ollama generate protocol: a single POST to
// /api/generate with the model name, a fully rendered prompt, and
// sampling options, answered with the generated text in one response.
// All prompt construction for paper sections, titles, abstracts and
// literature surveys lives here, keyed on the closed
// domain.SectionKind set.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/observability"
)

// Default values for the generation backend.
const (
	DefaultBaseURL            = "http://localhost:11434"
	DefaultModel              = "llama3.1:8b"
	DefaultTimeout            = 120 * time.Second
	DefaultMaxRetries         = 2
	DefaultRetryBaseDelay     = 2 * time.Second
	DefaultRetryBackoffFactor = 2.0

	providerName = "ollama"

	// warmTimeout bounds the warmup ping, which loads the model but
	// generates almost nothing.
	warmTimeout = 30 * time.Second
)

// generateRequest is the Ollama generate API request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions holds the sampling options.
type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the Ollama generate API response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Request describes one generation call.
type Request struct {
	// Prompt is the task prompt. Sanitized before interpolation.
	Prompt string
	// Temperature is the sampling temperature in [0,1].
	Temperature float64
	// MaxTokens bounds the generated output. Zero means backend default.
	MaxTokens int
	// Context is optional grounding material prepended to the prompt.
	Context string
	// StyleDirective is an optional extra instruction appended after
	// the shared style guide.
	StyleDirective string
	// Operation labels the call for metrics (e.g. "section_draft").
	Operation string
}

// Config holds the parameters needed to create a Client. Defined here
// to avoid importing the config package.
type Config struct {
	BaseURL            string
	Model              string
	Timeout            time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RetryBackoffFactor float64
	// EnforceCompleteSentences trims a trailing unterminated sentence
	// from generated text.
	EnforceCompleteSentences bool
}

// Client generates text through the Ollama generate API with bounded
// retry and exponential backoff.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a generation client. metrics may be nil in tests.
func NewClient(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.RetryBackoffFactor <= 0 {
		cfg.RetryBackoffFactor = DefaultRetryBackoffFactor
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:     cfg,
		logger:  logger.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
		metrics: metrics,
	}
}

// Model returns the model identifier being used.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate runs one generation call with bounded retry. The prompt and
// context are sanitized, wrapped with the plain-text output rules and
// the style guide, and sent to the backend. Transient failures (network
// errors, timeouts, 429, 5xx) are retried with exponential backoff:
// delay = base * factor^attempt.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	op := req.Operation
	if op == "" {
		op = "generate"
	}

	fullPrompt := c.buildPrompt(req)

	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: fullPrompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			TopP:        0.9,
			NumPredict:  req.MaxTokens,
		},
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt - 1)
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).
				Str("operation", op).Msg("generation failed, retrying")
			if c.metrics != nil {
				c.metrics.RecordLLMRetry(op)
			}
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%s: context cancelled during retry wait: %w", providerName, ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := c.doGenerate(ctx, body)
		if err == nil {
			if c.cfg.EnforceCompleteSentences {
				text = ensureCompleteSentence(text)
			}
			if c.metrics != nil {
				c.metrics.RecordLLMRequest(op, time.Since(start).Seconds())
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		// Only retry on transient failures (network errors, 429, 5xx).
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsTransient() {
			if c.metrics != nil {
				c.metrics.RecordLLMRequestFailed(op, errorType(err))
			}
			return "", err
		}
		lastErr = err
	}

	if c.metrics != nil {
		c.metrics.RecordLLMRequestFailed(op, errorType(lastErr))
	}
	return "", fmt.Errorf("%s: exhausted %d attempts: %w", providerName, c.cfg.MaxRetries, lastErr)
}

// Warm loads the model with a minimal generation so the first real
// request does not pay the cold-start cost. Never returns an error;
// false means the backend is not ready.
func (c *Client) Warm(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, warmTimeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:   c.cfg.Model,
		Prompt:  "Test",
		Stream:  false,
		Options: generateOptions{NumPredict: 10},
	})
	if err != nil {
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("model warmup failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// GenerateTitle generates one concise paper title from a topic
// description.
func (c *Client) GenerateTitle(ctx context.Context, description string) (string, error) {
	description = SanitizePrompt(description)

	result, err := c.Generate(ctx, Request{
		Prompt:      titlePrompt(description),
		Temperature: TitleTemperature,
		MaxTokens:   60,
		Operation:   "title",
	})
	if err != nil {
		return "", err
	}
	return cleanTitle(result), nil
}

// GenerateTitleOptions generates count alternative titles. It never
// returns an error: when generation or parsing falls short, the missing
// slots are filled with deterministic variants of the description.
func (c *Client) GenerateTitleOptions(ctx context.Context, description string, count int) []string {
	description = SanitizePrompt(description)
	if count <= 0 {
		count = 3
	}

	result, err := c.Generate(ctx, Request{
		Prompt:      titleOptionsPrompt(description, count),
		Temperature: TitleTemperature,
		MaxTokens:   200,
		Operation:   "title_options",
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("title options generation failed, using fallbacks")
		return fallbackTitles(description, count)
	}

	titles := parseNumberedList(result, count)
	for len(titles) < count {
		titles = append(titles, fallbackTitles(description, count)[len(titles)])
	}
	return titles[:count]
}

// GenerateAbstract generates the paper abstract, stripping any
// conversational preamble the model produces.
func (c *Client) GenerateAbstract(ctx context.Context, title, groundingContext string) (string, error) {
	title = SanitizePrompt(title)

	result, err := c.Generate(ctx, Request{
		Prompt:      abstractPrompt(title),
		Temperature: AbstractTemperature,
		MaxTokens:   400,
		Context:     groundingContext,
		Operation:   "abstract",
	})
	if err != nil {
		return "", err
	}
	return cleanAbstract(result), nil
}

// GenerateSectionDraft runs the first, coverage-oriented pass for one
// section.
func (c *Client) GenerateSectionDraft(ctx context.Context, kind domain.SectionKind, pctx PaperContext, ragContext, userData string) (string, error) {
	return c.Generate(ctx, Request{
		Prompt:         sectionPrompt(kind, pctx, SanitizePrompt(ragContext), SanitizePrompt(userData)),
		Temperature:    Temperature(kind),
		MaxTokens:      MaxTokens(kind),
		StyleDirective: draftStyleDirective,
		Operation:      "section_draft",
	})
}

// EditSection runs the second, style-correcting pass over a draft. The
// draft is embedded as the object to rewrite, at a low temperature.
func (c *Client) EditSection(ctx context.Context, kind domain.SectionKind, title, draft string) (string, error) {
	return c.Generate(ctx, Request{
		Prompt:         editPrompt(kind, title, draft),
		Temperature:    editTemperature,
		MaxTokens:      MaxTokens(kind),
		StyleDirective: editStyleDirective,
		Operation:      "section_edit",
	})
}

// GenerateSurvey generates a standalone literature survey over the
// supplied papers.
func (c *Client) GenerateSurvey(ctx context.Context, topic string, papers []domain.Reference) (string, error) {
	topic = SanitizePrompt(topic)

	return c.Generate(ctx, Request{
		Prompt:      surveyPrompt(topic),
		Temperature: surveyTemperature,
		MaxTokens:   1400,
		Context:     buildSurveyContext(papers),
		Operation:   "survey",
	})
}

// buildPrompt assembles the final prompt: grounding context, task
// prompt, output rules, style guide, and any extra directive. The task
// prompt is trusted (rendered from our own templates with sanitized
// inputs); the grounding context is sanitized again since it carries
// third-party abstracts verbatim.
func (c *Client) buildPrompt(req Request) string {
	prompt := req.Prompt
	groundingContext := SanitizePrompt(req.Context)

	var b strings.Builder
	if groundingContext != "" {
		fmt.Fprintf(&b, "Context from research literature:\n%s\n\nBased on the above research context, %s", groundingContext, prompt)
	} else {
		b.WriteString(prompt)
	}

	b.WriteString("\n\n")
	b.WriteString(plainTextRules)
	b.WriteString("\n\n")
	b.WriteString(styleGuide)

	if req.StyleDirective != "" {
		b.WriteString("\n\n")
		b.WriteString(req.StyleDirective)
	}

	return b.String()
}

// doGenerate performs a single request against the generate endpoint.
func (c *Client) doGenerate(ctx context.Context, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", providerName, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", providerName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &APIError{Provider: providerName, StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", &APIError{Provider: providerName, StatusCode: 0, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("%s: failed to unmarshal response: %w", providerName, err)
	}

	return strings.TrimSpace(genResp.Response), nil
}

// backoffDelay returns base * factor^n.
func (c *Client) backoffDelay(n int) time.Duration {
	return time.Duration(float64(c.cfg.RetryBaseDelay) * math.Pow(c.cfg.RetryBackoffFactor, float64(n)))
}

// ensureCompleteSentence drops a trailing unterminated sentence.
func ensureCompleteSentence(text string) string {
	if text == "" {
		return text
	}
	last := text[len(text)-1]
	if last == '.' || last == '!' || last == '?' {
		return text
	}

	if idx := strings.LastIndexAny(text, ".!?"); idx >= 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return strings.TrimSpace(text)
}

// cleanTitle normalizes a generated title: strips quotes, a leading
// "Title:" label, and keeps only the first line.
func cleanTitle(title string) string {
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.NewReplacer(`"`, "", "'", "").Replace(title)
	title = strings.TrimSpace(title)
	if len(title) >= 6 && strings.EqualFold(title[:6], "title:") {
		title = strings.TrimSpace(title[6:])
	}
	return title
}

var (
	abstractPreambleRe = regexp.MustCompile(`(?is)^(here is|sure,|certainly,|i have generated|the following is).*?(abstract|paper|titled).*?:\s*`)
	abstractLabelRe    = regexp.MustCompile(`(?i)^(abstract|summary)[:\-\s]+`)
)

// cleanAbstract strips conversational preambles and a leading
// "Abstract:" label from a generated abstract.
func cleanAbstract(text string) string {
	text = strings.TrimSpace(text)
	text = abstractPreambleRe.ReplaceAllString(text, "")
	text = abstractLabelRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// numberedItemRe matches list items like "1. Title", "2) Title" or
// "3 - Title".
var numberedItemRe = regexp.MustCompile(`^\d+\s*[.):\-]\s*`)

// parseNumberedList extracts up to count titles from a numbered list.
func parseNumberedList(text string, count int) []string {
	var titles []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !numberedItemRe.MatchString(line) {
			continue
		}
		title := numberedItemRe.ReplaceAllString(line, "")
		title = strings.NewReplacer(`"`, "", "'", "").Replace(title)
		title = strings.TrimSpace(title)
		if title != "" && len(titles) < count {
			titles = append(titles, title)
		}
	}
	return titles
}

// fallbackTitles builds deterministic title variants from a description.
func fallbackTitles(description string, count int) []string {
	words := strings.Fields(description)
	head := func(n int) string {
		if len(words) > n {
			return strings.Join(words[:n], " ")
		}
		return strings.Join(words, " ")
	}

	titles := []string{
		head(10),
		"A Study on " + head(7),
		"Research on " + head(7),
	}
	for len(titles) < count {
		titles = append(titles, head(12))
	}
	return titles[:count]
}

// errorType classifies an error for the failure metric label.
func errorType(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0:
			return "network"
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case apiErr.StatusCode >= 500:
			return "server"
		default:
			return "client"
		}
	}
	return "other"
}
