package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the maximum results per search request; the
	// Graph API caps limit at 100.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,venue,url,authors,citationCount"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// Logger receives HTTP retry diagnostics. The zero value logs
	// nothing.
	Logger zerolog.Logger
}

// Client searches the Semantic Scholar Graph API.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	// Apply defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	// Create HTTP client if not provided
	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Logger:       cfg.Logger,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// Search queries Semantic Scholar for papers matching query and returns
// up to limit references.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Reference, error) {
	searchURL, err := c.buildSearchURL(query, limit)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return convertToReferences(searchResp.Data), nil
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(query string, limit int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", query)
	q.Set("fields", paperFields)

	if limit <= 0 || limit > DefaultMaxResults {
		limit = DefaultMaxResults
	}
	q.Set("limit", strconv.Itoa(limit))

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	// Try to parse as JSON error
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertToReferences maps API paper results to domain references.
func convertToReferences(results []PaperResult) []domain.Reference {
	refs := make([]domain.Reference, 0, len(results))
	for _, result := range results {
		refs = append(refs, convertToReference(result))
	}
	return refs
}

// convertToReference maps a single API paper result to a domain reference.
func convertToReference(result PaperResult) domain.Reference {
	ref := domain.Reference{
		Title:         result.Title,
		Year:          result.Year,
		Venue:         result.Venue,
		URL:           result.URL,
		CitationCount: result.CitationCount,
		Abstract:      result.Abstract,
	}
	if ref.Venue == "" {
		ref.Venue = "Unknown Venue"
	}
	if result.ExternalIDs != nil {
		ref.DOI = result.ExternalIDs.DOI
	}
	for _, a := range result.Authors {
		if a.Name != "" {
			ref.Authors = append(ref.Authors, a.Name)
		}
	}
	return ref
}
