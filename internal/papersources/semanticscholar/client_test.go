package semanticscholar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-generator-service/internal/domain"
)

const searchResponseBody = `{
	"total": 2,
	"offset": 0,
	"data": [
		{
			"paperId": "abc123",
			"title": "Edge Inference at Scale",
			"abstract": "We study inference on edge devices.",
			"year": 2022,
			"venue": "IEEE Access",
			"url": "https://www.semanticscholar.org/paper/abc123",
			"citationCount": 42,
			"authors": [{"authorId": "1", "name": "J. Smith"}, {"authorId": "2", "name": "K. Lee"}],
			"externalIds": {"DOI": "10.1109/ACCESS.2022.1234"}
		},
		{
			"paperId": "def456",
			"title": "No Abstract Paper",
			"abstract": "",
			"year": 2021,
			"venue": "",
			"citationCount": 3,
			"authors": []
		}
	]
}`

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:   serverURL,
		RateLimit: 1000,
		BurstSize: 100,
	}, nil)
}

func TestClient_Search(t *testing.T) {
	var receivedQuery, receivedLimit, receivedFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		receivedQuery = r.URL.Query().Get("query")
		receivedLimit = r.URL.Query().Get("limit")
		receivedFields = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponseBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	refs, err := client.Search(context.Background(), "edge computing", 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "edge computing", receivedQuery)
	assert.Equal(t, "10", receivedLimit)
	assert.Contains(t, receivedFields, "abstract")

	first := refs[0]
	assert.Equal(t, "Edge Inference at Scale", first.Title)
	assert.Equal(t, []string{"J. Smith", "K. Lee"}, first.Authors)
	assert.Equal(t, 2022, first.Year)
	assert.Equal(t, "IEEE Access", first.Venue)
	assert.Equal(t, "10.1109/ACCESS.2022.1234", first.DOI)
	assert.Equal(t, 42, first.CitationCount)
	assert.Equal(t, "We study inference on edge devices.", first.Abstract)

	// Missing venue is normalized, empty abstract preserved for filtering upstream.
	second := refs[1]
	assert.Equal(t, "Unknown Venue", second.Venue)
	assert.Empty(t, second.Abstract)
	assert.Empty(t, second.Authors)
}

func TestClient_Search_LimitClamped(t *testing.T) {
	var receivedLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"total": 0, "data": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Equal(t, "100", receivedLimit)

	_, err = client.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, "100", receivedLimit)
}

func TestClient_Search_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "forbidden"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "q", 10)
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Message)
	assert.Equal(t, "Semantic Scholar", apiErr.Source)
}

func TestClient_Search_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClient_Search_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 0, "data": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	refs, err := client.Search(context.Background(), "nothing matches", 10)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, nil)
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	assert.Equal(t, "Semantic Scholar", client.Name())
}
