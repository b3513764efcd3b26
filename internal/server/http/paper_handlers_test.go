package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/generator"
)

type fakeGenerator struct {
	lastReq generator.Request
	paper   *domain.Paper
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, req generator.Request) (*domain.Paper, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.paper, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, req generator.Request) <-chan domain.ProgressEvent {
	f.lastReq = req
	events := make(chan domain.ProgressEvent)
	go func() {
		defer close(events)
		if f.err != nil {
			events <- domain.ProgressEvent{Type: domain.EventFailed, Message: f.err.Error(), Timestamp: time.Now()}
			return
		}
		events <- domain.ProgressEvent{Type: domain.EventStarted, PaperID: f.paper.ID.String(), Timestamp: time.Now()}
		events <- domain.ProgressEvent{Type: domain.EventSectionCompleted, Section: "introduction", Timestamp: time.Now()}
		events <- domain.ProgressEvent{Type: domain.EventCompleted, PaperID: f.paper.ID.String(), Paper: f.paper, Timestamp: time.Now()}
	}()
	return events
}

type fakeSearcher struct {
	docs  []domain.Reference
	query string
	limit int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) []domain.Reference {
	f.query = query
	f.limit = limit
	return f.docs
}

type fakeBackend struct {
	warmOK      bool
	survey      string
	surveyErr   error
	surveyTopic string
	surveyDocs  []domain.Reference
	titles      []string
	titleCount  int
}

func (f *fakeBackend) Warm(ctx context.Context) bool { return f.warmOK }

func (f *fakeBackend) GenerateSurvey(ctx context.Context, topic string, papers []domain.Reference) (string, error) {
	f.surveyTopic = topic
	f.surveyDocs = papers
	if f.surveyErr != nil {
		return "", f.surveyErr
	}
	return f.survey, nil
}

func (f *fakeBackend) GenerateTitleOptions(ctx context.Context, description string, count int) []string {
	f.titleCount = count
	if len(f.titles) > count {
		return f.titles[:count]
	}
	return f.titles
}

type fakeStore struct {
	saved   []*domain.Paper
	latest  *domain.Paper
	saveErr error
}

func (f *fakeStore) Save(paper *domain.Paper) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, paper)
	return "papers/paper_test.json", nil
}

func (f *fakeStore) Latest() (*domain.Paper, error) {
	if f.latest == nil {
		return nil, domain.ErrNotFound
	}
	return f.latest, nil
}

type testFixture struct {
	server    *Server
	generator *fakeGenerator
	searcher  *fakeSearcher
	backend   *fakeBackend
	store     *fakeStore
}

func samplePaper() *domain.Paper {
	return &domain.Paper{
		ID:      uuid.New(),
		Title:   "Edge Inference Acceleration",
		Authors: []domain.Author{{Name: "Dana Reyes", Email: "dana@example.org", Affiliation: "Example University"}},
		Sections: map[string]string{
			"introduction": "Intro text.",
			"references":   `[1] A. Author, "Some Paper," IEEE Access, 2022.`,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func newFixture() *testFixture {
	gen := &fakeGenerator{paper: samplePaper()}
	searcher := &fakeSearcher{}
	backend := &fakeBackend{warmOK: true, survey: "Survey body."}
	store := &fakeStore{}

	srv := NewServer(Config{
		Address:             "127.0.0.1:0",
		MaxUserDataChars:    10000,
		UseGroundingDefault: true,
	}, gen, searcher, backend, store, zerolog.Nop())

	return &testFixture{server: srv, generator: gen, searcher: searcher, backend: backend, store: store}
}

func (f *testFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

const validPaperBody = `{
	"topic": "edge inference acceleration",
	"authors": [{"name": "Dana Reyes", "email": "dana@example.org", "affiliation": "Example University"}]
}`

func TestGeneratePaper(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/papers", validPaperBody)

	require.Equal(t, http.StatusOK, rec.Code)
	var paper domain.Paper
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paper))
	assert.Equal(t, f.generator.paper.ID, paper.ID)
	assert.Equal(t, "Edge Inference Acceleration", paper.Title)

	// Grounding default applies when the request omits use_grounding.
	assert.True(t, f.generator.lastReq.UseGrounding)
	require.Len(t, f.generator.lastReq.Authors, 1)
	assert.Equal(t, "Dana Reyes", f.generator.lastReq.Authors[0].Name)

	// Paper persisted best-effort.
	require.Len(t, f.store.saved, 1)
}

func TestGeneratePaper_GroundingOverride(t *testing.T) {
	f := newFixture()

	body := `{
		"topic": "edge inference acceleration",
		"use_grounding": false,
		"authors": [{"name": "Dana Reyes", "email": "dana@example.org", "affiliation": "Example University"}]
	}`
	rec := f.do(t, http.MethodPost, "/api/v1/papers", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.generator.lastReq.UseGrounding)
}

func TestGeneratePaper_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "missing topic",
			body:    `{"authors": [{"name": "A", "email": "a@b.co", "affiliation": "X"}]}`,
			wantMsg: "topic is required",
		},
		{
			name:    "missing authors",
			body:    `{"topic": "some research topic"}`,
			wantMsg: "authors is required",
		},
		{
			name: "bad author email",
			body: `{"topic": "some research topic",
				"authors": [{"name": "A", "email": "not-an-email", "affiliation": "X"}]}`,
			wantMsg: "email must be a valid email address",
		},
		{
			name: "author missing affiliation",
			body: `{"topic": "some research topic",
				"authors": [{"name": "A", "email": "a@b.co"}]}`,
			wantMsg: "affiliation is required",
		},
		{
			name:    "invalid JSON",
			body:    `{not json`,
			wantMsg: "invalid JSON request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPost, "/api/v1/papers", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
			assert.Empty(t, f.store.saved)
		})
	}
}

func TestGeneratePaper_TooManyAuthors(t *testing.T) {
	f := newFixture()

	var authors []string
	for i := 0; i < 9; i++ {
		authors = append(authors, `{"name": "A", "email": "a@b.co", "affiliation": "X"}`)
	}
	body := `{"topic": "some research topic", "authors": [` + strings.Join(authors, ",") + `]}`

	rec := f.do(t, http.MethodPost, "/api/v1/papers", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePaper_UserDataTooLarge(t *testing.T) {
	f := newFixture()

	big := strings.Repeat("x", 10001)
	body := `{
		"topic": "some research topic",
		"authors": [{"name": "A", "email": "a@b.co", "affiliation": "X"}],
		"user_data": {"methodology": "` + big + `"}
	}`
	rec := f.do(t, http.MethodPost, "/api/v1/papers", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_data must be at most 10000 characters")
}

func TestGeneratePaper_UserDataForwarded(t *testing.T) {
	f := newFixture()

	body := `{
		"topic": "some research topic",
		"authors": [{"name": "A", "email": "a@b.co", "affiliation": "X"}],
		"user_data": {
			"methodology": "two-stage pipeline",
			"dataset": {"name": "ImageNet", "size": "1.2M", "details": "standard split"},
			"results": "81.4% top-1",
			"findings": "quantization is cheap"
		}
	}`
	rec := f.do(t, http.MethodPost, "/api/v1/papers", body)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.generator.lastReq.UserData)
	assert.Equal(t, "two-stage pipeline", f.generator.lastReq.UserData.Methodology)
	assert.Equal(t, "ImageNet", f.generator.lastReq.UserData.Dataset.Name)
}

func TestGeneratePaper_GeneratorValidationError(t *testing.T) {
	f := newFixture()
	f.generator.err = domain.NewValidationError("topic", "topic is required")

	rec := f.do(t, http.MethodPost, "/api/v1/papers", validPaperBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePaper_SaveFailureStillResponds(t *testing.T) {
	f := newFixture()
	f.store.saveErr = errors.New("disk full")

	rec := f.do(t, http.MethodPost, "/api/v1/papers", validPaperBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamPaper(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/papers/stream", validPaperBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: started\n")
	assert.Contains(t, body, "event: section_completed\n")
	assert.Contains(t, body, "event: completed\n")
	assert.Contains(t, body, `"title":"Edge Inference Acceleration"`)

	// Terminal event triggers persistence.
	require.Len(t, f.store.saved, 1)
}

func TestStreamPaper_ValidationErrorIsPlainJSON(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/papers/stream", `{"topic": "x"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestLatestPaper(t *testing.T) {
	f := newFixture()
	f.store.latest = samplePaper()

	rec := f.do(t, http.MethodGet, "/api/v1/papers/latest", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var paper domain.Paper
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paper))
	assert.Equal(t, f.store.latest.ID, paper.ID)
}

func TestLatestPaper_NoneSaved(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/papers/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchPapers(t *testing.T) {
	f := newFixture()
	f.searcher.docs = []domain.Reference{
		{Title: "Found Paper", Year: 2023, Abstract: "An abstract."},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/papers/search", `{"topic": "edge inference"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchPapersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Found Paper", resp.Papers[0].Title)

	// Omitted count falls back to the default.
	assert.Equal(t, defaultSearchCount, f.searcher.limit)
	assert.Equal(t, "edge inference", f.searcher.query)
}

func TestSearchPapers_CountBounds(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/papers/search", `{"topic": "edge inference", "count": 21}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/papers/search", `{"topic": "edge inference", "count": 20}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, f.searcher.limit)
}

func TestGenerateSurvey(t *testing.T) {
	f := newFixture()
	f.backend.survey = "## Introduction\nThe field delves into many areas."

	body := `{
		"topic": "federated learning",
		"papers": [{"title": "Paper One", "authors": ["A. One"], "year": 2022, "abstract": "Text."}]
	}`
	rec := f.do(t, http.MethodPost, "/api/v1/surveys", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp surveyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "federated learning", resp.Topic)
	assert.Equal(t, 1, resp.PaperCount)
	// Survey text passes through the survey cleaner.
	assert.NotContains(t, resp.Survey, "##")
	assert.NotContains(t, resp.Survey, "delves into")

	require.Len(t, f.backend.surveyDocs, 1)
	assert.Equal(t, "Paper One", f.backend.surveyDocs[0].Title)
}

func TestTitleOptions(t *testing.T) {
	f := newFixture()
	f.backend.titles = []string{
		"Adaptive Scheduling for Edge Inference",
		"Latency-Aware Model Placement at the Edge",
		"Edge Inference Under Resource Constraints",
		"A Fourth Title That Should Be Cut",
	}

	rec := f.do(t, http.MethodPost, "/api/v1/titles", `{"description": "edge inference scheduling"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp titleOptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Titles, 3)
	assert.Equal(t, 3, f.backend.titleCount)

	rec = f.do(t, http.MethodPost, "/api/v1/titles", `{"description": "edge inference scheduling", "count": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Titles, 2)

	rec = f.do(t, http.MethodPost, "/api/v1/titles", `{"description": "ok topic", "count": 11}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/titles", `{"count": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateSurvey_BackendFailure(t *testing.T) {
	f := newFixture()
	f.backend.surveyErr = errors.New("backend down")

	rec := f.do(t, http.MethodPost, "/api/v1/surveys", `{"topic": "federated learning"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWarmup(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/warmup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	f.backend.warmOK = false
	rec = f.do(t, http.MethodPost, "/api/v1/warmup", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorrelationIDHeader(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
}
