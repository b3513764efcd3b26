package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-generator-service/internal/domain"
	"github.com/helixir/paper-generator-service/internal/generator"
	"github.com/helixir/paper-generator-service/internal/textproc"
)

// Validation constants.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
	defaultSearchCount = 10
	defaultTitleCount  = 3
)

// generatePaperRequest is the JSON request body for generating a paper.
type generatePaperRequest struct {
	Topic        string           `json:"topic" validate:"required,min=3,max=10000"`
	Title        string           `json:"title" validate:"omitempty,max=500"`
	Authors      []authorRequest  `json:"authors" validate:"required,min=1,max=8,dive"`
	UseGrounding *bool            `json:"use_grounding,omitempty"`
	UserData     *userDataRequest `json:"user_data,omitempty"`
}

type authorRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Affiliation string `json:"affiliation" validate:"required"`
}

type userDataRequest struct {
	Methodology string         `json:"methodology"`
	Dataset     datasetRequest `json:"dataset"`
	Results     string         `json:"results"`
	Findings    string         `json:"findings"`
}

type datasetRequest struct {
	Name    string `json:"name"`
	Size    string `json:"size"`
	Details string `json:"details"`
}

// titleOptionsRequest is the JSON request body for title suggestions.
type titleOptionsRequest struct {
	Description string `json:"description" validate:"required,min=3,max=1000"`
	Count       int    `json:"count" validate:"omitempty,min=1,max=10"`
}

type titleOptionsResponse struct {
	Titles []string `json:"titles"`
}

// searchPapersRequest is the JSON request body for document search.
type searchPapersRequest struct {
	Topic string `json:"topic" validate:"required,min=3,max=1000"`
	Count int    `json:"count" validate:"omitempty,min=1,max=20"`
}

// surveyRequest is the JSON request body for a literature survey.
type surveyRequest struct {
	Topic  string               `json:"topic" validate:"required,min=3,max=1000"`
	Papers []surveyPaperRequest `json:"papers" validate:"max=25,dive"`
}

type surveyPaperRequest struct {
	Title         string   `json:"title" validate:"required"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year"`
	CitationCount int      `json:"citation_count"`
	Abstract      string   `json:"abstract"`
}

type searchPapersResponse struct {
	Papers []domain.Reference `json:"papers"`
	Count  int                `json:"count"`
}

type surveyResponse struct {
	Topic      string `json:"topic"`
	Survey     string `json:"survey"`
	PaperCount int    `json:"paper_count"`
}

// generatePaper handles POST /api/v1/papers.
func (s *Server) generatePaper(w http.ResponseWriter, r *http.Request) {
	var req generatePaperRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	genReq, ok := s.toGeneratorRequest(w, req)
	if !ok {
		return
	}

	paper, err := s.generator.Generate(r.Context(), genReq)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.savePaper(paper)
	writeJSON(w, http.StatusOK, paper)
}

// streamPaper handles POST /api/v1/papers/stream (SSE).
func (s *Server) streamPaper(w http.ResponseWriter, r *http.Request) {
	var req generatePaperRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	genReq, ok := s.toGeneratorRequest(w, req)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for event := range s.generator.GenerateStream(r.Context(), genReq) {
		sendSSEEvent(w, flusher, event)
		if event.Type == domain.EventCompleted && event.Paper != nil {
			s.savePaper(event.Paper)
		}
	}
}

// latestPaper handles GET /api/v1/papers/latest.
func (s *Server) latestPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := s.store.Latest()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// searchPapers handles POST /api/v1/papers/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	var req searchPapersRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = defaultSearchCount
	}

	docs := s.searcher.Search(r.Context(), req.Topic, req.Count)
	writeJSON(w, http.StatusOK, searchPapersResponse{
		Papers: docs,
		Count:  len(docs),
	})
}

// generateSurvey handles POST /api/v1/surveys.
func (s *Server) generateSurvey(w http.ResponseWriter, r *http.Request) {
	var req surveyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	papers := make([]domain.Reference, len(req.Papers))
	for i, p := range req.Papers {
		papers[i] = domain.Reference{
			Title:         p.Title,
			Authors:       p.Authors,
			Year:          p.Year,
			CitationCount: p.CitationCount,
			Abstract:      p.Abstract,
		}
	}

	survey, err := s.backend.GenerateSurvey(r.Context(), req.Topic, papers)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", req.Topic).Msg("survey generation failed")
		writeError(w, http.StatusServiceUnavailable, "survey generation failed")
		return
	}

	writeJSON(w, http.StatusOK, surveyResponse{
		Topic:      req.Topic,
		Survey:     textproc.CleanSurvey(survey),
		PaperCount: len(papers),
	})
}

// titleOptions handles POST /api/v1/titles.
func (s *Server) titleOptions(w http.ResponseWriter, r *http.Request) {
	var req titleOptionsRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = defaultTitleCount
	}

	titles := s.backend.GenerateTitleOptions(r.Context(), req.Description, req.Count)
	writeJSON(w, http.StatusOK, titleOptionsResponse{Titles: titles})
}

// warmup handles POST /api/v1/warmup.
func (s *Server) warmup(w http.ResponseWriter, r *http.Request) {
	if !s.backend.Warm(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// savePaper persists a generated paper. Persistence is best-effort and
// never affects the response.
func (s *Server) savePaper(paper *domain.Paper) {
	if _, err := s.store.Save(paper); err != nil {
		s.logger.Warn().Err(err).Str("paper_id", paper.ID.String()).Msg("paper save failed")
	}
}

// decodeAndValidate reads, decodes and struct-validates a JSON request
// body, writing the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first struct validation failure as a
// caller-readable message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// toGeneratorRequest converts the API request into a pipeline request,
// applying defaults and the user-data size limit.
func (s *Server) toGeneratorRequest(w http.ResponseWriter, req generatePaperRequest) (generator.Request, bool) {
	useGrounding := s.cfg.UseGroundingDefault
	if req.UseGrounding != nil {
		useGrounding = *req.UseGrounding
	}

	authors := make([]domain.Author, len(req.Authors))
	for i, a := range req.Authors {
		authors[i] = domain.Author{
			Name:        a.Name,
			Email:       a.Email,
			Affiliation: a.Affiliation,
		}
	}

	genReq := generator.Request{
		Topic:        strings.TrimSpace(req.Topic),
		Title:        strings.TrimSpace(req.Title),
		Authors:      authors,
		UseGrounding: useGrounding,
	}

	if req.UserData != nil {
		userData := &generator.UserData{
			Methodology: req.UserData.Methodology,
			Dataset: generator.DatasetInfo{
				Name:    req.UserData.Dataset.Name,
				Size:    req.UserData.Dataset.Size,
				Details: req.UserData.Dataset.Details,
			},
			Results:  req.UserData.Results,
			Findings: req.UserData.Findings,
		}
		if userData.TotalChars() > s.cfg.MaxUserDataChars {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("user_data must be at most %d characters in total", s.cfg.MaxUserDataChars))
			return generator.Request{}, false
		}
		genReq.UserData = userData
	}

	return genReq, true
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event domain.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	flusher.Flush()
}
