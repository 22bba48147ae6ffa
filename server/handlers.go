package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/pkg/ingest"
)

const (
	defaultSearchLimit    = 5
	defaultSearchMinScore = 0.5
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

type addDocumentRequest struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content" validate:"required"`
	Metadata map[string]any `json:"metadata"`
}

type searchRequest struct {
	Query    string   `json:"query" validate:"required"`
	Limit    *int     `json:"limit,omitempty" validate:"omitempty,gt=0,lte=100"`
	MinScore *float64 `json:"min_score,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

type askRequest struct {
	Query    string   `json:"query" validate:"required"`
	Limit    *int     `json:"limit,omitempty" validate:"omitempty,gt=0,lte=50"`
	MinScore *float64 `json:"min_score,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

type askResponse struct {
	Answer  string                `json:"answer"`
	Sources []models.SearchResult `json:"sources"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.retriever.Count(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Documents: n})
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if !s.decode(w, r, &req) {
		return
	}

	var (
		doc models.Document
		err error
	)
	if req.ID != "" {
		doc, err = s.retriever.AddWithID(r.Context(), req.ID, req.Content, req.Metadata)
	} else {
		doc, err = s.retriever.Add(r.Context(), req.Content, req.Metadata)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, publicDocument(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.retriever.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, publicDocument(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.retriever.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Document deleted successfully"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.retriever.Search(r.Context(), req.Query,
		intOr(req.Limit, defaultSearchLimit), floatOr(req.MinScore, defaultSearchMinScore))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, publicResults(results))
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if !s.decode(w, r, &req) {
		return
	}

	records, err := s.pipeline.Load(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.pipeline.Ingest(r.Context(), req, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat engine is not configured"})
		return
	}

	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}

	answer, results, err := s.answer(r.Context(), req, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, askResponse{Answer: answer, Sources: publicResults(results)})
}

// answer retrieves context for req and asks the chat engine. With onChunk
// set the answer is streamed.
func (s *Server) answer(ctx context.Context, req askRequest, onChunk func(string) error) (string, []models.SearchResult, error) {
	results, err := s.retriever.Search(ctx, req.Query, intOr(req.Limit, defaultSearchLimit), floatOr(req.MinScore, 0))
	if err != nil {
		return "", nil, err
	}

	var answer string
	if onChunk != nil {
		answer, err = s.chat.ChatStream(ctx, req.Query, results, onChunk)
	} else {
		answer, err = s.chat.Chat(ctx, req.Query, results)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}
	return answer, results, nil
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			err = fmt.Errorf("%s failed on the %q rule", fe.Field(), fe.Tag())
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes before writing the header; a payload that cannot be
// encoded is logged and answered with a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

// Embeddings are internal; responses carry text and metadata only.
func publicDocument(doc models.Document) models.Document {
	doc.Embedding = nil
	return doc
}

func publicResults(results []models.SearchResult) []models.SearchResult {
	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{Document: publicDocument(r.Document), Score: r.Score}
	}
	return out
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
