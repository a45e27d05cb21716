// Package api exposes the pipeline over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/pipeline"
	"github.com/kalvix/mailrag/internal/record"
	"github.com/kalvix/mailrag/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// excerptLen caps how much record content is echoed back in citations.
const excerptLen = 500

// Pinger reports record source reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the handler's collaborators.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Builder  *store.Builder
	Store    *store.Store
	Source   Pinger // optional; nil skips the source health probe
}

// NewHandler returns the HTTP handler for the query API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Post("/query", handleQuery(deps))
	r.Post("/load_user_data", handleLoadUserData(deps))

	return r
}

// QueryRequest is the /query request body.
type QueryRequest struct {
	Query   string        `json:"query"`
	UserID  string        `json:"user_id"`
	History []llm.Message `json:"conversation_history,omitempty"`
	TopK    int           `json:"top_k,omitempty"`
}

// CitedRecord identifies one record the answer was grounded in.
type CitedRecord struct {
	ID             string `json:"id"`
	DocumentID     string `json:"document_id,omitempty"`
	Title          string `json:"title"`
	ContentExcerpt string `json:"content_excerpt"`
	PageNumber     int    `json:"page_number,omitempty"`
	SourceType     string `json:"source_type"`
}

// QueryResponse is the /query response body.
type QueryResponse struct {
	Answer    string        `json:"answer"`
	Documents []CitedRecord `json:"documents"`
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		answer, err := deps.Pipeline.Answer(r.Context(), pipeline.Query{
			Text:    req.Query,
			UserID:  req.UserID,
			History: req.History,
			TopK:    req.TopK,
		})
		if err != nil {
			writeQueryError(w, err)
			return
		}

		resp := QueryResponse{
			Answer:    answer.Text,
			Documents: make([]CitedRecord, 0, len(answer.Cited)),
		}
		for _, s := range answer.Cited {
			resp.Documents = append(resp.Documents, toCited(s))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// writeQueryError maps pipeline failures onto the wire. Embedding and
// model failures are retryable upstream errors, distinguishable from a
// successful no-data answer so the client can offer a retry action.
func writeQueryError(w http.ResponseWriter, err error) {
	var embErr *llm.EmbeddingError
	var modelErr *llm.ModelError

	switch {
	case errors.As(err, &embErr):
		httpRetryableError(w, "embedding_error", "embedding call failed: %v", embErr.Err)
	case errors.As(err, &modelErr):
		httpRetryableError(w, "model_error", "model call failed: %v", modelErr.Err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		httpError(w, http.StatusBadRequest, "invalid_request_error", "request canceled")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
	}
}

func toCited(s record.Scored) CitedRecord {
	excerpt := s.Content
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen]
	}
	return CitedRecord{
		ID:             s.ID,
		DocumentID:     s.ParentID,
		Title:          s.Title,
		ContentExcerpt: excerpt,
		PageNumber:     s.Metadata.PageNumber,
		SourceType:     string(s.SourceType),
	}
}

// LoadUserDataRequest is the /load_user_data request body.
type LoadUserDataRequest struct {
	UserID string `json:"user_id"`
}

// LoadUserDataResponse reports the rebuild outcome.
type LoadUserDataResponse struct {
	Status        string         `json:"status"`
	Message       string         `json:"message"`
	DocumentCount int            `json:"document_count"`
	DocumentTypes map[string]int `json:"document_types"`
}

func handleLoadUserData(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req LoadUserDataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		stats, err := deps.Builder.Rebuild(r.Context(), req.UserID)
		if err != nil {
			var embErr *llm.EmbeddingError
			if errors.As(err, &embErr) {
				httpRetryableError(w, "embedding_error", "embedding records failed: %v", embErr.Err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "loading user data failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoadUserDataResponse{
			Status:        "success",
			Message:       fmt.Sprintf("Successfully loaded and indexed %d records for user %s", stats.Total, req.UserID),
			DocumentCount: stats.Total,
			DocumentTypes: countsToJSON(stats.Counts),
		})
	}
}

// HealthResponse is the /health response body.
type HealthResponse struct {
	Status        string         `json:"status"`
	Source        string         `json:"source,omitempty"`
	RecordCount   int            `json:"record_count"`
	DocumentTypes map[string]int `json:"document_types"`
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:        "healthy",
			RecordCount:   deps.Store.TotalCount(),
			DocumentTypes: countsToJSON(deps.Store.TotalCountsByType()),
		}
		if deps.Source != nil {
			if err := deps.Source.Ping(r.Context()); err != nil {
				resp.Status = "unhealthy"
				resp.Source = fmt.Sprintf("unreachable: %v", err)
			} else {
				resp.Source = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func countsToJSON(counts map[record.SourceType]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// httpRetryableError writes a 502 with a retryable flag so clients can
// offer a one-click retry of the same query.
func httpRetryableError(w http.ResponseWriter, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message":   msg,
			"type":      errType,
			"retryable": true,
		},
	})
}
