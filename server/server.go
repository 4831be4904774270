package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"videoInsight/chat"
	"videoInsight/highlights"
	"videoInsight/pipeline"
	"videoInsight/providers"
	"videoInsight/storage"
)

// Server exposes the pipeline, chat, and highlight operations over HTTP.
type Server struct {
	Orchestrator *pipeline.Orchestrator
	Engine       *chat.Engine
	Segments     storage.SegmentStore
	Summaries    storage.SummaryStore
	Renderer     providers.Renderer
	Scorer       highlights.Scorer
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/videos", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/videos", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/videos/{id}/reprocess", s.handleReprocess).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/transcript", s.handleGetTranscript).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/transcript", s.handlePutTranscript).Methods(http.MethodPut)
	api.HandleFunc("/videos/{id}/summaries", s.handleSummaries).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/summaries/{kind}", s.handleGenerateSummary).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/chat/suggestions", s.handleSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/chat/{session}", s.handleChatHistory).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/highlights", s.handleHighlights).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/short", s.handleShort).Methods(http.MethodPost)
	return r
}
