package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ovoronin/document-chat/internal/core/ports"
	"github.com/ovoronin/document-chat/internal/core/usecase"
	"github.com/ovoronin/document-chat/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor  ports.DocumentIngestor
	documents ports.DocumentReader
	retriever ports.DocumentRetriever
	threads   ports.ThreadRepository
	chat      ports.ChatStreamer
	settings  *usecase.SettingsUseCase

	auth    *AuthMiddleware
	metrics *metrics.HTTPServerMetrics

	retrievalTopK int
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	documents ports.DocumentReader,
	retriever ports.DocumentRetriever,
	threads ports.ThreadRepository,
	chat ports.ChatStreamer,
	settings *usecase.SettingsUseCase,
	auth *AuthMiddleware,
	m *metrics.HTTPServerMetrics,
	retrievalTopK int,
) *Router {
	if retrievalTopK <= 0 {
		retrievalTopK = 5
	}
	return &Router{
		ingestor:      ingestor,
		documents:     documents,
		retriever:     retriever,
		threads:       threads,
		chat:          chat,
		settings:      settings,
		auth:          auth,
		metrics:       m,
		retrievalTopK: retrievalTopK,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(rt.auth.Handler)

		v1.Post("/documents", rt.uploadDocument)
		v1.Get("/documents", rt.listDocuments)
		v1.Get("/documents/{documentID}", rt.getDocument)
		v1.Delete("/documents/{documentID}", rt.deleteDocument)

		v1.Post("/search", rt.search)

		v1.Post("/threads", rt.createThread)
		v1.Get("/threads", rt.listThreads)
		v1.Get("/threads/{threadID}", rt.getThread)
		v1.Delete("/threads/{threadID}", rt.deleteThread)
		v1.Get("/threads/{threadID}/messages", rt.listMessages)
		v1.Post("/threads/{threadID}/chat", rt.chatStream)

		v1.Get("/settings", rt.getSettings)
		v1.Put("/settings", rt.updateSettings)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
