package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w-h-a/lio"
)

type Handler struct {
	options Options
	rag     *lio.RAG
}

// Routes returns the API router. Middleware is applied by the server.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/documents/process", h.processDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.submitDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/batch", h.submitBatch).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}", h.updateDocument).Methods(http.MethodPut)
	api.HandleFunc("/conversations/{id}", h.deleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}", h.job).Methods(http.MethodGet)
	api.HandleFunc("/search", h.search).Methods(http.MethodGet)

	api.HandleFunc("/chat/start", h.startChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/message", h.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/history/{id}", h.history).Methods(http.MethodGet)
	api.HandleFunc("/chat/active", h.activeChats).Methods(http.MethodGet)
	api.HandleFunc("/chat/list", h.listChats).Methods(http.MethodGet)
	api.HandleFunc("/chat/resume/{id}", h.resumeChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/metadata/{id}", h.chatMetadata).Methods(http.MethodGet)
	api.HandleFunc("/chat/delete/{id}", h.deleteChat).Methods(http.MethodDelete)
	api.HandleFunc("/chat/{id}", h.deleteChat).Methods(http.MethodDelete)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func New(rag *lio.RAG, opts ...Option) *Handler {
	return &Handler{
		options: NewOptions(opts...),
		rag:     rag,
	}
}
