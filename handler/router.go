package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) routes() http.Handler {
	r := mux.NewRouter()
	// mux skips Use middleware for these two handlers.
	r.NotFoundHandler = correlationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}))
	r.MethodNotAllowedHandler = correlationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}))

	r.Use(correlationMiddleware)
	if h.allowedOrigins != "" {
		r.Use(h.corsMiddleware)
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/survey/submit", h.submitSurvey).Methods(h.methods(http.MethodPost)...)

	api := r.PathPrefix("/api/conversations").Subrouter()
	api.HandleFunc("/start", h.startConversation).Methods(h.methods(http.MethodPost)...)
	api.HandleFunc("/{id}/message", h.replyToConversation).Methods(h.methods(http.MethodPost)...)
	api.HandleFunc("/{id}/end", h.endConversation).Methods(h.methods(http.MethodPost)...)
	api.HandleFunc("/{id}", h.getConversation).Methods(h.methods(http.MethodGet)...)

	// Older clients address the conversation in the body.
	chat := r.PathPrefix("/chat").Subrouter()
	chat.HandleFunc("/start", h.startConversation).Methods(h.methods(http.MethodPost)...)
	chat.HandleFunc("/reply", h.replyToConversation).Methods(h.methods(http.MethodPost)...)
	chat.HandleFunc("/end", h.endConversation).Methods(h.methods(http.MethodPost)...)

	return r
}

// methods adds OPTIONS for preflight requests when CORS is enabled.
func (h *Handler) methods(m string) []string {
	if h.allowedOrigins == "" {
		return []string{m}
	}
	return []string{m, http.MethodOptions}
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+correlationHeader)
		w.Header().Set("Access-Control-Expose-Headers", correlationHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
