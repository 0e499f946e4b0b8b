package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AuthMiddleware)

			r.Get("/me", apiHandler.MeHandler)
			r.Put("/me/notes", apiHandler.UpdateNotesHandler)

			r.Get("/conversation", apiHandler.GetConversationHandler)
			r.Post("/conversation/messages", apiHandler.PostMessageHandler)
			r.Post("/conversation/quick-action", apiHandler.QuickActionHandler)
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Post("/conversations/new", apiHandler.NewConversationHandler)
			r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)
		})
	})

	return r
}
