package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	apiMiddleware "github.com/fluentlab/speech-api/internal/api/middleware"
	"github.com/fluentlab/speech-api/internal/api/shared"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// The browser frontend is served from a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		shared.RespondWithJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/upload_audio", app.taskHandler.UploadAudio)
	r.Get("/task_status/{taskID}", app.taskHandler.GetTaskStatus)
	r.Get("/tasks", app.taskHandler.ListTasks)
	r.Get("/get_result/{taskID}", app.taskHandler.GetResult)

	return r
}
