// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tokscribe/tokscribe/internal/core"
	"github.com/tokscribe/tokscribe/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		store: app.Store(),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		// Ingestion job surface. Status reads are side-effect free and
		// meant to be polled; observers stop once the job is terminal.
		r.Route("/ingest", func(r chi.Router) {
			r.Post("/start", s.handleStartIngestion)
			r.Get("/jobs", s.handleListIngestionJobs)
			r.Get("/status/{jobID}", s.handleGetIngestionStatus)
			r.Post("/cancel/{jobID}", s.handleCancelIngestion)
			r.Post("/pause/{jobID}", s.handlePauseIngestion)
			r.Post("/resume/{jobID}", s.handleResumeIngestion)
			r.Get("/metadata/{username}", s.handleGetAccountMetadata)
		})

		// Maintenance job triggers.
		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetAdminJobsStatus)
			r.Post("/jobs/run", s.handleRunAdminJob)
		})

		r.Get("/health", s.handleHealth)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DB().Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
