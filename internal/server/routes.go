package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)

	r.Route("/axes", func(r chi.Router) {
		r.Get("/", s.handleAxes)
		r.Get("/{axis}/entries", s.handleEntries)
	})

	r.Post("/veneers", s.handleVeneer)
	r.Post("/datasets", s.handleDataset)

	r.Route("/figures", func(r chi.Router) {
		r.Post("/", s.handleCreateFigure)
		r.Get("/{id}", s.handleGetFigure)
		r.Get("/{id}/{format}", s.handleExportFigure)
	})
	return r
}
