// Package server assembles the HTTP surface: routing, middleware and
// graceful lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/memoirhq/memoir/internal/handler/chat"
	"github.com/memoirhq/memoir/internal/handler/contribution"
	"github.com/memoirhq/memoir/internal/handler/experience"
	"github.com/memoirhq/memoir/internal/httputil"
	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/middleware"
	"github.com/memoirhq/memoir/internal/svc"
)

// Server is the HTTP front of the application.
type Server struct {
	svcCtx *svc.ServiceContext
	http   *http.Server
}

// New builds the router and the HTTP server around the service context.
func New(svcCtx *svc.ServiceContext) *Server {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OkJSON(w, map[string]string{
			"status":  "ok",
			"app":     svcCtx.Config.App.Name,
			"version": svcCtx.Config.App.Version,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWT(svcCtx.Config.Auth.AccessSecret))

		r.Post("/chat", chat.ChatHandler(svcCtx))

		r.Get("/experiences", experience.ListExperiencesHandler(svcCtx))
		r.Post("/experiences/{experienceId}/start", experience.StartExperienceHandler(svcCtx))
		r.Put("/experiences/{experienceId}", experience.AdvanceExperienceHandler(svcCtx))
		r.Post("/experiences/{experienceId}/input", experience.ExperienceInputHandler(svcCtx))
		r.Delete("/experiences/{experienceId}", experience.EndExperienceHandler(svcCtx))

		r.Get("/contributions/categories", contribution.AssessCategoriesHandler(svcCtx))
		r.Post("/contributions/{category}", contribution.RequestContributionHandler(svcCtx))
		r.Put("/contributions/{id}", contribution.UpdateContributionHandler(svcCtx))
	})

	return &Server{
		svcCtx: svcCtx,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", svcCtx.Config.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	logging.Infof("[server] %s listening on %s", s.svcCtx.Config.App.Name, s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases service resources.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("[server] shutdown: %v", err)
	}
	return s.svcCtx.Close()
}
