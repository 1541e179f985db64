package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"pagekv/internal/platform/config"
	"pagekv/internal/platform/server/handler/kv"
)

type Server struct {
	httpAddr string
	engine   *chi.Mux
}

func NewServer(cfg config.Config, h *kv.Handler) Server {
	srv := Server{
		engine:   chi.NewRouter(),
		httpAddr: fmt.Sprintf(":%d", cfg.ServerPort),
	}
	srv.engine.Use(middleware.Logger)
	srv.registerRoutes(h)
	return srv
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.httpAddr).Msg("server: listening")
	return http.ListenAndServe(s.httpAddr, s.engine)
}

func (s *Server) registerRoutes(h *kv.Handler) {
	s.engine.Get("/kv/{key}", h.GetEntry)
	s.engine.Put("/kv/{key}", h.PutEntry)
	s.engine.Delete("/kv/{key}", h.DeleteEntry)
	s.engine.Get("/range/{key}", h.GetRange)
}
