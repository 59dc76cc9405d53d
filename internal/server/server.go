package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/store"
)

// Options tunes a Server. Zero values fall back to sensible defaults.
type Options struct {
	Version    string
	RatePerSec float64 // synthesis requests per second; 0 disables limiting
	Burst      int
	Logger     *zap.Logger
}

// Server is the chronoscope HTTP API server.
type Server struct {
	eng     *engine.Engine
	db      *store.DB
	router  chi.Router
	limiter *rate.Limiter
	log     *zap.Logger
	version string
	started time.Time
}

// New creates a Server that synthesizes with eng and records echoes in db.
func New(eng *engine.Engine, db *store.DB, opts Options) *Server {
	s := &Server{
		eng:     eng,
		db:      db,
		log:     opts.Logger,
		version: opts.Version,
		started: time.Now(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("http")
	if opts.RatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), max(opts.Burst, 1))
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Get("/epochs", s.handleListEpochs)
		r.Get("/epochs/{key}", s.handleGetEpoch)

		r.With(s.rateLimit).Post("/echoes", s.handleCreateEcho)
		r.Get("/echoes", s.handleListEchoes)
		r.Get("/echoes/{id}", s.handleGetEcho)
		r.With(s.rateLimit).Get("/echoes/{id}/image.png", s.handleEchoImage)
		r.With(s.rateLimit).Get("/echoes/{id}/audio.wav", s.handleEchoAudio)
	})

	r.Get("/*", viewerHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"engine_version": engine.Version,
		"uptime":         time.Since(s.started).Seconds(),
		"epochs":         s.eng.Registry().Len(),
		"db":             dbOK,
		"db_path":        s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}
