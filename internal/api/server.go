package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/challenge-progress/internal/challenge"
	"github.com/terra-clan/challenge-progress/internal/completion"
	"github.com/terra-clan/challenge-progress/internal/config"
	"github.com/terra-clan/challenge-progress/internal/events"
	"github.com/terra-clan/challenge-progress/internal/leaderboard"
	"github.com/terra-clan/challenge-progress/internal/payload"
	"github.com/terra-clan/challenge-progress/internal/progress"
	"github.com/terra-clan/challenge-progress/internal/storage"
)

// HealthReporter reports the last known storage health
type HealthReporter interface {
	Healthy() bool
}

// Deps are the services the API exposes
type Deps struct {
	Backend     storage.Backend
	Catalog     *challenge.Catalog
	Normalizer  *challenge.Normalizer
	Progress    *progress.Store
	Leaderboard *leaderboard.Store
	Coordinator *completion.Coordinator
	Payloads    *payload.Accessor
	Bus         *events.Bus
	Health      HealthReporter // optional
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	deps           Deps
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		deps:           deps,
		authMiddleware: NewAuthMiddleware(cfg.APIToken),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// the event stream is long-lived and must not be cut by the timeout
		r.Get("/events", s.handleEventsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/user/id", s.handleGetUserID)
			r.Get("/me", s.handleGetMe)
			r.Get("/score", s.handleGetScore)

			r.Get("/progress", s.handleGetProgress)
			r.Delete("/progress", s.handleResetProgress)

			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handleUpdatePreferences)

			r.Route("/challenges", func(r chi.Router) {
				r.Get("/", s.handleListChallenges)
				r.Get("/aliases", s.handleListAliases)
				r.Get("/{id}/normalize", s.handleNormalizeChallenge)
				r.Post("/{id}/complete", s.handleCompleteChallenge)
			})

			r.Route("/leaderboard", func(r chi.Router) {
				r.Get("/", s.handleGetLeaderboard)
				r.Get("/rank", s.handleGetRank)
			})

			r.Route("/payloads", func(r chi.Router) {
				r.Get("/", s.handleListPayloads)
				r.Get("/{namespace}", s.handleGetPayload)
				r.Put("/{namespace}", s.handlePutPayload)
				r.Delete("/{namespace}", s.handleDeletePayload)
			})

			r.Route("/blobs", func(r chi.Router) {
				r.Get("/", s.handleListBlobs)
				r.Get("/{challengeId}", s.handleGetBlob)
				r.Put("/{challengeId}", s.handlePutBlob)
				r.Delete("/{challengeId}", s.handleDeleteBlob)
			})

			r.Route("/translations", func(r chi.Router) {
				r.Get("/", s.handleListTranslations)
				r.Post("/", s.handleAddTranslation)
				r.Delete("/", s.handleClearTranslations)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
