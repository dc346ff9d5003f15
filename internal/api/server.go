// Package api serves the coordinate conversions over HTTP.
//
// Routes (all JSON):
//
//	GET    /healthz
//	POST   /api/v1/azel2radec
//	POST   /api/v1/jprecess
//	POST   /api/v1/bprecess
//	GET    /api/v1/sites
//	POST   /api/v1/sites
//	GET    /api/v1/sites/{name}
//	DELETE /api/v1/sites/{name}
//	POST   /api/v1/sites/{name}/default
//	GET    /api/v1/ws/drift (WebSocket)
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/astroerr"
	"github.com/unklstewy/skyconv/pkg/config"
)

// SiteStore is the site registry used to resolve named observers.
// *db.SiteRepository implements it.
type SiteStore interface {
	List(ctx context.Context) ([]db.Site, error)
	GetByName(ctx context.Context, name string) (*db.Site, error)
	GetDefault(ctx context.Context) (*db.Site, error)
	Create(ctx context.Context, site *db.Site) error
	Delete(ctx context.Context, name string) error
	SetDefault(ctx context.Context, name string) error
}

// errSitesUnavailable is returned by site operations when the server runs
// without a registry.
var errSitesUnavailable = errors.New("site registry is not configured")

// Server holds the HTTP router and its dependencies
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	sites    SiteStore
	limiter  *rate.Limiter
	clock    func() time.Time
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source used when a request gives no date.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer builds the router. sites may be nil, in which case site
// routes answer 503 and conversions fall back to the configured observer.
func NewServer(cfg *config.Config, sites SiteStore, opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		sites:  sites,
		clock:  time.Now,
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/azel2radec", s.handleAzElToRADec)
		r.Post("/jprecess", s.handleJPrecess)
		r.Post("/bprecess", s.handleBPrecess)

		r.Get("/sites", s.handleListSites)
		r.Post("/sites", s.handleCreateSite)
		r.Get("/sites/{name}", s.handleGetSite)
		r.Delete("/sites/{name}", s.handleDeleteSite)
		r.Post("/sites/{name}/default", s.handleSetDefaultSite)

		r.Get("/ws/drift", s.handleDrift)
	})
}

// rateLimit rejects requests beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin applies the CORS origin list to WebSocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"sites":  s.sites != nil,
		"time":   s.clock().UTC(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Param string `json:"param,omitempty"`
}

// respondError maps err to a status code and writes it as JSON.
func respondError(w http.ResponseWriter, err error) {
	var parseErr *angle.ParseError
	switch ae, ok := astroerr.IsArgumentError(err); {
	case ok:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ae.Error(), Param: ae.Param})
	case errors.As(err, &parseErr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: parseErr.Error()})
	case errors.Is(err, db.ErrInvalidSite):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, db.ErrSiteNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, db.ErrSiteExists):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, errSitesUnavailable), errors.Is(err, db.ErrUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		log.Printf("Error handling request: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
