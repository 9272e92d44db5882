package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Auth    *auth.Service    // Register, Login, Logout and explicit refresh
	Tokens  *token.Manager   // Bearer validation
	Bridge  *sessions.Bridge // Cookie session to bearer translation
	Health  Pinger           // Optional, /healthz reports ok when nil
	Metrics *Metrics         // Optional, a fresh registry is created when nil
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	tokens  *token.Manager
	bridge  *sessions.Bridge
	health  Pinger
	metrics *Metrics
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Tokens == nil || deps.Bridge == nil {
		return nil, fmt.Errorf("[Server New] auth service, token manager and session bridge are required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		auth:    deps.Auth,
		tokens:  deps.Tokens,
		bridge:  deps.Bridge,
		health:  deps.Health,
		metrics: deps.Metrics,
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.env = config.GetEnv()

	// Bootstrap: ensure the configured admin account exists
	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
