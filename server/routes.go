package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// REGISTER / LOGIN / LOGOUT
	s.RegisterRouteFunc("GET "+RouteAuthRegister, ChainMiddleware(s.RegisterPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteAuthLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.RequireAuth)...))

	// Explicit refresh is an API call from scripts, no session involved
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS "+RouteAuthRefresh, ChainMiddleware(preflightHandler, s.APIMiddleware()...))

	// Bearer protected
	s.RegisterRouteFunc("GET "+RouteTokenTest, ChainMiddleware(s.TokenTestHandler(), s.HTMLMiddleWare(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteUserIndex, ChainMiddleware(s.UserIndexHandler(), s.HTMLMiddleWare(s.RequireAuth, s.RequireRole(users.RoleUser))...))
	s.RegisterRouteFunc("GET "+RouteAdminIndex, ChainMiddleware(s.AdminIndexHandler(), s.HTMLMiddleWare(s.RequireAuth, s.RequireRole(users.RoleAdmin))...))

	// Status code pages
	s.RegisterRouteFunc("GET "+RouteErrorUnauthorized, ChainMiddleware(s.UnauthorizedPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteErrorForbidden, ChainMiddleware(s.ForbiddenPageHandler(), s.HTMLMiddleWare()...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.RecoverMiddleware))
}

// preflightHandler answers CORS preflight requests once CorsMiddleware has set the headers
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
