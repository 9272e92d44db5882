package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = "/"

	// Auth Routes
	RouteAuthRegister = "/Auth/Register"
	RouteAuthLogin    = "/Auth/Login"
	RouteAuthLogout   = "/Auth/Logout"
	RouteAuthRefresh  = "/Auth/Refresh"

	// Bearer diagnostics
	RouteTokenTest = "/TokenTest/Test"

	// Role landing pages
	RouteUserIndex  = "/User/Index"
	RouteAdminIndex = "/Admin/Index"

	// Status code pages
	RouteErrorUnauthorized = "/Error/Unauthorized"
	RouteErrorForbidden    = "/Error/Forbidden"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"
)
