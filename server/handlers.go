package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog"
)

// PageData is the model every page template renders from
type PageData struct {
	AppName string
	Title   string
	Session *sessions.Session // Signed in session, nil for anonymous visitors
	Error   string
	Message string
	Form    FormValues
	Roles   []users.Role
}

// FormValues echoes submitted fields back into a re-rendered form. Passwords
// are never echoed.
type FormValues struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	RoleID    string
}

func (s *Server) page(r *http.Request, title string) PageData {
	return PageData{
		AppName: s.config.GetAppName(),
		Title:   title,
		Session: sessionFromContext(r.Context()),
	}
}

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, tmpl, http.StatusOK, s.page(r, "Home"))
	}
}

func (s *Server) RegisterPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page(r, "Register")
		data.Roles = users.Roles()
		data.Form.RoleID = strconv.Itoa(users.RoleUser.ID())
		renderPage(w, r, tmpl, http.StatusOK, data)
	}
}

// RegisterSubmissionHandler creates the account and sends the browser to the
// login page. Rejections re-render the form with the reason.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		req := auth.RegisterRequest{
			Username:  r.FormValue("username"),
			Email:     r.FormValue("email"),
			FirstName: r.FormValue("firstName"),
			LastName:  r.FormValue("lastName"),
			Password:  r.FormValue("password"),
			RoleID:    r.FormValue("roleId"),
		}

		if _, err := s.auth.Register(r.Context(), req); err != nil {
			status := http.StatusOK
			if isUserFacing(err) {
				s.metrics.Registration(resultRejected)
			} else {
				s.metrics.Registration(resultError)
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("registration failed")
				status = http.StatusInternalServerError
			}

			data := s.page(r, "Register")
			data.Roles = users.Roles()
			data.Error = auth.Message(err)
			data.Form = FormValues{
				Username:  req.Username,
				Email:     req.Email,
				FirstName: req.FirstName,
				LastName:  req.LastName,
				RoleID:    req.RoleID,
			}
			renderPage(w, r, tmpl, status, data)
			return
		}

		s.metrics.Registration(resultSuccess)
		redirectSuccess(w, r, RouteAuthLogin)
	}
}

func (s *Server) LoginPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, tmpl, http.StatusOK, s.page(r, "Login"))
	}
}

// LoginSubmissionHandler signs the user in, stores the session cookie and
// redirects to the landing page of the user's role.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		req := auth.LoginRequest{
			Username: r.FormValue("username"),
			Password: r.FormValue("password"),
		}

		result, err := s.auth.Login(r.Context(), req)
		if err != nil {
			status := http.StatusOK
			if errors.Is(err, errors.ErrInvalidCredentials) {
				s.metrics.Login(resultRejected)
			} else {
				s.metrics.Login(resultError)
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("login failed")
				status = http.StatusInternalServerError
			}

			data := s.page(r, "Login")
			data.Error = auth.Message(err)
			data.Form.Username = req.Username
			renderPage(w, r, tmpl, status, data)
			return
		}

		s.metrics.Login(resultSuccess)
		s.setSessionCookie(w, r, result.Session.ID)
		redirectSuccess(w, r, result.LandingPath)
	}
}

// LogoutHandler drops the session and the cookie
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), s.sessionCookieValue(r)); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("logout failed")
		}
		s.clearSessionCookie(w, r)
		redirectSuccess(w, r, RouteHome)
	}
}

func (s *Server) UserIndexHandler() http.HandlerFunc {
	return s.landingPageHandler("User", "Signed in with the User role.")
}

func (s *Server) AdminIndexHandler() http.HandlerFunc {
	return s.landingPageHandler("Admin", "Signed in with the Admin role.")
}

func (s *Server) landingPageHandler(title, message string) http.HandlerFunc {
	tmpl := mustParseTemplate("landing.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page(r, title)
		data.Message = message
		renderPage(w, r, tmpl, http.StatusOK, data)
	}
}

func (s *Server) UnauthorizedPageHandler() http.HandlerFunc {
	return s.errorPageHandler("Unauthorized", "You need to sign in to see this page.")
}

func (s *Server) ForbiddenPageHandler() http.HandlerFunc {
	return s.errorPageHandler("Forbidden", "Your role does not allow access to this page.")
}

func (s *Server) errorPageHandler(title, message string) http.HandlerFunc {
	tmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page(r, title)
		data.Message = message
		renderPage(w, r, tmpl, http.StatusOK, data)
	}
}

// isUserFacing reports whether err is a rejection the user can act on rather
// than a fault.
func isUserFacing(err error) bool {
	var fe *auth.FieldError
	return errors.As(err, &fe) ||
		errors.Is(err, errors.ErrUsernameExists) ||
		errors.Is(err, errors.ErrInvalidRole) ||
		errors.Is(err, errors.ErrInvalidCredentials)
}
