package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the verified access token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeySession stores the cookie session resolved by the bridge
	ContextKeySession ContextKey = "session"
)

// SessionBridgeMiddleware turns the session cookie into an Authorization
// header. An expired access token is renewed from the session's refresh token
// first. When the refresh token is rejected the session is gone, the cookie is
// cleared and the request continues without credentials. Store failures answer
// 500 and leave the session alone.
func (s *Server) SessionBridgeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.config.GetSessionCookieName())
		if err != nil || cookie.Value == "" {
			next(w, r)
			return
		}

		session, result, err := s.bridge.Process(r.Context(), cookie.Value)
		s.metrics.BridgeOutcome(result)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("session bridge failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch result {
		case sessions.BridgeUnchanged, sessions.BridgeRenewed:
			r = r.Clone(context.WithValue(r.Context(), ContextKeySession, session))
			r.Header.Set("Authorization", "Bearer "+session.AccessToken)
		case sessions.BridgeCleared, sessions.BridgeNoSession:
			s.clearSessionCookie(w, r)
		}
		next(w, r)
	}
}

// RequireAuth validates the Bearer access token and stores its claims in the
// request context. Failures answer a bare 401 which the status code pages
// turn into a redirect.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		claims, err := s.tokens.Validate(raw)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole must be chained after RequireAuth.
func (s *Server) RequireRole(role users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if claims.Role != role {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

func claimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func sessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}

// bearerToken extracts the token of an "Authorization: Bearer" header
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}
