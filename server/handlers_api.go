package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog"
)

const (
	maxRefreshBody  = 4 << 10
	tokenTimeFormat = "2006-01-02 15:04:05Z"
)

type refreshResponse struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

// RefreshHandler rotates a refresh token. The body is the raw token, either
// as a JSON string literal or as plain text.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented, err := readRefreshToken(r)
		if err != nil {
			s.metrics.Refresh(resultRejected)
			writeJSON(w, r, http.StatusUnauthorized, messageResponse{Message: auth.MsgInvalidRefreshToken})
			return
		}

		pair, err := s.auth.Refresh(r.Context(), presented)
		if errors.Is(err, errors.ErrInvalidRefreshToken) {
			s.metrics.Refresh(resultRejected)
			writeJSON(w, r, http.StatusUnauthorized, messageResponse{Message: auth.MsgInvalidRefreshToken})
			return
		}
		if err != nil {
			s.metrics.Refresh(resultError)
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("refresh failed")
			writeJSON(w, r, http.StatusInternalServerError, messageResponse{Message: auth.MsgSomethingWentWrong})
			return
		}

		s.metrics.Refresh(resultSuccess)
		writeJSON(w, r, http.StatusOK, refreshResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

func readRefreshToken(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRefreshBody))
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, `"`) {
		var decoded string
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return "", errors.Wrapf(errors.ErrInvalidRefreshToken, "body is not a json string")
		}
		raw = strings.TrimSpace(decoded)
	}
	if raw == "" {
		return "", errors.ErrInvalidRefreshToken
	}
	return raw, nil
}

type tokenTestResponse struct {
	Message      string `json:"Message"`
	UserID       string `json:"UserId"`
	Role         string `json:"Role"`
	ExpiresAt    string `json:"ExpiresAt"`
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

// TokenTestHandler echoes what the verified bearer token says about the caller
func (s *Server) TokenTestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		expiresAt := "unknown"
		if !claims.ExpiresAt.IsZero() {
			expiresAt = claims.ExpiresAt.UTC().Format(tokenTimeFormat)
		}
		accessToken, _ := bearerToken(r)

		var refreshToken string
		if session := sessionFromContext(r.Context()); session != nil {
			refreshToken = session.RefreshToken
		}

		writeJSON(w, r, http.StatusOK, tokenTestResponse{
			Message:      "Token is valid!",
			UserID:       strconv.FormatInt(claims.UserID, 10),
			Role:         claims.Role.String(),
			ExpiresAt:    expiresAt,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health.Ping(r.Context()); err != nil {
				log := zerolog.Ctx(r.Context())
				log.Warn().Err(err).Msg("health check failed")
				writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
	}
}
