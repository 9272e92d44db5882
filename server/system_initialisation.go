package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

// adminEmailDomain completes the bootstrap admin's email when ADMIN_EMAIL is unset
const adminEmailDomain = "localhost"

// InitialiseSystem creates the configured Admin account when it does not exist
// yet. Nothing happens unless ADMIN_USERNAME and ADMIN_PASSWORD are set.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	username := s.config.GetAdminUsername()
	password := s.config.GetAdminPassword()
	if username == "" || password == "" {
		return nil
	}

	email := s.config.GetAdminEmail()
	if email == "" {
		email = fmt.Sprintf("%s@%s", username, adminEmailDomain)
	}

	user, err := s.auth.Register(ctx, auth.RegisterRequest{
		Username:  username,
		Email:     email,
		FirstName: "System",
		LastName:  "Administrator",
		Password:  password,
		RoleID:    strconv.Itoa(users.RoleAdmin.ID()),
	})
	if errors.Is(err, errors.ErrUsernameExists) {
		log.Debug().Msg("bootstrap admin already present")
		return nil
	}
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Msg("bootstrap admin created")
	return nil
}
