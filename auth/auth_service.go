package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/pii"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Service runs the register, login, logout and explicit refresh flows.
type Service struct {
	repos     Repos                 // All repository dependencies
	protector pii.Protector         // Encrypts username and email
	hasher    *users.PasswordHasher // bcrypt at the configured cost
	tokens    *token.Manager        // Access tokens and the refresh ledger
	nowTime   func() time.Time      // nowTime function (injectable for testing)
	dummyHash string                // Compared against when the user is unknown
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(
	repos Repos,
	protector pii.Protector,
	hasher *users.PasswordHasher,
	tokens *token.Manager,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, pkgerrors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, pkgerrors.New("[NewService] Sessions store is required")
	}
	if protector == nil {
		return nil, pkgerrors.New("[NewService] protector is required")
	}
	if hasher == nil {
		return nil, pkgerrors.New("[NewService] password hasher is required")
	}
	if tokens == nil {
		return nil, pkgerrors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:     repos,
		protector: protector,
		hasher:    hasher,
		tokens:    tokens,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	// Same cost as real digests so unknown users take as long as wrong passwords
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[NewService] dummy hash")
	}
	s.dummyHash = dummyHash
	return s, nil
}

// Register creates a user. Username and email are encrypted, the password is
// hashed. A taken username yields errors.ErrUsernameExists, an unknown role
// id errors.ErrInvalidRole.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if err := ValidateRegistration(req); err != nil {
		return nil, err
	}

	role, err := users.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, err
	}

	lookup, err := s.protector.LookupKey(req.Username)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Register] lookup key")
	}
	exists, err := s.repos.Users.ExistsByUsernameLookup(ctx, lookup)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Register] ExistsByUsernameLookup")
	}
	if exists {
		return nil, errors.ErrUsernameExists
	}

	encryptedUsername, err := s.protector.Encrypt(req.Username)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Register] encrypt username")
	}
	encryptedEmail, err := s.protector.Encrypt(req.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Register] encrypt email")
	}
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Register] hash password")
	}

	user := &users.User{
		EncryptedUsername: encryptedUsername,
		EncryptedEmail:    encryptedEmail,
		UsernameLookup:    lookup,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		PasswordHash:      passwordHash,
		Role:              role,
		CreatedAt:         s.nowTime().UTC(),
	}

	// The store's unique constraint settles races the pre-check cannot see
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, errors.ErrUsernameExists) {
			return nil, errors.ErrUsernameExists
		}
		return nil, pkgerrors.Wrap(err, "[Service.Register] Create")
	}

	log.Info().Int64("user_id", user.ID).Str("role", role.String()).Msg("user registered")
	return user, nil
}

// Login checks the credentials, issues a token pair and opens a session.
// Unknown user and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := ValidateLogin(req); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	lookup, err := s.protector.LookupKey(req.Username)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] lookup key")
	}

	user, err := s.repos.Users.GetByUsernameLookup(ctx, lookup)
	if errors.Is(err, errors.ErrUserNotFound) {
		// Unknown users cost one bcrypt comparison like known ones
		s.hasher.Verify(req.Password, s.dummyHash)
		return nil, errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] GetByUsernameLookup")
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}

	username, err := s.protector.Decrypt(user.EncryptedUsername)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] decrypt username")
	}
	email, err := s.protector.Decrypt(user.EncryptedEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] decrypt email")
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] IssuePair")
	}

	session := sessions.New()
	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	session.Username = username
	session.Email = email
	session.Role = user.Role
	session.CreatedAt = s.nowTime().UTC()
	if err := s.repos.Sessions.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] save session")
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role.String()).Msg("user logged in")
	return &LoginResult{
		Session:     session,
		User:        user,
		LandingPath: LandingPath(user.Role),
	}, nil
}

// Logout drops the session. The refresh token it held stays valid until it
// expires or is rotated.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repos.Sessions.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(err, "[Service.Logout] delete session")
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked, so a second exchange of it fails with errors.ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRefreshToken) {
			return nil, errors.ErrInvalidRefreshToken
		}
		return nil, pkgerrors.Wrap(err, "[Service.Refresh] Rotate")
	}
	return pair, nil
}

// Session returns the session behind a cookie id.
func (s *Service) Session(ctx context.Context, sessionID string) (*sessions.Session, error) {
	return s.repos.Sessions.Get(ctx, sessionID)
}
