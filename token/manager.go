package token

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/internal/config"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token/refresh"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
)

// Pair is a freshly issued access and refresh token.
type Pair struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

// Manager issues and validates access tokens and drives the refresh ledger.
// It knows nothing about HTTP or sessions.
type Manager struct {
	signer            Signer           // Token signing and verification
	refresh           *refresh.Manager // Refresh token ledger
	users             users.Reader     // Resolves the owner of a refresh token
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

// NewManager creates a token manager. Issuer, audience and a positive access
// token lifetime are mandatory.
func NewManager(signer Signer, ledger *refresh.Manager, userReader users.Reader, options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		signer:  signer,
		refresh: ledger,
		users:   userReader,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}

	switch {
	case m.signer == nil:
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "token signer is required")
	case m.refresh == nil || m.users == nil:
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "refresh ledger and user store are required")
	case strings.TrimSpace(m.issuer) == "":
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "token issuer is required")
	case strings.TrimSpace(m.audience) == "":
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "token audience is required")
	case m.accessTokenExpiry <= 0:
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "access token expiry must be positive")
	}
	return m, nil
}

// NewManagerFromConfig wires an HMAC signer and the configured issuer,
// audience and lifetime.
func NewManagerFromConfig(cfg config.JWTConfig, ledger *refresh.Manager, userReader users.Reader, options ...ManagerOption) (*Manager, error) {
	signer, err := NewHMACSigner(cfg.GetJWTKey())
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "%s", err.Error())
	}
	opts := append([]ManagerOption{
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()),
		WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
	}, options...)
	return NewManager(signer, ledger, userReader, opts...)
}

// IssueAccessToken signs a short lived token for user.
func (c *Manager) IssueAccessToken(user *users.User) (string, error) {
	if user == nil || strings.TrimSpace(user.EncryptedUsername) == "" {
		return "", apperrors.ErrMissingSubject
	}

	now := c.nowFunc()
	claims := jwt.MapClaims{
		"iss":             c.issuer,                            // The issuer of the token
		"aud":             c.audience,                          // The audience for which the token is intended
		"sub":             user.EncryptedUsername,              // The subject, the encrypted username
		ClaimRoleStandard: user.Role.String(),                  // Role claim read by authorization
		ClaimRole:         user.Role.String(),                  // Short role claim
		ClaimUserID:       strconv.FormatInt(user.ID, 10),      // Numeric user id
		"iat":             now.Unix(),                          // Issued At: the time at which the token was issued
		"exp":             now.Add(c.accessTokenExpiry).Unix(), // Expiry: when the token will expire
		"jti":             uuid.New().String(),                 // Unique token ID
	}

	return c.signer.Sign(claims)
}

// IssueRefreshToken creates and persists a refresh token for userID.
func (c *Manager) IssueRefreshToken(ctx context.Context, userID int64) (*refresh.Token, error) {
	return c.refresh.Issue(ctx, userID)
}

// IssuePair issues an access token and a persisted refresh token for user.
func (c *Manager) IssuePair(ctx context.Context, user *users.User) (*Pair, error) {
	access, err := c.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	rt, err := c.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.IssuePair IssueRefreshToken")
	}
	return &Pair{AccessToken: access, RefreshToken: rt.Token}, nil
}

// Validate verifies signature, issuer, audience and expiry of an access token
// with no clock skew allowance.
func (c *Manager) Validate(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)

	token, err := parser.Parse(rawToken, c.signer.GetVerificationKey)
	if err != nil || !token.Valid {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "error extracting claims from token")
	}
	claims, err := claimsFromMap(mc)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without checking the signature. It is only
// used to decide whether a token is due for renewal.
func (c *Manager) ExpiresAt(rawToken string) (time.Time, error) {
	unverifiedToken, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	exp, err := unverifiedToken.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidToken, "token has no exp claim")
	}
	return exp.Time, nil
}

// Expired reports whether the access token's exp lies in the past. A token
// that cannot be decoded counts as expired.
func (c *Manager) Expired(rawToken string) bool {
	exp, err := c.ExpiresAt(rawToken)
	if err != nil {
		return true
	}
	return !c.nowFunc().Before(exp)
}

// Rotate exchanges a valid refresh token for a new pair. The owner is resolved
// and the access token signed before the ledger is touched, so a failure leaves
// the presented token usable. The ledger swap itself is at most once.
func (c *Manager) Rotate(ctx context.Context, presented string) (*Pair, error) {
	current, err := c.refresh.Lookup(ctx, presented)
	if err != nil {
		return nil, err
	}

	user, err := c.users.GetByID(ctx, current.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "user not found for refresh token")
	}

	access, err := c.IssueAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create access token")
	}

	next, err := c.refresh.Rotate(ctx, presented)
	if err != nil {
		return nil, err
	}
	if next.UserID != user.ID {
		return nil, errors.Wrapf(apperrors.ErrInvalidRefreshToken, "refresh token owner changed during rotation")
	}
	return &Pair{AccessToken: access, RefreshToken: next.Token}, nil
}

// RenewAccessToken issues a new access token for the owner of a valid refresh
// token. The refresh token is left untouched and can be used again until it
// expires.
func (c *Manager) RenewAccessToken(ctx context.Context, refreshToken string) (string, error) {
	rt, err := c.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	user, err := c.users.GetByID(ctx, rt.UserID)
	if err != nil {
		return "", errors.Wrap(err, "user not found for refresh token")
	}
	return c.IssueAccessToken(user)
}
