package sessions

import (
	"context"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// BridgeResult is what Process did to the session.
type BridgeResult int

const (
	BridgeNoSession BridgeResult = iota // No session, nothing to forward
	BridgeUnchanged                     // Access token forwarded as is
	BridgeRenewed                       // Expired access token replaced
	BridgeCleared                       // Renewal failed, session removed
)

func (r BridgeResult) String() string {
	switch r {
	case BridgeNoSession:
		return "no_session"
	case BridgeUnchanged:
		return "unchanged"
	case BridgeRenewed:
		return "renewed"
	case BridgeCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// TokenRenewer is the part of the token service the bridge needs.
type TokenRenewer interface {
	// Expired reads exp without verifying the signature
	Expired(accessToken string) bool
	// RenewAccessToken issues a new access token without rotating refreshToken
	RenewAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// Bridge turns a cookie session into a bearer token, silently renewing an
// expired access token from the session's refresh token.
type Bridge struct {
	store  Store
	tokens TokenRenewer
}

func NewBridge(store Store, tokens TokenRenewer) *Bridge {
	return &Bridge{store: store, tokens: tokens}
}

// Process loads the session for sessionID and makes sure its access token is
// usable. The returned session is nil unless the result is BridgeUnchanged or
// BridgeRenewed. A refresh token that is no longer valid deletes the session
// and is not an error, the request simply continues unauthenticated. Any other
// renewal failure keeps the session and is returned.
func (b *Bridge) Process(ctx context.Context, sessionID string) (*Session, BridgeResult, error) {
	if sessionID == "" {
		return nil, BridgeNoSession, nil
	}

	session, err := b.store.Get(ctx, sessionID)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return nil, BridgeNoSession, nil
	}
	if err != nil {
		return nil, BridgeNoSession, errors.Wrapf(err, "load session")
	}
	if session.AccessToken == "" {
		return nil, BridgeNoSession, nil
	}

	if !b.tokens.Expired(session.AccessToken) {
		return session, BridgeUnchanged, nil
	}

	access, err := b.tokens.RenewAccessToken(ctx, session.RefreshToken)
	if err != nil && !renewalRejected(err) {
		return nil, BridgeNoSession, errors.Wrapf(err, "renew access token")
	}
	if err != nil {
		log.Info().Err(err).Str("session_id", session.ID).Msg("silent refresh failed, clearing session")
		if delErr := b.store.Delete(ctx, session.ID); delErr != nil {
			return nil, BridgeCleared, errors.Wrapf(delErr, "delete session")
		}
		return nil, BridgeCleared, nil
	}

	// Refresh token stays as is; concurrent renewals are last writer wins
	session.AccessToken = access
	if err := b.store.Save(ctx, session); err != nil {
		return nil, BridgeNoSession, errors.Wrapf(err, "save renewed session")
	}
	log.Debug().Str("session_id", session.ID).Msg("access token renewed from session")
	return session, BridgeRenewed, nil
}

// renewalRejected reports whether err means the session can never be renewed
func renewalRejected(err error) bool {
	return errors.Is(err, errors.ErrInvalidRefreshToken) ||
		errors.Is(err, errors.ErrUserNotFound) ||
		errors.Is(err, errors.ErrMissingSubject)
}
