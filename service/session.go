package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/ports"
)

// SessionService mints and manages session tokens for verified identities.
// It implements ports.Completer: a verified wallet address becomes a fresh
// session whose token pair rides back to the application in the redirect
// URL fragment.
//
// Identity resolution is deliberately absent: every completion mints a fresh
// session for the address. Mapping addresses to stable user records is the
// surrounding system's concern.
type SessionService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	log       zerolog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

const invalidatedPrefix = "invalidated:"

// NewSessionService creates a new session service.
func NewSessionService(tokenizer ports.Tokenizer, store ports.Store, eventPub ports.EventPublisher, log zerolog.Logger) *SessionService {
	return &SessionService{
		tokenizer:  tokenizer,
		store:      store,
		eventPub:   eventPub,
		log:        log,
		accessTTL:  5 * time.Minute,
		refreshTTL: 5 * 24 * time.Hour, // 5 days
	}
}

var _ ports.Completer = (*SessionService)(nil)

// Complete mints a session for a verified identity and returns the redirect
// target carrying the token pair in its fragment.
func (s *SessionService) Complete(ctx context.Context, identity core.VerifiedIdentity, redirectURL string) (string, error) {
	session := s.newSession(identity.Address)

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, session.Address, session.RefreshID); err != nil {
		// The session is already minted; losing the notification is not
		// worth failing the login over.
		s.log.Warn().Err(err).Msg("failed to publish login event")
	}

	fragment := url.Values{}
	fragment.Set("access_token", accessToken)
	fragment.Set("refresh_token", refreshToken)
	fragment.Set("token_type", "Bearer")

	return redirectURL + "#" + fragment.Encode(), nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens.
func (s *SessionService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", core.ErrInvalidToken)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.isInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", err
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the remainder of its lifetime.
	if err := s.invalidate(ctx, session.RefreshID, time.Until(session.RefreshExpiry)); err != nil {
		return "", "", err
	}

	newSession := s.newSession(session.Address)

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token and notifies other instances.
func (s *SessionService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", core.ErrInvalidToken)
	}

	// Even an expired token gets an invalidation record, with a floor of an
	// hour to absorb clock skew.
	remaining := time.Until(session.RefreshExpiry)
	if remaining < time.Hour {
		remaining = time.Hour
	}

	if err := s.invalidate(ctx, session.RefreshID, remaining); err != nil {
		return err
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		// The token is already invalidated in the store, which is the part
		// that matters.
		s.log.Warn().Err(err).Msg("failed to publish logout event")
	}

	return nil
}

// ValidateAccessToken parses an access token and checks it against the
// invalidation records.
func (s *SessionService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", core.ErrInvalidToken)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with their refresh token: a logout or rotation
	// invalidates both.
	if session.RefreshID != "" {
		invalidated, err := s.isInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, err
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *SessionService) newSession(address string) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}
}

func (s *SessionService) invalidate(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := s.store.Set(ctx, invalidatedPrefix+tokenID, "1", ttl); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

func (s *SessionService) isInvalidated(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.store.Get(ctx, invalidatedPrefix+tokenID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check token invalidation: %w", err)
}
