package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/internal/solana"
	"github.com/halcyon-id/siws/ports"
)

// CallbackPath is the callback endpoint relative to the request origin.
const CallbackPath = "/auth/siws/callback"

const noncePrefix = "nonce:"

// ProviderConfig holds the tunable parts of the provider.
type ProviderConfig struct {
	ChainID        string
	Statement      string
	ValidityWindow time.Duration
	AllowedWallets []string
	ConnectTimeout time.Duration
}

// Provider implements the sign-in-with-wallet protocol: it issues challenges
// and verifies signed callbacks.
type Provider struct {
	store     ports.Store
	tokenizer ports.Tokenizer
	completer ports.Completer
	cfg       ProviderConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewProvider creates a new provider.
func NewProvider(store ports.Store, tokenizer ports.Tokenizer, completer ports.Completer, cfg ProviderConfig, log zerolog.Logger) *Provider {
	if cfg.ChainID == "" || !core.ValidChainID(cfg.ChainID) {
		cfg.ChainID = core.ChainMainnet
	}
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = 10 * time.Minute
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	return &Provider{
		store:     store,
		tokenizer: tokenizer,
		completer: completer,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Config returns the provider configuration.
func (p *Provider) Config() ProviderConfig {
	return p.cfg
}

// IssueRequest carries the request-derived inputs to challenge issuance.
type IssueRequest struct {
	Host        string // the relying host, bound into the signed message
	Origin      string // scheme://host of the current request
	RedirectURI string // optional post-login redirect, defaults to Origin
}

// IssuedChallenge is the result of issuing a challenge: the challenge
// itself, the client-side token that round-trips it to the callback, and the
// URLs the sign-in page needs.
type IssuedChallenge struct {
	Challenge   core.Challenge
	Token       string
	CallbackURL string
	RedirectURL string
}

// IssueChallenge builds a challenge, persists its anti-replay nonce and
// wraps it in the client-side token. The nonce record is written before
// anything is handed to the user: a challenge whose nonce failed to persist
// must not be issued, or the callback's replay check would be meaningless.
func (p *Provider) IssueChallenge(ctx context.Context, req IssueRequest) (*IssuedChallenge, error) {
	nonce, err := core.NewNonce()
	if err != nil {
		return nil, err
	}

	now := p.now().UTC().Truncate(time.Second)
	challenge := core.Challenge{
		Domain:         req.Host,
		Statement:      p.cfg.Statement,
		URI:            req.Origin,
		Version:        core.Version,
		ChainID:        p.cfg.ChainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: now.Add(p.cfg.ValidityWindow),
	}

	if err := p.store.Set(ctx, noncePrefix+nonce, now.Format(time.RFC3339), p.cfg.ValidityWindow); err != nil {
		return nil, fmt.Errorf("failed to persist nonce: %w", err)
	}

	redirectURL := req.RedirectURI
	if redirectURL == "" {
		redirectURL = req.Origin
	}

	token, err := p.tokenizer.ChallengeToToken(&challenge, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge token: %w", err)
	}

	return &IssuedChallenge{
		Challenge:   challenge,
		Token:       token,
		CallbackURL: req.Origin + CallbackPath,
		RedirectURL: redirectURL,
	}, nil
}

// HandleCallback runs the ordered verification pipeline over a signed
// result. Each stage short-circuits with a distinct error; on success it
// delegates to the completer and returns the redirect target.
func (p *Provider) HandleCallback(ctx context.Context, result *core.SignInResult, challengeToken, host string) (string, error) {
	if result == nil || !result.Complete() {
		return "", core.ErrMissingFields
	}

	challenge, redirectURL, err := p.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		p.log.Debug().Err(err).Msg("challenge token rejected")
		return "", core.ErrSessionExpired
	}

	// Consume the nonce before any cryptographic work. GetDel is atomic per
	// key, so a concurrent callback replaying the same nonce observes it
	// already gone and fails here no matter how the two interleave.
	if _, err := p.store.GetDel(ctx, noncePrefix+challenge.Nonce); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.ErrInvalidOrExpiredNonce
		}
		p.log.Error().Err(err).Msg("nonce store lookup failed")
		return "", core.ErrAuthenticationFailed
	}

	if err := solana.VerifyResult(result); err != nil {
		p.log.Debug().Err(err).Str("address", result.Address).Msg("signature verification failed")
		return "", core.ErrSignatureVerification
	}

	// Re-parse the raw signed bytes independently of the recovered
	// challenge. A valid signature over a message the server never issued
	// must still fail.
	signed, err := solana.ParseMessage(result.SignedMessage)
	if err != nil {
		p.log.Debug().Err(err).Msg("signed message unparseable")
		return "", core.ErrSignatureVerification
	}
	if signed.Nonce != challenge.Nonce || signed.ChainID != challenge.ChainID || signed.Address != result.Address {
		return "", core.ErrSignatureVerification
	}

	if signed.Domain != host {
		return "", core.ErrDomainMismatch
	}
	now := p.now()
	if signed.ExpirationTime.IsZero() || !now.Before(signed.ExpirationTime) {
		return "", core.ErrMessageExpired
	}
	if !signed.NotBefore.IsZero() && now.Before(signed.NotBefore) {
		return "", core.ErrMessageNotYetValid
	}

	target, err := p.completer.Complete(ctx, core.VerifiedIdentity{Address: result.Address}, redirectURL)
	if err != nil {
		p.log.Error().Err(err).Str("address", result.Address).Msg("session completion failed")
		return "", core.ErrAuthenticationFailed
	}

	p.log.Info().Str("address", result.Address).Msg("wallet sign-in verified")
	return target, nil
}
