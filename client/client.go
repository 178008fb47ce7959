package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/internal/solana"
)

// Config is the client-readable configuration the sign-in page embeds.
type Config struct {
	Challenge      solana.SignInInput
	CallbackURL    string
	RedirectURL    string
	ConnectTimeout time.Duration
	HTTPClient     *http.Client // must carry the challenge cookie; defaults to http.DefaultClient
}

// Client drives a single sign-in attempt: connect to a wallet, obtain a
// signature over the challenge and submit it to the callback endpoint.
type Client struct {
	registry *Registry
	cfg      Config
}

// New creates a client over a wallet registry.
func New(registry *Registry, cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{registry: registry, cfg: cfg}
}

// Result is the successful end of the flow: the target the caller should
// navigate to. The server answers the callback with JSON rather than a
// redirect because the POST comes from a script context.
type Result struct {
	RedirectURL string
}

// ConnectAndSign connects to the named wallet, signs the challenge through
// whichever capability the wallet offers and posts the result to the
// callback. Timeouts are cooperative: a non-responsive wallet call is
// abandoned, not aborted, and its eventual result is ignored.
func (c *Client) ConnectAndSign(ctx context.Context, walletName string) (*Result, error) {
	if len(c.registry.Wallets()) == 0 {
		return nil, ErrNoWalletsDetected
	}
	wallet, ok := c.registry.Lookup(walletName)
	if !ok {
		return nil, fmt.Errorf("wallet %q is not available", walletName)
	}

	accounts, err := c.connect(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var result *core.SignInResult
	switch wallet.Capability() {
	case CapabilitySignIn:
		result, err = c.signInNative(ctx, wallet)
	case CapabilitySignMessage:
		result, err = c.signGeneric(ctx, wallet, accounts)
	default:
		return nil, ErrUnsupportedWallet
	}
	if err != nil {
		return nil, err
	}

	return c.submit(ctx, result)
}

func (c *Client) connect(ctx context.Context, wallet Wallet) ([]Account, error) {
	type connectResult struct {
		accounts []Account
		err      error
	}

	done := make(chan connectResult, 1)
	go func() {
		accounts, err := wallet.Connect(ctx)
		done <- connectResult{accounts, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("wallet connection failed: %w", res.err)
		}
		return res.accounts, nil
	case <-time.After(c.cfg.ConnectTimeout):
		return nil, ErrConnectionTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// signInNative uses the wallet's native sign-in capability: the wallet
// renders and signs the challenge itself, possibly for several accounts; the
// first output wins.
func (c *Client) signInNative(ctx context.Context, wallet Wallet) (*core.SignInResult, error) {
	outcome, timedOut := awaitSignIn(ctx, c.cfg.ConnectTimeout, func() SignInOutcome {
		return wallet.SignIn(ctx, c.cfg.Challenge)
	})
	if timedOut {
		return nil, ErrSigningTimeout
	}

	switch outcome.Status {
	case SignCancelled:
		return nil, ErrUserCancelled
	case SignFailed:
		if IsRejectionText(outcome.Reason) {
			return nil, ErrUserCancelled
		}
		return nil, fmt.Errorf("wallet signing failed: %s", outcome.Reason)
	}

	if len(outcome.Outputs) == 0 {
		return nil, fmt.Errorf("wallet returned no accounts")
	}
	out := outcome.Outputs[0]
	return &out, nil
}

// signGeneric falls back to the generic sign-message capability: render the
// challenge into its canonical text with the connected account's address
// bound in (the generic path has no other way to associate signer identity)
// and sign those bytes.
func (c *Client) signGeneric(ctx context.Context, wallet Wallet, accounts []Account) (*core.SignInResult, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("wallet returned no accounts")
	}
	account := accounts[0]

	challenge, err := solana.ChallengeFromInput(c.cfg.Challenge)
	if err != nil {
		return nil, fmt.Errorf("malformed challenge: %w", err)
	}
	challenge.Address = account.Address
	message := []byte(solana.ConstructMessage(challenge))

	outcome, timedOut := awaitSignMessage(ctx, c.cfg.ConnectTimeout, func() SignMessageOutcome {
		return wallet.SignMessage(ctx, account, message)
	})
	if timedOut {
		return nil, ErrSigningTimeout
	}

	switch outcome.Status {
	case SignCancelled:
		return nil, ErrUserCancelled
	case SignFailed:
		if IsRejectionText(outcome.Reason) {
			return nil, ErrUserCancelled
		}
		return nil, fmt.Errorf("wallet signing failed: %s", outcome.Reason)
	}

	return &core.SignInResult{
		Address:       account.Address,
		PublicKey:     account.PublicKey,
		Signature:     outcome.Signature,
		SignedMessage: message,
	}, nil
}

type callbackResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl"`
	Error       string `json:"error"`
}

func (c *Client) submit(ctx context.Context, result *core.SignInResult) (*Result, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed callbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unreadable callback response: %w", err)
	}

	if !parsed.Success || parsed.RedirectURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrCallbackRejected, parsed.Error)
	}
	return &Result{RedirectURL: parsed.RedirectURL}, nil
}

// awaitSignIn runs a signing call in its own goroutine and stops waiting at
// the deadline. There is no hard abort: the call may still resolve later and
// is dropped.
func awaitSignIn(ctx context.Context, timeout time.Duration, fn func() SignInOutcome) (SignInOutcome, bool) {
	done := make(chan SignInOutcome, 1)
	go func() { done <- fn() }()
	select {
	case out := <-done:
		return out, false
	case <-time.After(timeout):
		return SignInOutcome{}, true
	case <-ctx.Done():
		return SignInOutcome{}, true
	}
}

func awaitSignMessage(ctx context.Context, timeout time.Duration, fn func() SignMessageOutcome) (SignMessageOutcome, bool) {
	done := make(chan SignMessageOutcome, 1)
	go func() { done <- fn() }()
	select {
	case out := <-done:
		return out, false
	case <-time.After(timeout):
		return SignMessageOutcome{}, true
	case <-ctx.Done():
		return SignMessageOutcome{}, true
	}
}
