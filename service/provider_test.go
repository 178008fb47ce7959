package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-id/siws/adapters/store"
	"github.com/halcyon-id/siws/adapters/tokenizer"
	"github.com/halcyon-id/siws/client"
	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/internal/solana"
	"github.com/halcyon-id/siws/ports"
)

const testHost = "app.example.com"
const testOrigin = "https://app.example.com"

type fakeCompleter struct {
	mu         sync.Mutex
	identities []core.VerifiedIdentity
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, identity core.VerifiedIdentity, redirectURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.identities = append(f.identities, identity)
	return redirectURL + "#done", nil
}

type providerFixture struct {
	provider  *Provider
	store     ports.Store
	completer *fakeCompleter
	wallet    *client.KeypairWallet
}

func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	kv := store.NewMemoryStore()
	completer := &fakeCompleter{}
	provider := NewProvider(kv, tokenizer.NewJWTTokenizer(key), completer, ProviderConfig{
		ChainID:        core.ChainMainnet,
		Statement:      "Sign in.",
		ValidityWindow: 10 * time.Minute,
	}, zerolog.Nop())

	return &providerFixture{
		provider:  provider,
		store:     kv,
		completer: completer,
		wallet:    client.NewKeypairWallet("Phantom", client.CapabilitySignIn, priv),
	}
}

// issueAndSign issues a challenge and signs it exactly as the native
// signing-client path would.
func (f *providerFixture) issueAndSign(t *testing.T) (*IssuedChallenge, *core.SignInResult) {
	t.Helper()

	issued, err := f.provider.IssueChallenge(context.Background(), IssueRequest{
		Host:   testHost,
		Origin: testOrigin,
	})
	require.NoError(t, err)

	outcome := f.wallet.SignIn(context.Background(), solana.InputFromChallenge(issued.Challenge))
	require.Equal(t, client.SignOK, outcome.Status)
	require.NotEmpty(t, outcome.Outputs)

	return issued, &outcome.Outputs[0]
}

func TestIssueChallenge(t *testing.T) {
	f := newProviderFixture(t)

	issued, err := f.provider.IssueChallenge(context.Background(), IssueRequest{
		Host:   testHost,
		Origin: testOrigin,
	})
	require.NoError(t, err)

	ch := issued.Challenge
	require.Equal(t, testHost, ch.Domain)
	require.Equal(t, testOrigin, ch.URI)
	require.Equal(t, core.ChainMainnet, ch.ChainID)
	require.Equal(t, "Sign in.", ch.Statement)
	require.Len(t, ch.Nonce, core.NonceLength)
	require.True(t, ch.ExpirationTime.After(ch.IssuedAt))
	require.Equal(t, 10*time.Minute, ch.ExpirationTime.Sub(ch.IssuedAt))

	require.Equal(t, testOrigin+CallbackPath, issued.CallbackURL)
	require.Equal(t, testOrigin, issued.RedirectURL, "redirect defaults to the origin")
	require.NotEmpty(t, issued.Token)

	// The nonce record must exist before the challenge is handed out.
	_, err = f.store.Get(context.Background(), noncePrefix+ch.Nonce)
	require.NoError(t, err)
}

func TestIssueChallengeHonorsRedirectURI(t *testing.T) {
	f := newProviderFixture(t)

	issued, err := f.provider.IssueChallenge(context.Background(), IssueRequest{
		Host:        testHost,
		Origin:      testOrigin,
		RedirectURI: "https://app.example.com/dashboard",
	})
	require.NoError(t, err)
	require.Equal(t, "https://app.example.com/dashboard", issued.RedirectURL)
}

type failingStore struct {
	ports.Store
}

func (failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("store down")
}

func TestIssueChallengeFailsWhenNoncePersistFails(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	provider := NewProvider(failingStore{store.NewMemoryStore()}, tokenizer.NewJWTTokenizer(key), &fakeCompleter{}, ProviderConfig{}, zerolog.Nop())

	_, err = provider.IssueChallenge(context.Background(), IssueRequest{Host: testHost, Origin: testOrigin})
	require.Error(t, err, "a challenge whose nonce failed to persist must not be issued")
}

func TestCallbackRoundTrip(t *testing.T) {
	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	redirect, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.NoError(t, err)
	require.Equal(t, testOrigin+"#done", redirect)

	require.Len(t, f.completer.identities, 1)
	require.Equal(t, f.wallet.Address(), f.completer.identities[0].Address)
}

func TestCallbackFallbackPathEquivalence(t *testing.T) {
	// The generic sign-message construction must verify identically to the
	// native path for an otherwise-identical challenge.
	f := newProviderFixture(t)

	issued, err := f.provider.IssueChallenge(context.Background(), IssueRequest{
		Host:   testHost,
		Origin: testOrigin,
	})
	require.NoError(t, err)

	accounts, err := f.wallet.Connect(context.Background())
	require.NoError(t, err)
	account := accounts[0]

	challenge := issued.Challenge
	challenge.Address = account.Address
	message := []byte(solana.ConstructMessage(challenge))

	outcome := f.wallet.SignMessage(context.Background(), account, message)
	require.Equal(t, client.SignOK, outcome.Status)

	result := &core.SignInResult{
		Address:       account.Address,
		PublicKey:     account.PublicKey,
		Signature:     outcome.Signature,
		SignedMessage: message,
	}

	_, err = f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.NoError(t, err)
}

func TestCallbackMissingFields(t *testing.T) {
	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	incomplete := *result
	incomplete.Signature = nil

	_, err := f.provider.HandleCallback(context.Background(), &incomplete, issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrMissingFields)

	_, err = f.provider.HandleCallback(context.Background(), nil, issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrMissingFields)
}

func TestCallbackRejectsBadChallengeToken(t *testing.T) {
	f := newProviderFixture(t)
	_, result := f.issueAndSign(t)

	_, err := f.provider.HandleCallback(context.Background(), result, "", testHost)
	require.ErrorIs(t, err, core.ErrSessionExpired)

	_, err = f.provider.HandleCallback(context.Background(), result, "garbage.token.here", testHost)
	require.ErrorIs(t, err, core.ErrSessionExpired)
}

func TestCallbackReplayRejected(t *testing.T) {
	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.NoError(t, err)

	_, err = f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrInvalidOrExpiredNonce)
}

func TestCallbackAtMostOnceUnderConcurrency(t *testing.T) {
	// One challenge, many concurrent callbacks with identical valid
	// payloads: exactly one succeeds no matter the interleaving.
	const attempts = 16

	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	var wg sync.WaitGroup
	outcomes := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var successes, replays int
	for err := range outcomes {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, core.ErrInvalidOrExpiredNonce):
			replays++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, replays)
	require.Len(t, f.completer.identities, 1)
}

func TestCallbackExpiredMessage(t *testing.T) {
	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	// The nonce record is still present (its TTL outlives the message in
	// this setup); expiry of the signed message alone must fail.
	f.provider.now = func() time.Time {
		return issued.Challenge.ExpirationTime.Add(time.Second)
	}

	_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrMessageExpired)
}

func TestCallbackNotYetValidMessage(t *testing.T) {
	f := newProviderFixture(t)

	now := time.Now().UTC().Truncate(time.Second)
	challenge := core.Challenge{
		Domain:         testHost,
		Statement:      "Sign in.",
		URI:            testOrigin,
		Version:        core.Version,
		ChainID:        core.ChainMainnet,
		Nonce:          "Zx9fKq2mWp7TnR4v",
		IssuedAt:       now,
		ExpirationTime: now.Add(10 * time.Minute),
		NotBefore:      now.Add(5 * time.Minute),
	}
	require.NoError(t, f.store.Set(context.Background(), noncePrefix+challenge.Nonce, now.Format(time.RFC3339), 10*time.Minute))

	token, err := f.provider.tokenizer.ChallengeToToken(&challenge, testOrigin)
	require.NoError(t, err)

	outcome := f.wallet.SignIn(context.Background(), solana.InputFromChallenge(challenge))
	require.Equal(t, client.SignOK, outcome.Status)

	_, err = f.provider.HandleCallback(context.Background(), &outcome.Outputs[0], token, testHost)
	require.ErrorIs(t, err, core.ErrMessageNotYetValid)
}

func TestCallbackDomainMismatch(t *testing.T) {
	f := newProviderFixture(t)
	issued, result := f.issueAndSign(t)

	_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, "evil.example.com")
	require.ErrorIs(t, err, core.ErrDomainMismatch)

	// No subdomain leniency: the hostname must match byte for byte.
	f2 := newProviderFixture(t)
	issued2, result2 := f2.issueAndSign(t)
	_, err = f2.provider.HandleCallback(context.Background(), result2, issued2.Token, "sub."+testHost)
	require.ErrorIs(t, err, core.ErrDomainMismatch)
}

func TestCallbackTamperedPayload(t *testing.T) {
	f := newProviderFixture(t)

	t.Run("signature", func(t *testing.T) {
		issued, result := f.issueAndSign(t)
		result.Signature[10] ^= 0x01

		_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
		require.ErrorIs(t, err, core.ErrSignatureVerification)
	})

	t.Run("signed message", func(t *testing.T) {
		issued, result := f.issueAndSign(t)
		result.SignedMessage[10] ^= 0x01

		_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
		require.ErrorIs(t, err, core.ErrSignatureVerification)
	})
}

func TestCallbackStaleMessageRejected(t *testing.T) {
	// A cryptographically valid signature over a structurally similar
	// message the server never issued must fail the cross-check.
	f := newProviderFixture(t)

	issued, err := f.provider.IssueChallenge(context.Background(), IssueRequest{
		Host:   testHost,
		Origin: testOrigin,
	})
	require.NoError(t, err)

	stale := issued.Challenge
	stale.Nonce = "0000000000000000"
	outcome := f.wallet.SignIn(context.Background(), solana.InputFromChallenge(stale))
	require.Equal(t, client.SignOK, outcome.Status)

	_, err = f.provider.HandleCallback(context.Background(), &outcome.Outputs[0], issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrSignatureVerification)
}

func TestCallbackCompleterFailure(t *testing.T) {
	f := newProviderFixture(t)
	f.completer.err = errors.New("completion backend down")

	issued, result := f.issueAndSign(t)

	_, err := f.provider.HandleCallback(context.Background(), result, issued.Token, testHost)
	require.ErrorIs(t, err, core.ErrAuthenticationFailed)
}
