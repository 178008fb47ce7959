package client

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/internal/solana"
)

// KeypairWallet is an in-process wallet backed by a single Ed25519 keypair.
// It serves local tooling and tests; both signing capabilities are
// selectable so either server path can be exercised.
type KeypairWallet struct {
	name       string
	capability Capability
	priv       ed25519.PrivateKey
	pub        ed25519.PublicKey

	// RejectNext makes the next signing call report user cancellation.
	RejectNext bool
	// Delay stalls every call, for exercising timeouts.
	Delay time.Duration
}

// NewKeypairWallet creates a wallet around an existing private key.
func NewKeypairWallet(name string, capability Capability, priv ed25519.PrivateKey) *KeypairWallet {
	return &KeypairWallet{
		name:       name,
		capability: capability,
		priv:       priv,
		pub:        priv.Public().(ed25519.PublicKey),
	}
}

var _ Wallet = (*KeypairWallet)(nil)

func (w *KeypairWallet) Name() string { return w.name }

func (w *KeypairWallet) Capability() Capability { return w.capability }

// Address returns the wallet's base58 address.
func (w *KeypairWallet) Address() string {
	return solana.AddressFromPublicKey(w.pub)
}

// Connect returns the wallet's single account.
func (w *KeypairWallet) Connect(ctx context.Context) ([]Account, error) {
	w.stall()
	return []Account{{Address: w.Address(), PublicKey: append([]byte(nil), w.pub...)}}, nil
}

// SignIn renders the challenge with this wallet's address bound in and signs
// it, the way a wallet with native sign-in support does.
func (w *KeypairWallet) SignIn(ctx context.Context, input solana.SignInInput) SignInOutcome {
	w.stall()
	if w.takeRejection() {
		return SignInOutcome{Status: SignCancelled}
	}

	challenge, err := solana.ChallengeFromInput(input)
	if err != nil {
		return SignInOutcome{Status: SignFailed, Reason: err.Error()}
	}
	if challenge.Address == "" {
		challenge.Address = w.Address()
	}

	message := []byte(solana.ConstructMessage(challenge))
	signature := ed25519.Sign(w.priv, message)

	return SignInOutcome{
		Status: SignOK,
		Outputs: []core.SignInResult{{
			Address:       w.Address(),
			PublicKey:     append([]byte(nil), w.pub...),
			Signature:     signature,
			SignedMessage: message,
		}},
	}
}

// SignMessage signs arbitrary bytes.
func (w *KeypairWallet) SignMessage(ctx context.Context, account Account, message []byte) SignMessageOutcome {
	w.stall()
	if w.takeRejection() {
		return SignMessageOutcome{Status: SignCancelled}
	}
	return SignMessageOutcome{
		Status:    SignOK,
		Signature: ed25519.Sign(w.priv, message),
	}
}

func (w *KeypairWallet) stall() {
	if w.Delay > 0 {
		time.Sleep(w.Delay)
	}
}

func (w *KeypairWallet) takeRejection() bool {
	if w.RejectNext {
		w.RejectNext = false
		return true
	}
	return false
}
