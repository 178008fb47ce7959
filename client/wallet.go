// Package client implements the wallet-side signing flow: discovering
// signing agents, connecting to one, obtaining a signature over a sign-in
// challenge and submitting it to the callback endpoint. It is the Go
// counterpart of the in-page signer and is what tests and headless tooling
// drive.
package client

import (
	"context"
	"strings"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/internal/solana"
)

// Capability describes how a wallet can produce a sign-in signature. It is
// decided once per wallet, not re-probed per call.
type Capability int

const (
	// CapabilityNone means the wallet cannot sign messages at all.
	CapabilityNone Capability = iota
	// CapabilitySignIn means the wallet natively understands sign-in
	// challenges and binds the account itself.
	CapabilitySignIn
	// CapabilitySignMessage means the wallet can only sign arbitrary bytes;
	// the client must render the challenge text itself.
	CapabilitySignMessage
)

// Account identifies a wallet account.
type Account struct {
	Address   string
	PublicKey []byte
}

// SignStatus tags the outcome of a signing call. User cancellation is a
// first-class value rather than an error message to be pattern-matched.
type SignStatus int

const (
	SignOK SignStatus = iota
	SignCancelled
	SignFailed
)

// SignInOutcome is the tagged result of a native sign-in call.
type SignInOutcome struct {
	Status  SignStatus
	Outputs []core.SignInResult // one per signed account when Status == SignOK
	Reason  string              // set when Status == SignFailed
}

// SignMessageOutcome is the tagged result of a generic message signature.
type SignMessageOutcome struct {
	Status    SignStatus
	Signature []byte
	Reason    string
}

// Wallet is a signing agent. Connect and the signing calls are suspend
// points awaiting an external program; callers wrap them with timeouts.
type Wallet interface {
	Name() string
	Capability() Capability
	Connect(ctx context.Context) ([]Account, error)
	SignIn(ctx context.Context, input solana.SignInInput) SignInOutcome
	SignMessage(ctx context.Context, account Account, message []byte) SignMessageOutcome
}

// rejection vocabulary used by wallets that only surface cancellation as an
// error string. Different wallets word this differently, so the list errs on
// the side of matching; wallets with a typed cancellation should return
// SignCancelled directly instead.
var rejectionWords = []string{"reject", "cancel", "denied", "declined", "dismiss"}

// IsRejectionText reports whether an error message reads like the user
// declining in the wallet rather than a real failure.
func IsRejectionText(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range rejectionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
