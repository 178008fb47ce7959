package solana

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/halcyon-id/siws/core"
)

// PublicKeyFromAddress decodes a base58 address into an Ed25519 public key.
func PublicKeyFromAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("base58 decode failed: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key length: got %d, want %d", len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// AddressFromPublicKey encodes an Ed25519 public key as a base58 address.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// VerifyResult checks that a sign-in result is internally consistent: the
// public key must be the one the address encodes, and the signature must be
// a valid Ed25519 signature over the signed message bytes.
func VerifyResult(r *core.SignInResult) error {
	pub, err := PublicKeyFromAddress(r.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if !bytes.Equal(pub, r.PublicKey) {
		return fmt.Errorf("public key does not match address")
	}
	if len(r.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length: got %d, want %d", len(r.Signature), ed25519.SignatureSize)
	}
	if !ed25519.Verify(pub, r.SignedMessage, r.Signature) {
		return fmt.Errorf("signature does not verify")
	}
	return nil
}
