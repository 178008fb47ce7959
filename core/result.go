package core

import (
	"encoding/json"
	"fmt"
)

// ByteSlice is a byte slice that marshals to and from a JSON array of byte
// values. Wallet adapters ship binary payloads as plain number arrays rather
// than base64 strings, so the callback body uses this instead of []byte.
type ByteSlice []byte

// MarshalJSON encodes b as a JSON array of numbers.
func (b ByteSlice) MarshalJSON() ([]byte, error) {
	vals := make([]uint16, len(b))
	for i, v := range b {
		vals[i] = uint16(v)
	}
	return json.Marshal(vals)
}

// UnmarshalJSON decodes a JSON array of numbers in [0, 255].
func (b *ByteSlice) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("byte array expected: %w", err)
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value out of range at index %d: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// SignInResult is what the wallet returns after signing a challenge. It is
// produced by the wallet, held transiently by the signing client, transmitted
// once to the callback endpoint and never persisted.
type SignInResult struct {
	Address       string    `json:"address"`
	PublicKey     ByteSlice `json:"publicKey"`
	Signature     ByteSlice `json:"signature"`
	SignedMessage ByteSlice `json:"signedMessage"`
}

// Complete reports whether every field is present and non-empty.
func (r *SignInResult) Complete() bool {
	return r.Address != "" && len(r.PublicKey) > 0 && len(r.Signature) > 0 && len(r.SignedMessage) > 0
}

// VerifiedIdentity is the durable output of a successful callback: a wallet
// address whose control has been cryptographically proven. Mapping it to a
// stable user record is the session completer's concern.
type VerifiedIdentity struct {
	Address string `json:"address"`
}
