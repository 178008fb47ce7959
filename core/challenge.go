package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Recognized Solana cluster identifiers for the Chain ID field.
const (
	ChainMainnet  = "mainnet"
	ChainDevnet   = "devnet"
	ChainTestnet  = "testnet"
	ChainLocalnet = "localnet"
)

// Version is the sign-in message protocol version.
const Version = "1"

// Challenge is the structured sign-in message a wallet is asked to sign.
// Once issued it is immutable: it travels verbatim from server to browser
// to wallet and is reconstructed from the signed payload at verification.
type Challenge struct {
	Domain         string    // Host the user is signing in to
	Address        string    // Base58 account, empty until the wallet is known
	Statement      string    // Human-readable purpose string
	URI            string    // Origin URL
	Version        string    // Protocol version
	ChainID        string    // Solana cluster identifier
	Nonce          string    // Single-use random value
	IssuedAt       time.Time // When the challenge was created
	ExpirationTime time.Time // When the challenge expires
	NotBefore      time.Time // Zero when absent
}

// ValidChainID reports whether id names a recognized cluster.
func ValidChainID(id string) bool {
	switch id {
	case ChainMainnet, ChainDevnet, ChainTestnet, ChainLocalnet:
		return true
	}
	return false
}

// NonceLength is the number of characters in a generated nonce.
const NonceLength = 16

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewNonce generates a NonceLength-character nonce drawn uniformly from an
// alphanumeric alphabet using crypto/rand. Uniqueness across issued
// challenges rests on this being unpredictable within the validity window.
func NewNonce() (string, error) {
	max := big.NewInt(int64(len(nonceAlphabet)))
	buf := make([]byte, NonceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate nonce: %w", err)
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
