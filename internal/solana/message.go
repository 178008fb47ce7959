// Package solana implements the Sign In With Solana message format and
// Ed25519 signature verification. Addresses are base58-encoded Ed25519
// public keys; the canonical signed artifact is the human-readable text
// rendering of a sign-in challenge.
package solana

import (
	"fmt"
	"strings"
	"time"

	"github.com/halcyon-id/siws/core"
)

const signInPhrase = " wants you to sign in with your Solana account:"

// ConstructMessage renders a challenge into its canonical text form. The
// wallet signs exactly these bytes; verification re-renders and re-parses
// them, so the rendering must be deterministic.
func ConstructMessage(c core.Challenge) string {
	var b strings.Builder

	b.WriteString(c.Domain)
	b.WriteString(signInPhrase)
	b.WriteString("\n")
	b.WriteString(c.Address)
	b.WriteString("\n")

	if c.Statement != "" {
		b.WriteString("\n")
		b.WriteString(c.Statement)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	writeField(&b, "URI", c.URI)
	writeField(&b, "Version", c.Version)
	writeField(&b, "Chain ID", c.ChainID)
	writeField(&b, "Nonce", c.Nonce)
	if !c.IssuedAt.IsZero() {
		writeField(&b, "Issued At", c.IssuedAt.UTC().Format(time.RFC3339))
	}
	if !c.ExpirationTime.IsZero() {
		writeField(&b, "Expiration Time", c.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if !c.NotBefore.IsZero() {
		writeField(&b, "Not Before", c.NotBefore.UTC().Format(time.RFC3339))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func writeField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// ParseMessage reconstructs a challenge from signed message bytes. It is the
// inverse of ConstructMessage and is used at verification time to cross-check
// the message the wallet actually signed against the one the server issued.
func ParseMessage(raw []byte) (core.Challenge, error) {
	var c core.Challenge

	lines := strings.Split(string(raw), "\n")
	if len(lines) < 2 {
		return c, fmt.Errorf("message too short")
	}
	if !strings.HasSuffix(lines[0], signInPhrase) {
		return c, fmt.Errorf("malformed header line")
	}
	c.Domain = strings.TrimSuffix(lines[0], signInPhrase)
	if c.Domain == "" {
		return c, fmt.Errorf("empty domain")
	}
	c.Address = lines[1]
	if c.Address == "" {
		return c, fmt.Errorf("empty address")
	}

	// Anything between the address and the first "Key: value" line is the
	// optional statement block.
	i := 2
	var statement []string
	for ; i < len(lines); i++ {
		if isFieldLine(lines[i]) {
			break
		}
		if lines[i] != "" {
			statement = append(statement, lines[i])
		}
	}
	c.Statement = strings.Join(statement, "\n")

	for ; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		key, value, ok := strings.Cut(lines[i], ": ")
		if !ok {
			return c, fmt.Errorf("malformed field line %q", lines[i])
		}
		switch key {
		case "URI":
			c.URI = value
		case "Version":
			c.Version = value
		case "Chain ID":
			c.ChainID = value
		case "Nonce":
			c.Nonce = value
		case "Issued At":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return c, fmt.Errorf("invalid Issued At: %w", err)
			}
			c.IssuedAt = t
		case "Expiration Time":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return c, fmt.Errorf("invalid Expiration Time: %w", err)
			}
			c.ExpirationTime = t
		case "Not Before":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return c, fmt.Errorf("invalid Not Before: %w", err)
			}
			c.NotBefore = t
		default:
			// Unknown fields (Request ID, Resources) are tolerated.
		}
	}

	if c.Nonce == "" {
		return c, fmt.Errorf("missing nonce")
	}
	return c, nil
}

var fieldKeys = []string{
	"URI: ", "Version: ", "Chain ID: ", "Nonce: ",
	"Issued At: ", "Expiration Time: ", "Not Before: ",
	"Request ID: ", "Resources:",
}

func isFieldLine(line string) bool {
	for _, k := range fieldKeys {
		if strings.HasPrefix(line, k) {
			return true
		}
	}
	return false
}
