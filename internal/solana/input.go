package solana

import (
	"time"

	"github.com/halcyon-id/siws/core"
)

// SignInInput is the wallet-standard wire form of a challenge: all-string
// fields, timestamps in RFC3339. This is what the sign-in page embeds and
// what a wallet's native sign-in capability receives.
type SignInInput struct {
	Domain         string `json:"domain"`
	Address        string `json:"address,omitempty"`
	Statement      string `json:"statement,omitempty"`
	URI            string `json:"uri,omitempty"`
	Version        string `json:"version,omitempty"`
	ChainID        string `json:"chainId,omitempty"`
	Nonce          string `json:"nonce"`
	IssuedAt       string `json:"issuedAt,omitempty"`
	ExpirationTime string `json:"expirationTime,omitempty"`
	NotBefore      string `json:"notBefore,omitempty"`
}

// InputFromChallenge converts a challenge to its wire form.
func InputFromChallenge(c core.Challenge) SignInInput {
	in := SignInInput{
		Domain:    c.Domain,
		Address:   c.Address,
		Statement: c.Statement,
		URI:       c.URI,
		Version:   c.Version,
		ChainID:   c.ChainID,
		Nonce:     c.Nonce,
	}
	if !c.IssuedAt.IsZero() {
		in.IssuedAt = c.IssuedAt.UTC().Format(time.RFC3339)
	}
	if !c.ExpirationTime.IsZero() {
		in.ExpirationTime = c.ExpirationTime.UTC().Format(time.RFC3339)
	}
	if !c.NotBefore.IsZero() {
		in.NotBefore = c.NotBefore.UTC().Format(time.RFC3339)
	}
	return in
}

// ChallengeFromInput converts the wire form back to a challenge. Malformed
// timestamps are rejected.
func ChallengeFromInput(in SignInInput) (core.Challenge, error) {
	c := core.Challenge{
		Domain:    in.Domain,
		Address:   in.Address,
		Statement: in.Statement,
		URI:       in.URI,
		Version:   in.Version,
		ChainID:   in.ChainID,
		Nonce:     in.Nonce,
	}
	var err error
	if in.IssuedAt != "" {
		if c.IssuedAt, err = time.Parse(time.RFC3339, in.IssuedAt); err != nil {
			return c, err
		}
	}
	if in.ExpirationTime != "" {
		if c.ExpirationTime, err = time.Parse(time.RFC3339, in.ExpirationTime); err != nil {
			return c, err
		}
	}
	if in.NotBefore != "" {
		if c.NotBefore, err = time.Parse(time.RFC3339, in.NotBefore); err != nil {
			return c, err
		}
	}
	return c, nil
}
