package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims carry a full sign-in challenge so the callback can recover
// it without a second storage read.
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce     string `json:"nonce"`
	Domain    string `json:"domain"`
	Statement string `json:"stmt,omitempty"`
	URI       string `json:"uri"`
	Version   string `json:"ver"`
	ChainID   string `json:"chain"`
	NotBefore int64  `json:"cnbf,omitempty"` // challenge Not Before, unix seconds
	// RedirectURI is flow state, not part of the signed message.
	RedirectURI string `json:"rurl,omitempty"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
}

// RefreshClaims are just the standard claims for refresh tokens
type RefreshClaims struct {
	jwt.RegisteredClaims
}
