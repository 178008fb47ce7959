package ports

import "github.com/halcyon-id/siws/core"

// Tokenizer converts between domain objects and tamper-evident tokens. The
// challenge token is the scoped client-side carrier that round-trips the
// issued challenge from the authorize page to the callback.
type Tokenizer interface {
	// Challenge token operations. The redirect URI is flow state carried
	// alongside the challenge so the callback can recover both.
	ChallengeToToken(challenge *core.Challenge, redirectURI string) (string, error)
	TokenToChallenge(token string) (*core.Challenge, string, error)

	// Session token operations
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)
}
