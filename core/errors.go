package core

import "errors"

// Callback pipeline errors. Each verification stage short-circuits with one
// of these; the HTTP layer maps them to stable error codes. Client-visible
// messages carry the code only, so a failed signature and an expired message
// are not distinguishable beyond their code.
var (
	ErrMissingFields         = errors.New("missing_fields")
	ErrSessionExpired        = errors.New("session_expired")
	ErrInvalidOrExpiredNonce = errors.New("invalid_or_expired_nonce")
	ErrSignatureVerification = errors.New("signature_verification_failed")
	ErrDomainMismatch        = errors.New("domain_mismatch")
	ErrMessageExpired        = errors.New("message_expired")
	ErrMessageNotYetValid    = errors.New("message_not_yet_valid")
	ErrAuthenticationFailed  = errors.New("authentication_failed")
)

// Session token errors.
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)

// ErrNotFound is returned by stores when a key is absent, already consumed,
// or expired. Callers must not be able to tell those cases apart.
var ErrNotFound = errors.New("not found")
