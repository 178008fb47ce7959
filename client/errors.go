package client

import "errors"

// Signing-flow errors. All of them are recoverable from the UI's point of
// view: the flow returns to an interactive state and the user may try again.
var (
	ErrConnectionTimeout = errors.New("wallet connection timed out")
	ErrSigningTimeout    = errors.New("signing timed out")
	ErrUnsupportedWallet = errors.New("wallet does not support message signing")
	ErrUserCancelled     = errors.New("user cancelled signing")
	ErrNoWalletsDetected = errors.New("no supported wallets detected")
	ErrCallbackRejected  = errors.New("server rejected the signed message")
)
