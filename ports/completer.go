package ports

import (
	"context"

	"github.com/halcyon-id/siws/core"
)

// Completer finishes authentication for a verified identity and yields the
// redirect target the signing client should navigate to. The callback is an
// API call from a script context, so the redirect is returned as data rather
// than issued as an HTTP redirect.
type Completer interface {
	Complete(ctx context.Context, identity core.VerifiedIdentity, redirectURL string) (string, error)
}
