package ports

import (
	"io"

	"github.com/halcyon-id/siws/core"
)

// PageData is the client-readable configuration embedded in the sign-in page.
type PageData struct {
	Challenge        core.Challenge
	CallbackURL      string
	RedirectURL      string
	AllowedWallets   []string
	ConnectTimeoutMs int
}

// Renderer produces the sign-in page for an issued challenge.
type Renderer interface {
	Render(w io.Writer, data PageData) error
}
