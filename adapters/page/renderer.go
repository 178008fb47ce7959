// Package page renders the server-side sign-in page. The page carries the
// issued challenge, the callback URL and the post-login redirect as a
// client-readable configuration block; everything after that (wallet
// discovery, connecting, signing) happens in the browser without further
// server round-trips.
package page

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/halcyon-id/siws/internal/solana"
	"github.com/halcyon-id/siws/ports"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/signer.js
var signerScript []byte

// SignerScript returns the in-page signing client bundle.
func SignerScript() []byte {
	return signerScript
}

// HTMLRenderer implements the Renderer interface over an embedded template.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded sign-in template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/signin.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse sign-in template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

var _ ports.Renderer = (*HTMLRenderer)(nil)

type pageModel struct {
	Domain     string
	Statement  string
	ConfigJSON template.JS
}

type pageConfig struct {
	Challenge        solana.SignInInput `json:"challenge"`
	CallbackURL      string             `json:"callbackUrl"`
	RedirectURL      string             `json:"redirectUrl"`
	AllowedWallets   []string           `json:"allowedWallets"`
	ConnectTimeoutMs int                `json:"connectTimeoutMs"`
}

// Render writes the sign-in page for an issued challenge.
func (r *HTMLRenderer) Render(w io.Writer, data ports.PageData) error {
	cfg, err := json.Marshal(pageConfig{
		Challenge:        solana.InputFromChallenge(data.Challenge),
		CallbackURL:      data.CallbackURL,
		RedirectURL:      data.RedirectURL,
		AllowedWallets:   data.AllowedWallets,
		ConnectTimeoutMs: data.ConnectTimeoutMs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal page config: %w", err)
	}

	model := pageModel{
		Domain:     data.Challenge.Domain,
		Statement:  data.Challenge.Statement,
		ConfigJSON: template.JS(cfg),
	}
	if err := r.tmpl.Execute(w, model); err != nil {
		return fmt.Errorf("failed to render sign-in page: %w", err)
	}
	return nil
}
