package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/ports"
	"github.com/halcyon-id/siws/service"
)

// ChallengeCookie carries the issued challenge from the authorize page to
// the callback. Scoped to the provider's path so it never travels elsewhere.
const ChallengeCookie = "siws_challenge"

const providerPath = "/auth/siws"

// Handlers contains the HTTP handlers for the provider and session endpoints.
type Handlers struct {
	provider *service.Provider
	sessions *service.SessionService
	renderer ports.Renderer
	log      zerolog.Logger
}

// NewHandlers creates new handlers.
func NewHandlers(provider *service.Provider, sessions *service.SessionService, renderer ports.Renderer, log zerolog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		sessions: sessions,
		renderer: renderer,
		log:      log,
	}
}

// Authorize handles GET /auth/siws/authorize: issues a challenge, sets the
// challenge cookie and renders the sign-in page.
func (h *Handlers) Authorize(c *gin.Context) {
	origin := requestOrigin(c.Request)

	issued, err := h.provider.IssueChallenge(c.Request.Context(), service.IssueRequest{
		Host:        c.Request.Host,
		Origin:      origin,
		RedirectURI: c.Query("redirect_uri"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue challenge")
		c.JSON(http.StatusInternalServerError, gin.H{"error": core.ErrAuthenticationFailed.Error()})
		return
	}

	cfg := h.provider.Config()
	maxAge := int(cfg.ValidityWindow.Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(ChallengeCookie, issued.Token, maxAge, providerPath, "", c.Request.TLS != nil, true)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err = h.renderer.Render(c.Writer, ports.PageData{
		Challenge:        issued.Challenge,
		CallbackURL:      issued.CallbackURL,
		RedirectURL:      issued.RedirectURL,
		AllowedWallets:   cfg.AllowedWallets,
		ConnectTimeoutMs: int(cfg.ConnectTimeout.Milliseconds()),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to render sign-in page")
	}
}

// Callback handles POST /auth/siws/callback: runs the verification pipeline
// over the signed result and answers with JSON the signing client can act on.
func (h *Handlers) Callback(c *gin.Context) {
	var result core.SignInResult
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrMissingFields.Error()})
		return
	}

	// An absent cookie fails the pipeline's challenge-recovery stage.
	token, _ := c.Cookie(ChallengeCookie)

	// The cookie is single-attempt state; drop it whatever the outcome.
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(ChallengeCookie, "", -1, providerPath, "", c.Request.TLS != nil, true)

	redirectURL, err := h.provider.HandleCallback(c.Request.Context(), &result, token, c.Request.Host)
	if err != nil {
		status, code := callbackError(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("callback failed")
		}
		c.JSON(status, gin.H{"error": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"redirectUrl": redirectURL,
	})
}

// callbackError maps pipeline errors to an HTTP status and a stable error
// code. Anything unrecognized is reported as a generic failure so internals
// never leak to the client.
func callbackError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingFields),
		errors.Is(err, core.ErrSessionExpired),
		errors.Is(err, core.ErrInvalidOrExpiredNonce):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrSignatureVerification),
		errors.Is(err, core.ErrDomainMismatch),
		errors.Is(err, core.ErrMessageExpired),
		errors.Is(err, core.ErrMessageNotYetValid):
		return http.StatusUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, core.ErrAuthenticationFailed.Error()
	}
}

// SignerScript serves the in-page signing client bundle.
func (h *Handlers) SignerScript(script []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
	}
}

// Refresh handles token refresh
func (h *Handlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300, // 5 minutes in seconds
	})
}

// Logout handles session logout
func (h *Handlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.sessions.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to logout"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			// Even if expired, we'll consider logout successful
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	// User address is set by the auth middleware
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
	})
}

// requestOrigin reconstructs the scheme://host origin of a request.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
