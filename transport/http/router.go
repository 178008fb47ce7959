package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/halcyon-id/siws/adapters/page"
	"github.com/halcyon-id/siws/ports"
	"github.com/halcyon-id/siws/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(provider *service.Provider, sessions *service.SessionService, renderer ports.Renderer, log zerolog.Logger) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(provider, sessions, renderer, log)

	// Sign-in-with-wallet flow
	siws := router.Group("/auth/siws")
	{
		siws.GET("/authorize", handlers.Authorize)
		siws.POST("/callback", handlers.Callback)
		siws.GET("/static/signer.js", handlers.SignerScript(page.SignerScript()))
	}

	// Session management
	auth := router.Group("/auth")
	{
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(sessions))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
