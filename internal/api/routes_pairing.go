package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/classroom/internal/handlers"
	"github.com/charlesng35/classroom/internal/middleware"
)

func registerPairingRoutes(api *gin.RouterGroup, handler *handlers.PairingHandler) {
	if api == nil || handler == nil {
		return
	}

	qr := api.Group("/qr")
	qr.Use(middleware.NoStore())
	{
		// Issuance is also served on GET for clients of the original route.
		qr.GET("/generate", handler.Generate)
		qr.POST("/generate", handler.Generate)
		qr.GET("/auth/:id", handler.Authenticate)
		qr.POST("/auth/:id", handler.Authenticate)
		qr.GET("/check/:id", handler.Check)
		qr.GET("/code/:id", handler.QRCode)
		qr.GET("/watch/:id", handler.Watch)
	}
}
