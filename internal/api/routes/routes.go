// internal/api/routes/routes.go
package routes

import (
	"net/http"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/api/handlers"
	"delivery-fleet-api-server/internal/api/middleware"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/delivery"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the components the router wires into handlers. Redis and Uploader
// are optional: without them rate limiting and /upload are off.
type Deps struct {
	Config   config.Config
	Delivery *delivery.Service
	Admins   *admin.Service
	Tokens   *auth.TokenService
	Gateway  handlers.LogisticsGateway
	Hub      *socket.Hub
	Uploader handlers.FileUploader
	Redis    *redis.Client
	Log      logger.Logger
}

// SetupRouter builds the engine with every /api/v1 route.
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(d.Log), middleware.Recovery(d.Log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  d.Config.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "x-access-token", middleware.HeaderXRequestID},
		ExposeHeaders: []string{middleware.HeaderXRequestID},
	}))
	if d.Redis != nil {
		router.Use(middleware.RateLimit(d.Redis, d.Config.Redis.RateLimitRPS, d.Log))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := &handlers.AuthHandler{Delivery: d.Delivery, Admins: d.Admins, Tokens: d.Tokens, Log: d.Log}
	deliveryHandler := &handlers.DeliveryHandler{Service: d.Delivery, Gateway: d.Gateway, Log: d.Log}
	adminHandler := &handlers.AdminHandler{Admins: d.Admins, Delivery: d.Delivery, Log: d.Log}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Tokens: d.Tokens, Log: d.Log}

	apiV1 := router.Group("/api/v1")
	{
		// === Public ===
		apiV1.POST("/login", authHandler.Login)
		apiV1.POST("/admin/login", authHandler.AdminLogin)
		apiV1.POST("/refresh-token", authHandler.RefreshToken)
		apiV1.GET("/admin/ws", webSocketHandler.ServeWs)

		// === Any valid token, anonymous included ===
		authed := apiV1.Group("/")
		authed.Use(middleware.Authenticate(d.Tokens, d.Log))
		{
			authed.GET("/driver/:code", deliveryHandler.GetDriver)
			authed.GET("/vehicle/:code", deliveryHandler.GetVehicle)
			if d.Uploader != nil {
				uploadHandler := &handlers.UploadHandler{Uploader: d.Uploader, Folder: "photos", Log: d.Log}
				authed.POST("/upload", uploadHandler.UploadPhotos)
			}
		}

		// === Driver shift ===
		driver := apiV1.Group("/")
		driver.Use(middleware.Authenticate(d.Tokens, d.Log), middleware.RequireDriver(d.Log))
		{
			driver.GET("/routing-sheet", deliveryHandler.RoutingSheet)
			driver.PUT("/route", deliveryHandler.UpdateRoute)
			driver.PUT("/route/complete", deliveryHandler.CompleteRoute)
			driver.PUT("/route/reject", deliveryHandler.RejectRoute)
			driver.GET("/route/:id/history", deliveryHandler.RouteHistory)

			driver.POST("/create-delivery-entry-header", deliveryHandler.CreateDeliveryEntryHeader)
			driver.POST("/close-delivery-entry-header", deliveryHandler.CloseDeliveryEntryHeader)
			driver.POST("/move-place", deliveryHandler.MovePlace)
			driver.POST("/check-loaded-places", deliveryHandler.CheckLoadedPlaces)
			driver.POST("/delivery/print", deliveryHandler.PrintDelivery)
			driver.DELETE("/delivery/label/:generalDeliveryCode", deliveryHandler.ClearLabel)
			driver.POST("/close-routing-sheet", deliveryHandler.CloseRoutingSheet)
			driver.POST("/clear-moved-places", deliveryHandler.ClearMovedPlaces)
			driver.POST("/check-opened-way-bill", deliveryHandler.CheckOpenedWayBill)
		}

		// === Back office ===
		backOffice := apiV1.Group("/")
		backOffice.Use(middleware.Authenticate(d.Tokens, d.Log), middleware.RequireAdmin(d.Log))
		{
			backOffice.GET("/admins", adminHandler.ListAdmins)
			backOffice.GET("/admin/:id", adminHandler.GetAdmin)
			backOffice.POST("/admin", adminHandler.CreateAdmin)
			backOffice.PUT("/admin", adminHandler.UpdateAdmin)
			backOffice.DELETE("/admin/:id", adminHandler.DeleteAdmin)

			backOffice.GET("/admin/routes", adminHandler.ListRoutes)
			backOffice.GET("/admin/routes/:id/logs", adminHandler.RouteLogs)
			backOffice.DELETE("/admin/routes/:id", adminHandler.DeleteRoute)
			backOffice.GET("/admin/shifts/:id", adminHandler.GetShift)
		}
	}

	return router
}
