package router

import (
	"time"

	"github.com/deadman-dev/deadman/internal/handlers"
	"github.com/deadman-dev/deadman/internal/middleware"
	"github.com/deadman-dev/deadman/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), handlers.UpdateUser)
			auth.DELETE("/me", middleware.AuthMiddleware(), handlers.DeleteUser)
		}

		api.POST("/password-reset", handlers.RequestPasswordReset)
		api.POST("/password-reset-confirm/:token", handlers.ConfirmPasswordReset)

		switches := api.Group("/switches", middleware.AuthMiddleware())
		{
			switches.POST("", handlers.CreateSwitch)
			switches.GET("", handlers.ListSwitches)
			switches.GET("/:switch_id", handlers.GetSwitch)
			switches.PATCH("/:switch_id", handlers.UpdateSwitch)
			switches.DELETE("/:switch_id", handlers.DeleteSwitch)
			switches.POST("/:switch_id/checkin", handlers.CheckInSwitch)
			switches.GET("/:switch_id/checkins", handlers.ListCheckIns)
		}

		api.GET("/actions", middleware.AuthMiddleware(), handlers.ListActionTypes)
		api.POST("/webhook-test", middleware.AuthMiddleware(), handlers.WebhookTest)
		api.GET("/my-status", middleware.AuthMiddleware(), handlers.MyStatus)
	}

	return r
}
