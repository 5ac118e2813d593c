package routes

import (
	"github.com/communitylink/communitylink/internal/app/controllers"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// Handlers groups the controllers mounted under /api/v1
type Handlers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Action       *controllers.ActionController
	Application  *controllers.ApplicationController
	Notification *controllers.NotificationController
	Health       *controllers.HealthController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all API routes
func SetupRouter(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	// API version group. The actor is resolved for every request; anonymous is fine here.
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.ResolveActor())

	v1.GET("/health", h.Health.Health)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// --- Public action routes ---
	actions := v1.Group("/actions")
	{
		actions.GET("", h.Action.ListActions)
		actions.GET("/:id", h.Action.GetAction)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	me := authenticated.Group("/me")
	{
		me.GET("", h.Auth.Me)
		me.GET("/profile", h.User.GetProfile)
		me.PUT("/profile", h.User.UpdateProfile)
		me.GET("/history", h.User.History)
		me.GET("/actions", h.User.MyActions)
	}

	actionsProtected := authenticated.Group("/actions")
	{
		actionsProtected.POST("", h.Action.CreateAction)
		actionsProtected.PUT("/:id", h.Action.UpdateAction)
		actionsProtected.DELETE("/:id", h.Action.DeleteAction)
		actionsProtected.PUT("/:id/notes", h.Action.UpdateNotes)
		actionsProtected.POST("/:id/apply", h.Action.Apply)

		// Organizer decisions on one action's applications
		actionsProtected.GET("/:id/applications", h.Action.ManageApplications)
		actionsProtected.POST("/:id/applications/:applicationId/accept", h.Action.AcceptApplication)
		actionsProtected.POST("/:id/applications/:applicationId/reject", h.Action.RejectApplication)
		actionsProtected.POST("/:id/applications/:applicationId/remove", h.Action.RemoveApplication)
	}

	applications := authenticated.Group("/applications")
	{
		applications.GET("", h.Application.ListMyApplications)
		applications.POST("", h.Application.CreateApplication)
		applications.GET("/:id", h.Application.GetApplication)
		applications.PUT("/:id", h.Application.UpdateComment)
		applications.POST("/:id/cancel", h.Application.CancelApplication)
	}

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread-count", h.Notification.UnreadCount)
		notifications.POST("/:id/read", h.Notification.MarkRead)
		notifications.DELETE("/read", h.Notification.ClearRead)
		if h.WebSocket != nil {
			notifications.GET("/ws", h.WebSocket.HandleConnection)
		}
	}
}
