package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/middleware"
)

type RouterDeps struct {
	Chat           *ChatHandler
	Sessions       *SessionHandler
	Config         *ConfigHandler
	Admin          *AdminHandler
	AdminToken     string
	ChatRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.Session())

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	chatGroup := api.Group("")
	if deps.ChatRateWindow > 0 {
		chatGroup.Use(middleware.RateLimit(deps.ChatRateWindow))
	}
	chatGroup.POST("/chat", deps.Chat.Chat)

	api.GET("/chat/history", deps.Chat.History)
	api.GET("/chat/summary", deps.Chat.Summary)
	api.GET("/config", deps.Config.Public)
	api.GET("/session/export", deps.Sessions.Export)
	api.POST("/session/delete", deps.Sessions.Delete)

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAuth(deps.AdminToken))
	adminGroup.GET("/config", deps.Admin.GetConfig)
	adminGroup.POST("/config", deps.Admin.UpdateConfig)
	adminGroup.GET("/chunks", deps.Admin.ListChunks)
}
