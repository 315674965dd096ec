package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/pkg/response"
	"github.com/careflow/adrenav/internal/service"
)

type ConfigHandler struct {
	appConfig *service.AppConfigService
}

func NewConfigHandler(appConfig *service.AppConfigService) *ConfigHandler {
	return &ConfigHandler{appConfig: appConfig}
}

// Public returns the clinic settings the patient client binds to,
// every key present, unset ones null.
func (h *ConfigHandler) Public(c *gin.Context) {
	response.Success(c, gin.H{"config": h.appConfig.Public(c.Request.Context())})
}
