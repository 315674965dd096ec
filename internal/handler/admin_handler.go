package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/errcode"
	"github.com/careflow/adrenav/internal/pkg/response"
	"github.com/careflow/adrenav/internal/service"
)

type AdminHandler struct {
	appConfig *service.AppConfigService
	knowledge *service.KnowledgeService
}

func NewAdminHandler(appConfig *service.AppConfigService, knowledge *service.KnowledgeService) *AdminHandler {
	return &AdminHandler{appConfig: appConfig, knowledge: knowledge}
}

func (h *AdminHandler) GetConfig(c *gin.Context) {
	entries, err := h.appConfig.Entries(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"configs": entries})
}

type adminConfigItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type adminConfigRequest struct {
	Configs []adminConfigItem `json:"configs"`
}

// UpdateConfig upserts the submitted settings. Unknown keys are
// silently dropped rather than rejected so stale admin clients keep
// working.
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var req adminConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	values := make(map[string]string)
	for _, item := range req.Configs {
		if !model.IsAppConfigKey(item.Key) {
			continue
		}
		values[item.Key] = item.Value
	}
	if err := h.appConfig.Update(c.Request.Context(), values); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// ListChunks exposes the knowledge corpus for content review.
func (h *AdminHandler) ListChunks(c *gin.Context) {
	chunks := h.knowledge.ListChunks(c.Request.Context())
	response.Success(c, gin.H{"chunks": chunks})
}
