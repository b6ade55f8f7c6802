package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threatsmith/threatsmith/internal/application/dto"
	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// SettingsHandler exposes the key/value settings.
type SettingsHandler struct {
	settings *appservice.SettingsAppService
}

func NewSettingsHandler(settings *appservice.SettingsAppService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	setting, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *SettingsHandler) Set(c *gin.Context) {
	var req dto.SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrValidation("invalid setting: "+err.Error()))
		return
	}
	setting := &models.Setting{Key: c.Param("key"), Value: req.Value}
	if err := h.settings.Set(c.Request.Context(), setting); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
