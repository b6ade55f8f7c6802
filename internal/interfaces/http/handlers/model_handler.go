package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// ModelHandler exposes relational threat models, threats, and safeguards.
type ModelHandler struct {
	models *appservice.ModelAppService
}

func NewModelHandler(models *appservice.ModelAppService) *ModelHandler {
	return &ModelHandler{models: models}
}

func (h *ModelHandler) Create(c *gin.Context) {
	var model models.ThreatModel
	if err := c.ShouldBindJSON(&model); err != nil {
		respondError(c, apperrors.ErrValidation("invalid threat model: "+err.Error()))
		return
	}
	if err := h.models.CreateModel(c.Request.Context(), &model); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model)
}

func (h *ModelHandler) Get(c *gin.Context) {
	details, err := h.models.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ModelHandler) Update(c *gin.Context) {
	var model models.ThreatModel
	if err := c.ShouldBindJSON(&model); err != nil {
		respondError(c, apperrors.ErrValidation("invalid threat model: "+err.Error()))
		return
	}
	model.ID = c.Param("id")
	if err := h.models.UpdateModel(c.Request.Context(), &model); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (h *ModelHandler) Delete(c *gin.Context) {
	if err := h.models.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModelHandler) List(c *gin.Context) {
	list, err := h.models.ListModels(c.Request.Context(), c.Query("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}

func (h *ModelHandler) AddThreat(c *gin.Context) {
	var threat models.Threat
	if err := c.ShouldBindJSON(&threat); err != nil {
		respondError(c, apperrors.ErrValidation("invalid threat: "+err.Error()))
		return
	}
	threat.ModelID = c.Param("id")
	if err := h.models.AddThreat(c.Request.Context(), &threat); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, threat)
}

func (h *ModelHandler) ListThreats(c *gin.Context) {
	threats, err := h.models.ListThreats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threats": threats})
}

func (h *ModelHandler) GetThreat(c *gin.Context) {
	threat, err := h.models.GetThreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, threat)
}

func (h *ModelHandler) UpdateThreat(c *gin.Context) {
	var threat models.Threat
	if err := c.ShouldBindJSON(&threat); err != nil {
		respondError(c, apperrors.ErrValidation("invalid threat: "+err.Error()))
		return
	}
	threat.ID = c.Param("id")
	if err := h.models.UpdateThreat(c.Request.Context(), &threat); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, threat)
}

func (h *ModelHandler) DeleteThreat(c *gin.Context) {
	if err := h.models.DeleteThreat(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ModelHandler) AddSafeguard(c *gin.Context) {
	var safeguard models.Safeguard
	if err := c.ShouldBindJSON(&safeguard); err != nil {
		respondError(c, apperrors.ErrValidation("invalid safeguard: "+err.Error()))
		return
	}
	safeguard.ThreatID = c.Param("id")
	if err := h.models.AddSafeguard(c.Request.Context(), &safeguard); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, safeguard)
}

func (h *ModelHandler) ListSafeguards(c *gin.Context) {
	safeguards, err := h.models.ListSafeguards(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"safeguards": safeguards})
}

func (h *ModelHandler) DeleteSafeguard(c *gin.Context) {
	if err := h.models.DeleteSafeguard(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
