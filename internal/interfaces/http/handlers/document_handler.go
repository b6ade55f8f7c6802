package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threatsmith/threatsmith/internal/application/dto"
	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// DocumentHandler exposes generated threat-model documents.
type DocumentHandler struct {
	docs *appservice.DocumentAppService
}

func NewDocumentHandler(docs *appservice.DocumentAppService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) Store(c *gin.Context) {
	var req dto.StoreDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrValidation("invalid document: "+err.Error()))
		return
	}
	doc := &models.ThreatModelDocument{
		ID:      req.ID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.docs.StoreDocument(c.Request.Context(), doc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	details, err := h.docs.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
