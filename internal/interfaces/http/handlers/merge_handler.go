package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threatsmith/threatsmith/internal/application/dto"
	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// MergeHandler exposes the merge trigger.
type MergeHandler struct {
	merges *appservice.MergeAppService
}

func NewMergeHandler(merges *appservice.MergeAppService) *MergeHandler {
	return &MergeHandler{merges: merges}
}

// Merge handles POST /models/:id/merge. The id may name a relational model
// or, with the document prefix, a stored document.
func (h *MergeHandler) Merge(c *gin.Context) {
	var req dto.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrValidation("invalid merge request: "+err.Error()))
		return
	}

	result, err := h.merges.MergeModels(c.Request.Context(), c.Param("id"), req.SourceModelIDs, req.MergedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
