package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// ProjectHandler exposes projects, components, and vulnerability findings.
type ProjectHandler struct {
	projects *appservice.ProjectAppService
}

func NewProjectHandler(projects *appservice.ProjectAppService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		respondError(c, apperrors.ErrValidation("invalid project: "+err.Error()))
		return
	}
	if err := h.projects.CreateProject(c.Request.Context(), &project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		respondError(c, apperrors.ErrValidation("invalid project: "+err.Error()))
		return
	}
	project.ID = c.Param("id")
	if err := h.projects.UpdateProject(c.Request.Context(), &project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) AddComponent(c *gin.Context) {
	var component models.Component
	if err := c.ShouldBindJSON(&component); err != nil {
		respondError(c, apperrors.ErrValidation("invalid component: "+err.Error()))
		return
	}
	component.ProjectID = c.Param("id")
	if err := h.projects.AddComponent(c.Request.Context(), &component); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, component)
}

func (h *ProjectHandler) ListComponents(c *gin.Context) {
	components, err := h.projects.ListComponents(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"components": components})
}

func (h *ProjectHandler) DeleteComponent(c *gin.Context) {
	if err := h.projects.RemoveComponent(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) ListVulnerabilities(c *gin.Context) {
	vulns, err := h.projects.ListVulnerabilities(c.Request.Context(), c.Query("component_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vulnerabilities": vulns})
}
