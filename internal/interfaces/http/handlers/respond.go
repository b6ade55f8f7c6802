// Package handlers implements the gin HTTP handlers of the service.
package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
)

// respondError renders any error as the standard error body with the status
// its code maps to.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatusOf(err), apperrors.ToErrorResponse(err))
}
