package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgoj/rotalog/internal/version"
)

// VersionHandler returns the current version information
func VersionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}
