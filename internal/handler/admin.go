// internal/handler/admin.go

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgoj/rotalog/internal/level"
	"github.com/orgoj/rotalog/internal/logger"
)

// LevelController is the part of the dispatcher exposed over HTTP.
type LevelController interface {
	Levels() map[string]level.Level
	SetLevel(target string, l level.Level) error
	Flush() error
}

// AdminHandlers serves runtime level changes and flushes.
type AdminHandlers struct {
	ctl LevelController
}

func NewAdminHandlers(ctl LevelController) *AdminHandlers {
	if ctl == nil {
		panic("handler: LevelController cannot be nil")
	}
	return &AdminHandlers{ctl: ctl}
}

type setLevelRequest struct {
	Level string `json:"level" binding:"required"`
}

// GetLevels handles GET /levels.
func (h *AdminHandlers) GetLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctl.Levels())
}

// SetLevel handles PUT /levels/:target.
func (h *AdminHandlers) SetLevel(c *gin.Context) {
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"level\": \"<name>\"}"})
		return
	}
	l, err := level.Parse(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ctl.SetLevel(c.Param("target"), l); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, logger.ErrUnknownTarget):
			status = http.StatusNotFound
		case errors.Is(err, logger.ErrSinkNotConfigured):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.ctl.Levels())
}

// Flush handles POST /flush.
func (h *AdminHandlers) Flush(c *gin.Context) {
	if err := h.ctl.Flush(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "flushed"})
}

// Health handles GET and HEAD /health.
func Health(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
