package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strainix/timetrack/internal/middleware"
	"github.com/strainix/timetrack/internal/models"
	"github.com/strainix/timetrack/internal/repos"
	"github.com/strainix/timetrack/internal/services"
)

type SessionHandler struct {
	svc *services.SessionService
}

func NewSessionHandler(svc *services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// GenerateUserCode handles POST /api/user-code.
func (h *SessionHandler) GenerateUserCode(c *gin.Context) {
	code, err := h.svc.GenerateUserCode()
	if err != nil {
		if errors.Is(err, services.ErrCodeSpaceExhausted) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unable to generate unique code"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// ListSessions handles GET /api/sessions/:code with optional ?since=T.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	since := parseInt64Default(c.Query("since"), 0)
	out, err := h.svc.ListSessions(c.Param("code"), since)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateSession handles POST /api/sessions/:code.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var body struct {
		StartTime *int64 `json:"startTime"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	out, err := h.svc.CreateSession(c.Param("code"), services.CreateSessionInput{
		DeviceID:  middleware.DeviceIDFromContext(c),
		StartTime: body.StartTime,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UpdateSession handles PUT /api/sessions/:code/:id.
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var body struct {
		StartTime *int64 `json:"startTime"`
		EndTime   *int64 `json:"endTime"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	out, err := h.svc.UpdateSession(c.Param("code"), c.Param("id"), body.StartTime, body.EndTime)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteSession handles DELETE /api/sessions/:code/:id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	out, err := h.svc.DeleteSession(c.Param("code"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Sync handles POST /api/sync/:code, the batch drain endpoint for queued
// offline operations.
func (h *SessionHandler) Sync(c *gin.Context) {
	var ops []models.Operation
	if err := c.ShouldBindJSON(&ops); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	out, err := h.svc.ProcessOperations(c.Param("code"), middleware.DeviceIDFromContext(c), ops)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SessionHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, repos.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseInt64Default(v string, fallback int64) int64 {
	if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		return i
	}
	return fallback
}
