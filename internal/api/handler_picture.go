package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/internal/personio"
)

const (
	defaultPictureWidth = 75
	maxPictureWidth     = 1024
)

// GetProfilePicture handles GET /api/profile-picture/:employee_id?width=.
func (h *Handler) GetProfilePicture(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("employee_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}
	width := defaultPictureWidth
	if raw := c.Query("width"); raw != "" {
		width, err = strconv.Atoi(raw)
		if err != nil || width <= 0 || width > maxPictureWidth {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "width must be between 1 and 1024"})
			return
		}
	}

	if h.pictures == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Profile picture not found"})
		return
	}

	body, contentType, err := h.pictures.ProfilePicture(c.Request.Context(), employeeID, width)
	if err != nil {
		if errors.Is(err, personio.ErrRateLimited) {
			respondError(c, err)
			return
		}
		if !errors.Is(err, personio.ErrNotFound) {
			logrus.WithError(err).WithField("employee_id", employeeID).Warn("profile picture fetch failed")
		}
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Profile picture not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType, body)
}
