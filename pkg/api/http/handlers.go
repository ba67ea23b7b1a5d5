package http

import (
	"net/http"

	"github.com/aescanero/notifeed/internal/application/history"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationsResponse represents the stored history
type NotificationsResponse struct {
	Notifications []string `json:"notifications"`
	Status        string   `json:"status"`
	Count         int      `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handlePage serves the rendered notification page
func (s *Server) handlePage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)

	if _, err := s.page.WriteTo(c.Writer); err != nil {
		s.logger.Error("failed to write page", zap.Error(err))
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := s.health.Status()

	code := http.StatusOK
	state := "healthy"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    state,
		"timestamp": status.Timestamp,
		"checks": gin.H{
			"connection": status.Connected,
			"store":      status.StoreReachable,
		},
	})
}

// handleListNotifications returns the stored history
func (s *Server) handleListNotifications(c *gin.Context) {
	res, err := s.history.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_UNAVAILABLE",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, NotificationsResponse{
		Notifications: res.Entries,
		Status:        string(res.Status),
		Count:         len(res.Entries),
	})
}

// handleClearNotifications empties the history and re-renders the page
func (s *Server) handleClearNotifications(c *gin.Context) {
	entries, err := s.clearer.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORE_UNAVAILABLE",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, NotificationsResponse{
		Notifications: entries,
		Status:        string(history.StatusLoaded),
		Count:         len(entries),
	})
}
