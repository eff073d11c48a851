package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// pinger is implemented by diaries that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(c *gin.Context) {
	if p, ok := s.diary.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "My Plant Diaries API is running"})
}
