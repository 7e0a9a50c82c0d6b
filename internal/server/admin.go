package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/healx/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) CatalogStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.catalog.Stats()})
}

// InvalidateCatalog drops the cached metric catalog so the next batch reloads it.
func (s *Server) InvalidateCatalog(c *gin.Context) {
	s.catalog.Invalidate()

	principal, _ := principalFromGin(c)
	logger.FromContext(c.Request.Context()).Info("metric catalog invalidation requested",
		zap.String("actor_role", string(principal.Role)),
	)

	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
