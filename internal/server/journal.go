package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	journaldomain "github.com/smallbiznis/healx/internal/journal/domain"
)

func (s *Server) CreateJournalEntry(c *gin.Context) {
	principal, ok := principalFromGin(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req journaldomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.journalSvc.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "saved", "id": resp.ID})
}
