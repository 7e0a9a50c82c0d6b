package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mediadomain "github.com/smallbiznis/healx/internal/media/domain"
)

func (s *Server) IssueUploadURL(c *gin.Context) {
	principal, ok := principalFromGin(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req mediadomain.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mediaSvc.IssueUploadURL(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
