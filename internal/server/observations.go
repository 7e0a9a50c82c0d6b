package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	observationdomain "github.com/smallbiznis/healx/internal/observation/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

type batchIngestResponse struct {
	Status  string                         `json:"status"`
	Details *observationdomain.BatchResult `json:"details"`
}

func (s *Server) IngestBatch(c *gin.Context) {
	principal, ok := principalFromGin(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req observationdomain.BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set("source_name", strings.TrimSpace(req.SourceName))

	result, err := s.observationSvc.ProcessBatch(c.Request.Context(), principal.UserID, req, observationdomain.IngestOptions{
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batchIngestResponse{
		Status:  "success",
		Details: result,
	})
}
