package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/healx/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/healx/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	rateLimitReasonUserRate              = "user-rate"
	rateLimitReasonUserSourceConcurrency = "user-source-concurrency"
)

type batchIngestRateLimitKey struct {
	SourceName string `json:"source_name"`
}

// BatchIngestRateLimit throttles batch uploads per user and serialises
// concurrent uploads for the same user and source.
func (s *Server) BatchIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.batchLimiter.Enabled() {
			c.Next()
			return
		}

		principal, ok := principalFromGin(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.batchLimiter.AllowUser(ctx, principal.UserID)
		if err != nil {
			logger.FromContext(ctx).Warn("batch ingest user rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyBatchIngestRateLimit(c, endpoint, rateLimitReasonUserRate, s.obsMetrics)
			return
		}

		sourceName, err := readBatchIngestKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("batch ingest rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		if sourceName != "" {
			lockToken, locked, err := s.batchLimiter.TryLockUserSource(ctx, principal.UserID, sourceName)
			if err != nil {
				logger.FromContext(ctx).Warn("batch ingest concurrency lock failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !locked {
				denyBatchIngestRateLimit(c, endpoint, rateLimitReasonUserSourceConcurrency, s.obsMetrics)
				return
			}
			defer func() {
				// The request context may already be cancelled; the lock must still go.
				releaseCtx := context.WithoutCancel(ctx)
				if err := s.batchLimiter.ReleaseUserSource(releaseCtx, principal.UserID, sourceName, lockToken); err != nil {
					logger.FromContext(ctx).Warn("batch ingest concurrency unlock failed", zap.Error(err))
				}
			}()
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyBatchIngestRateLimit(c *gin.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("batch ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", "1")
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func readBatchIngestKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload batchIngestRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.SourceName), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
