package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/healx/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier returns ("client"|"server", code) for the last handler error.
	ErrorClassifier func(err error) (string, string)
	// QuietRoutes are logged at debug level unless they fail with a 5xx.
	QuietRoutes []string
}

// GinMiddleware logs one http_request line per request. Bodies are never
// logged; only the source name of a batch upload is attached.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(cfg.QuietRoutes))
	for _, route := range cfg.QuietRoutes {
		quiet[route] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c)
		c.Header(requestIDHeader, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx, correlationID := obscontext.EnsureCorrelationID(ctx)
		c.Header("X-Correlation-Id", correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if sourceName := strings.TrimSpace(c.GetString("source_name")); sourceName != "" {
			fields = append(fields, zap.String("source_name", sourceName))
		}

		errorKind := ""
		if lastErr := c.Errors.Last(); lastErr != nil {
			errorCode := ""
			if cfg.ErrorClassifier != nil {
				errorKind, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorKind),
				zap.String("error_code", errorCode),
			)
			if errorKind == "server" {
				fields = append(fields, zap.Error(lastErr.Err))
				if cfg.Debug {
					fields = append(fields, zap.Stack("stack"))
				}
			}
		}

		_, isQuiet := quiet[route]
		if ce := FromContext(c.Request.Context()).Check(requestLevel(status, errorKind, isQuiet), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestLevel(status int, errorKind string, quiet bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError || errorKind == "server":
		return zapcore.ErrorLevel
	case quiet:
		return zapcore.DebugLevel
	case status == http.StatusTooManyRequests || status == http.StatusConflict:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func requestIDFrom(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(requestIDHeader)); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}
