package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/healx/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithActor(ctx, "clinician", "user-1")
	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "clinician", fields["actor_role"])
	assert.Equal(t, "user-1", fields["actor_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestGinMiddlewareEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "abc", obscontext.RequestIDFromContext(c.Request.Context()))
		assert.NotEmpty(t, obscontext.CorrelationIDFromContext(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
}

func TestDescribeStatement(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`INSERT INTO "health_observations" ("id") VALUES (1)`, "INSERT", "health_observations"},
		{`SELECT * FROM "data_sources" WHERE name = $1`, "SELECT", "data_sources"},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "SELECT", "x"},
		{`UPDATE "metric_definitions" SET display_name = $1`, "UPDATE", "metric_definitions"},
		{"  ", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeStatement(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := context.Background()
	base := zap.New(core)
	t.Cleanup(zap.ReplaceGlobals(base))

	l := NewGormLogger(time.Hour)
	l.Trace(ctx, time.Now(), func() (string, int64) { return `SELECT * FROM "data_sources"`, 0 }, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now().Add(-2*time.Hour), func() (string, int64) { return `SELECT * FROM "data_sources"`, 1 }, nil)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "data_sources", entry.ContextMap()["table"])
	assert.NotContains(t, entry.ContextMap(), "sql")
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, requestLevel(http.StatusInternalServerError, "server", false))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel(http.StatusServiceUnavailable, "", true))
	assert.Equal(t, zapcore.DebugLevel, requestLevel(http.StatusOK, "", true))
	assert.Equal(t, zapcore.WarnLevel, requestLevel(http.StatusTooManyRequests, "client", false))
	assert.Equal(t, zapcore.InfoLevel, requestLevel(http.StatusBadRequest, "client", false))
}
