package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/lms-forum-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	prev := Logger
	core, logs := observer.New(zapcore.DebugLevel)
	setLogger(zap.New(core))
	t.Cleanup(func() { setLogger(prev) })
	return logs
}

func TestGinLoggerFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observe(t)

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/api/forum/topics/:id", func(c *gin.Context) {
		c.Set("user_id", uint(42))
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forum/topics/intro?page=2", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "/api/forum/topics/:id", fields["route"])
	assert.Equal(t, "/api/forum/topics/intro", fields["path"])
	assert.Equal(t, "page=2", fields["query"])
	assert.Equal(t, uint64(42), fields["user_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestGinLoggerTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observe(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceID string
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "request")
		defer span.End()
		traceID = span.SpanContext().TraceID().String()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(GinLogger())
	r.GET("/api/forum/tags/popular", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forum/tags/popular", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	require.NotEmpty(t, traceID)
	assert.Equal(t, traceID, entry.ContextMap()["trace_id"])
	assert.NotContains(t, entry.ContextMap(), "user_id")
}

func TestInitLoggerLevel(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { setLogger(prev) })

	InitLogger(&config.LogConfig{Level: "warn"})
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zapcore.WarnLevel))

	InitLogger(&config.LogConfig{Level: "bogus"})
	assert.True(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Logger.Core().Enabled(zapcore.DebugLevel))
}
