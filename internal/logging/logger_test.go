package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, true)

	log.Debug("dbg", "a", 1)
	log.Info("inf", "b", 2)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=inf")
	assert.Contains(t, out, "b=2")
}

func TestLogger_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, false)

	log.Debug("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, true)

	child := log.WithFields(map[string]any{"request_id": "123", "user": "alice"})
	child.Info("hello")

	out := buf.String()
	for _, want := range []string{"request_id=123", "user=alice", "msg=hello"} {
		assert.Contains(t, out, want)
	}
	assert.Same(t, log, log.WithFields(nil))
}

func TestGetLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, true)

	ctx := WithLogger(context.Background(), log)
	assert.Same(t, log, GetLoggerFromContext(ctx))
	assert.NotNil(t, GetLoggerFromContext(context.Background()))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, true)

	var fromCtx *Logger
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetLoggerFromContext(r.Context())
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("dup"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", nil))

	require.NotNil(t, fromCtx)
	assert.NotSame(t, log, fromCtx)
	assert.Equal(t, http.StatusConflict, rec.Code)

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=WARN"), out)
	assert.Contains(t, out, "status=409")
	assert.Contains(t, out, "bytes=3")
	assert.Contains(t, out, "path=/auth/register")
}
