package gormlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestShortCaller(t *testing.T) {
	tests := map[string]string{
		"/home/ci/repo/internal/app/repository/gorm.go:38": "internal/app/repository/gorm.go:38",
		"/srv/build/cmd/api/main.go:10":                     "cmd/api/main.go:10",
		"/a/b/c/d/e.go:3":                                   "c/d/e.go:3",
		"":                                                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, shortCaller(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, ParseLevel("INFO"))
	assert.Equal(t, gormlogger.Silent, ParseLevel("silent"))
	assert.Equal(t, gormlogger.Warn, ParseLevel("verbose"))
}

func TestTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core).Sugar(), gormlogger.Warn, 100*time.Millisecond)
	ctx := context.WithValue(context.Background(), logctx.KeyTraceID, "trace-1")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, nil)
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Zero(t, logs.Len())

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "gorm_slow", entries[0].Message)
	assert.Equal(t, "gorm_trace", entries[1].Message)
	assert.Equal(t, "trace-1", entries[1].ContextMap()["trace_id"])
}
