package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	appctx "serialgen/internal/core/context"
)

func TestFromContext_AddsTraceAndClient(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	log, err := New(Config{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), log)
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithClient(ctx, &appctx.ClientContext{ClientID: "billing"})

	Info(ctx, "number issued", "prefix", "ORDER")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, `"msg":"number issued"`)
	assert.Contains(t, line, `"trace_id":"t-1"`)
	assert.Contains(t, line, `"request_id":"r-1"`)
	assert.Contains(t, line, `"client_id":"billing"`)
	assert.Contains(t, line, `"prefix":"ORDER"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	log, err := New(Config{Level: "loud", OutputPaths: []string{out}})
	require.NoError(t, err)

	log.Debugw("hidden")
	log.Infow("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNop(t *testing.T) {
	ctx := WithLogger(context.Background(), Nop())
	assert.NotPanics(t, func() { Warn(ctx, "dropped") })
}

func TestSetLevel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	log, err := New(Config{Level: "warn", OutputPaths: []string{out}})
	require.NoError(t, err)

	child := log.WithComponent("issuer")
	child.Infow("before")
	log.SetLevel(zapcore.DebugLevel)
	child.Infow("after")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"msg":"before"`)
	assert.Contains(t, string(data), `"msg":"after"`)
	assert.Contains(t, string(data), `"component":"issuer"`)
	assert.Contains(t, string(data), `"service":"serialgen"`)
}
