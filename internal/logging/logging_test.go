package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"info":    zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hookwatch.log")
	logger, err := Init(Config{Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Infow("webhook received", "source", "report-source")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "webhook received")
	assert.Contains(t, string(data), `"source":"report-source"`)
	assert.Same(t, logger, L())
}

func TestInitRejectsBadLevel(t *testing.T) {
	_, err := Init(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestGetFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core).Sugar().With("request_id", "abc")

	ctx := WithContext(context.Background(), scoped)
	Get(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["request_id"])
}

func TestGetFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, Get(context.Background()))
	//nolint:staticcheck
	assert.NotNil(t, Get(nil))
}
