package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.NotNil(t, log.With(String("component", "test")))
}

func TestFromZap_WritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("component", "fetcher"))

	log.Warn("fetch attempt failed", Int("attempt", 2), Error(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fetch attempt failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "fetcher", fields["component"])
	assert.Equal(t, int64(2), fields["attempt"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("discarded")
	assert.NotNil(t, log.With(String("ok", "true")))
}
